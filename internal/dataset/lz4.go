package dataset

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// Compressed datasets use an 8-byte magic, a 4-byte LE uint32 uncompressed
// size and a raw lz4 block. Mozilla's mozlz4 files share the layout and are
// accepted too.
var (
	magic       = []byte("wwlz4\x00\x00\x00")
	mozLz4Magic = []byte("mozLz40\x00")
)

const headerSize = 12 // 8 magic + 4 size

// maxDecompressedSize bounds the size a header may claim.
const maxDecompressedSize = 64 << 20

// IsCompressed reports whether data starts with a known lz4 header.
func IsCompressed(data []byte) bool {
	return bytes.HasPrefix(data, magic) || bytes.HasPrefix(data, mozLz4Magic)
}

// Decompress unpacks a compressed dataset.
func Decompress(data []byte) ([]byte, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("lz4: data too short (%d bytes)", len(data))
	}
	if !IsCompressed(data) {
		return nil, fmt.Errorf("lz4: invalid header magic")
	}

	size := binary.LittleEndian.Uint32(data[8:12])
	if size > maxDecompressedSize {
		return nil, fmt.Errorf("lz4: declared size %d exceeds limit of %d bytes", size, maxDecompressedSize)
	}
	dst := make([]byte, size)
	n, err := lz4.UncompressBlock(data[headerSize:], dst)
	if err != nil {
		return nil, fmt.Errorf("lz4: decompress failed: %w", err)
	}
	return dst[:n], nil
}

var errIncompressible = errors.New("lz4: data is incompressible")

// Compress packs data in the format Decompress reads.
func Compress(data []byte) ([]byte, error) {
	out := make([]byte, headerSize+lz4.CompressBlockBound(len(data)))
	copy(out, magic)
	binary.LittleEndian.PutUint32(out[8:12], uint32(len(data)))

	n, err := lz4.CompressBlock(data, out[headerSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("lz4: compress failed: %w", err)
	}
	if n == 0 && len(data) > 0 {
		return nil, errIncompressible
	}
	return out[:headerSize+n], nil
}
