package extract

import (
	"regexp"
	"strings"
)

// FallbackLabel names a link whose label could not be recovered.
const FallbackLabel = "Resource link"

// placeholderLabels are link texts that say nothing about the target.
var placeholderLabels = map[string]bool{
	"here":            true,
	"here.":           true,
	"here..":          true,
	"click here":      true,
	"click here.":     true,
	"link":            true,
	"the link":        true,
	"this link":       true,
	"this link.":      true,
	"available here":  true,
	"available here.": true,
}

// trailingPhrases are stripped from the end of a mined label, repeatedly.
// Order matters: the first suffix that matches wins each round.
var trailingPhrases = []string{
	"can be found",
	"can be accessed",
	"can be viewed",
	"can be downloaded",
	"can be located",
	"can be obtained",
	"is located",
	"is stored",
	"are stored",
	"are located",
	"are found",
	"are available",
	"can be found on",
	"can be found in",
	"can be found at",
	"can be accessed via",
	"can be accessed at",
	"can be found via",
	"can be viewed on",
	"can be viewed in",
	"can be downloaded from",
	"can be accessed from",
	"can be accessed through",
	"can be accessed online",
	"can be located here",
	"can be seen",
	"is available",
	"are available to",
	"are available for",
	"are available from",
	"is available from",
	"is available on",
	"is available at",
	"are available on",
	"is accessible",
	"are accessible",
	"can be used",
	"can be found here",
	"link can be found",
	"link is here",
	"link is available",
	"links can be found",
	"links can be accessed",
	"can be found using",
	"be found",
	"be accessed",
	"found here",
	"found on",
	"found in",
	"found at",
	"found via",
	"available here",
	"available on",
	"available at",
	"available in",
	"available via",
	"to access",
	"to be found",
	"located here",
	"located on",
	"located at",
	"located in",
	"can be downloaded via",
	"can be downloaded at",
	"can be accessed here",
	"is stored on",
	"are stored on",
	"are stored in",
	"can be viewed here",
}

// Each stop prefix is removed at most once, in this order, case-sensitively.
var stopPrefixes = []string{"A ", "The ", "This ", "These ", "An ", "For ", "To "}

var leadPhrases = []string{"and ", "or ", "for ", "to ", "via "}

const labelCutset = " -:–—,.;()[]{}"

var sentenceBreak = regexp.MustCompile(`[.;!?\n]`)

// IsPlaceholder reports whether label carries no information of its own.
func IsPlaceholder(label string) bool {
	label = strings.TrimSpace(label)
	return label == "" || placeholderLabels[strings.ToLower(label)]
}

// MineLabel derives a label from the text preceding a placeholder link,
// e.g. "The staff handbook can be found " -> "staff handbook".
func MineLabel(before string) string {
	parts := sentenceBreak.Split(before, -1)
	if l := CleanLabel(parts[len(parts)-1]); l != "" {
		return l
	}
	if l := CleanLabel(lastRunes(before, 160)); l != "" {
		return l
	}
	return FallbackLabel
}

// CleanLabel trims filler phrases and punctuation around a candidate label.
// It returns "" when nothing meaningful is left.
func CleanLabel(candidate string) string {
	text := strings.TrimSpace(candidate)

	for changed := true; changed && text != ""; {
		changed = false
		for _, phrase := range trailingPhrases {
			if hasSuffixFold(text, phrase) {
				text = strings.TrimRight(text[:len(text)-len(phrase)], labelCutset)
				changed = true
				break
			}
		}
	}

	text = strings.Trim(text, labelCutset)
	for _, prefix := range stopPrefixes {
		text = strings.TrimPrefix(text, prefix)
	}

	for trimmed := true; trimmed && text != ""; {
		trimmed = false
		for _, phrase := range leadPhrases {
			if hasPrefixFold(text, phrase) {
				text = text[len(phrase):]
				trimmed = true
				break
			}
		}
	}

	return strings.Trim(text, labelCutset)
}

func hasSuffixFold(s, suffix string) bool {
	return len(s) >= len(suffix) && strings.EqualFold(s[len(s)-len(suffix):], suffix)
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func lastRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}
