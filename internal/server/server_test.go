package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"
	"nhooyr.io/websocket"

	"github.com/lotas/wegweiser/internal/pins"
	"github.com/lotas/wegweiser/internal/testutil"
	"github.com/lotas/wegweiser/internal/types"
	"github.com/lotas/wegweiser/internal/view"
)

func dial(t *testing.T, ctx context.Context, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func waitConnected(t *testing.T, srv *Server) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !srv.Connected() {
		if time.Now().After(deadline) {
			t.Fatal("server never registered the connection")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestServerAcceptsConnection(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	srv := New(0) // port 0 = pick any free port
	msgs := srv.Messages()

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn := dial(t, ctx, ts)
	defer conn.CloseNow()

	data, _ := json.Marshal(IncomingMsg{Type: MsgVisible, SectionKey: "B-B2"})
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case msg := <-msgs:
		if msg.Type != MsgVisible || msg.SectionKey != "B-B2" {
			t.Errorf("got %+v, want visible B-B2", msg)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for message")
	}
}

func TestServerDropsInvalidMessages(t *testing.T) {
	srv := New(0)
	msgs := srv.Messages()

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn := dial(t, ctx, ts)
	defer conn.CloseNow()

	for _, raw := range []string{
		`not json`,
		`{"type":"visible"}`,
		`{"type":"toggle-pin"}`,
		`{"type":"unknown"}`,
		`{"type":"toggle-pin","key":"A-A1"}`,
	} {
		if err := conn.Write(ctx, websocket.MessageText, []byte(raw)); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	select {
	case msg := <-msgs:
		if msg.Type != MsgTogglePin || msg.Key != "A-A1" {
			t.Errorf("first delivered message = %+v, want toggle-pin A-A1", msg)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for message")
	}
}

func TestServerSendsView(t *testing.T) {
	srv := New(0)

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn := dial(t, ctx, ts)
	defer conn.CloseNow()
	waitConnected(t, srv)

	p := view.Project(testutil.Dataset(), types.DefaultFilterState(), pins.NewSet("A-A1"))
	if err := srv.Send(OutgoingMsg{Action: ActionView, View: &p, Active: view.AnchorID("A")}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got OutgoingMsg
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.ID == "" || got.Action != ActionView || got.Active != "cat-a" {
		t.Errorf("got %+v, want view with generated id", got)
	}
	if got.View == nil || len(got.View.Categories) != 2 || !got.View.Pinned["A-A1"] {
		t.Errorf("view payload not carried: %+v", got.View)
	}
}

func TestServerSendWithoutObserver(t *testing.T) {
	srv := New(0)
	if srv.Connected() {
		t.Fatal("fresh server reports a connection")
	}
	if err := srv.Send(OutgoingMsg{Action: ActionView}); err != nil {
		t.Errorf("Send without observer = %v, want nil", err)
	}
}

func TestServerReplacesConnection(t *testing.T) {
	srv := New(0)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	first := dial(t, ctx, ts)
	defer first.CloseNow()
	waitConnected(t, srv)

	second := dial(t, ctx, ts)
	defer second.CloseNow()

	// The first connection is closed by the server.
	if _, _, err := first.Read(ctx); err == nil {
		t.Error("expected first connection to be closed")
	}
	waitConnected(t, srv)

	if err := srv.Send(OutgoingMsg{Action: ActionActive, Active: "cat-b"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	_, data, err := second.Read(ctx)
	if err != nil {
		t.Fatalf("read on second: %v", err)
	}
	if !strings.Contains(string(data), `"cat-b"`) {
		t.Errorf("second connection got %s", data)
	}
}

func TestRouterHelpers(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	srv := New(0)
	srv.SetAnchors(view.Anchors(testutil.Dataset()))
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/anchors")
	if err != nil {
		t.Fatalf("GET /anchors: %v", err)
	}
	var anchors map[string]string
	err = json.NewDecoder(resp.Body).Decode(&anchors)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("decode anchors: %v", err)
	}
	if anchors["B-B1"] != "cat-b" || len(anchors) != 4 {
		t.Errorf("anchors = %v", anchors)
	}

	resp, err = http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	var health map[string]any
	err = json.NewDecoder(resp.Body).Decode(&health)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health["status"] != "ok" || health["connected"] != false {
		t.Errorf("health = %v", health)
	}
}

func TestIncomingMsgValidate(t *testing.T) {
	tests := []struct {
		msg     IncomingMsg
		wantErr bool
	}{
		{IncomingMsg{Type: MsgHello}, false},
		{IncomingMsg{Type: MsgVisible, SectionKey: "A-A1"}, false},
		{IncomingMsg{Type: MsgTogglePin, Key: "A-A1"}, false},
		{IncomingMsg{Type: MsgVisible}, true},
		{IncomingMsg{Type: MsgTogglePin, SectionKey: "A-A1"}, true},
		{IncomingMsg{}, true},
		{IncomingMsg{Type: "snapshot"}, true},
	}
	for _, tt := range tests {
		err := tt.msg.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("Validate(%+v) = %v, wantErr %v", tt.msg, err, tt.wantErr)
		}
	}
}
