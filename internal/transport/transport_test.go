// SPDX-License-Identifier: MIT
package transport

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type recorder struct {
	got    []any
	err    error
	closed bool
}

func (r *recorder) Send(data any) error { r.got = append(r.got, data); return r.err }
func (r *recorder) Close() error        { r.closed = true; return r.err }

func TestMulti(t *testing.T) {
	a := &recorder{}
	b := &recorder{err: errors.New("b failed")}
	c := &recorder{}
	m := NewMulti(a, nil, b, c)

	err := m.Send(StateEvent{Type: TypeState})
	if err == nil || !strings.Contains(err.Error(), "b failed") {
		t.Fatalf("Send error = %v, expected b failed", err)
	}
	for i, r := range []*recorder{a, b, c} {
		if len(r.got) != 1 {
			t.Errorf("member %d received %d events, expected 1", i, len(r.got))
		}
	}

	if err := m.Close(); err == nil {
		t.Error("Close should report the failing member")
	}
	if !a.closed || !c.closed {
		t.Error("Close did not reach every member")
	}
	if err := m.Send(1); err != nil {
		t.Errorf("Send after Close = %v, expected nil", err)
	}
}

func TestFunc(t *testing.T) {
	var got any
	f := Func(func(data any) error { got = data; return nil })
	if err := f.Send("x"); err != nil || got != "x" {
		t.Errorf("Func.Send = %v, got %v", err, got)
	}
	if err := f.Close(); err != nil {
		t.Errorf("Func.Close = %v", err)
	}
	if err := Discard.Send(1); err != nil {
		t.Errorf("Discard.Send = %v", err)
	}
}

func TestLoggingTransport(t *testing.T) {
	lt := NewLoggingTransport()
	events := []any{
		StateEvent{Type: TypeState, Mode: "capture", State: "active"},
		PositionEvent{Type: TypePosition},
		BufferEvent{Type: TypeBuffer},
		FormatEvent{Type: TypeFormat},
		LevelsEvent{Type: TypeLevels, Levels: make([]float32, 4)},
		SpectrumEvent{Type: TypeSpectrum},
		SimilarityEvent{Type: TypeSimilarity},
		42,
	}
	for _, e := range events {
		if err := lt.Send(e); err != nil {
			t.Errorf("Send(%T) = %v", e, err)
		}
	}
	if err := lt.Close(); err != nil {
		t.Errorf("Close = %v", err)
	}
}

func TestWebSocketTransport_Broadcast(t *testing.T) {
	health := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	wst := newWebSocketTransport("", map[string]http.Handler{"/health": health})
	go wst.handleBroadcasts()
	defer wst.Close()

	srv := httptest.NewServer(wst.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("/health status = %d", resp.StatusCode)
	}

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + WebSocketPath
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for wst.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := wst.Send(PositionEvent{Type: TypePosition, Mode: "playback", Position: 880}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got PositionEvent
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if got.Type != TypePosition || got.Mode != "playback" || got.Position != 880 {
		t.Errorf("received %+v", got)
	}
}

func TestWebSocketTransport_DropsWhenFull(t *testing.T) {
	wst := newWebSocketTransport("", nil)
	defer wst.Close()
	for i := 0; i < cap(wst.broadcast)+10; i++ {
		if err := wst.Send(i); err != nil {
			t.Fatalf("Send %d: %v", i, err)
		}
	}
	if len(wst.broadcast) != cap(wst.broadcast) {
		t.Errorf("queue length = %d, expected %d", len(wst.broadcast), cap(wst.broadcast))
	}
}
