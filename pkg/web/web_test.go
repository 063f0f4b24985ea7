package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-mocap/internal/log"
	"github.com/teslashibe/go-mocap/pkg/animator"
	"github.com/teslashibe/go-mocap/pkg/keypoint"
	"github.com/teslashibe/go-mocap/pkg/protocol"
)

func init() {
	log.SetOutput(io.Discard, "error")
}

type fakeRenderer struct{}

func (fakeRenderer) Render(f *keypoint.Frame) ([]byte, error) {
	return []byte{0xFF, 0xD8, byte(f.Number)}, nil
}

func newServer(t *testing.T, opts Options) (*Server, *animator.Session) {
	t.Helper()
	sess, err := animator.New(animator.Options{Config: animator.DefaultConfig()})
	if err != nil {
		t.Fatalf("animator.New: %v", err)
	}
	t.Cleanup(sess.Close)
	opts.Session = sess
	return NewServer(opts), sess
}

func streamJSON(t *testing.T, n int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := keypoint.Encode(&buf, keypoint.WaveStream(n, 30, 0.5)); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return buf.Bytes()
}

func do(t *testing.T, s *Server, method, path, body string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.App().Test(req, 5000)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var out map[string]interface{}
	data, _ := io.ReadAll(resp.Body)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &out); err != nil {
			t.Fatalf("%s %s: bad JSON %q", method, path, data)
		}
	}
	return resp.StatusCode, out
}

func playback(t *testing.T, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	pb, ok := body["playback"].(map[string]interface{})
	if !ok {
		t.Fatalf("response has no playback: %v", body)
	}
	return pb
}

func TestStatusAndDiagnostics(t *testing.T) {
	s, sess := newServer(t, Options{})

	code, body := do(t, s, "GET", "/api/status", "")
	if code != http.StatusOK {
		t.Fatalf("status code = %d", code)
	}
	if body["id"] != sess.ID() {
		t.Errorf("id = %v, want %s", body["id"], sess.ID())
	}

	code, body = do(t, s, "GET", "/api/diagnostics", "")
	if code != http.StatusOK {
		t.Fatalf("diagnostics code = %d", code)
	}
	mapping, ok := body["mapping"].(map[string]interface{})
	if !ok || mapping["coverage"] == nil {
		t.Errorf("diagnostics = %v", body)
	}

	code, body = do(t, s, "GET", "/api/feeds", "")
	if code != http.StatusOK || body["feeds"] == nil {
		t.Errorf("feeds = %d %v", code, body)
	}
}

func TestPlaybackEndpoints(t *testing.T) {
	s, _ := newServer(t, Options{})

	code, body := do(t, s, "POST", "/api/stream", string(streamJSON(t, 21)))
	if code != http.StatusOK {
		t.Fatalf("stream code = %d %v", code, body)
	}
	if got := playback(t, body)["frame_count"]; got != 21.0 {
		t.Errorf("frame_count = %v, want 21", got)
	}

	tests := []struct {
		name   string
		path   string
		body   string
		code   int
		field  string
		expect interface{}
	}{
		{"play", "/api/play", `{"playing":true}`, 200, "playing", true},
		{"toggle", "/api/play", ``, 200, "playing", false},
		{"speed", "/api/speed", `{"speed":2}`, 200, "speed", 2.0},
		{"bad speed", "/api/speed", `{"speed":0}`, 400, "", nil},
		{"seek", "/api/seek", `{"position":0.5}`, 200, "index", 10.0},
		{"seek clamps", "/api/seek", `{"position":3}`, 200, "index", 20.0},
		{"loop", "/api/loop", `{"loop":false}`, 200, "loop", false},
		{"bad json", "/api/seek", `{`, 400, "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := do(t, s, "POST", tt.path, tt.body)
			if code != tt.code {
				t.Fatalf("code = %d, want %d (%v)", code, tt.code, body)
			}
			if tt.code != 200 {
				if body["error"] == nil {
					t.Error("error response should carry a message")
				}
				return
			}
			if got := playback(t, body)[tt.field]; got != tt.expect {
				t.Errorf("%s = %v, want %v", tt.field, got, tt.expect)
			}
		})
	}
}

func TestStreamFromURL(t *testing.T) {
	s, _ := newServer(t, Options{})

	path := filepath.Join(t.TempDir(), "capture.json")
	if err := os.WriteFile(path, streamJSON(t, 8), 0o644); err != nil {
		t.Fatal(err)
	}
	body, _ := json.Marshal(map[string]string{"url": path})

	code, resp := do(t, s, "POST", "/api/stream", string(body))
	if code != http.StatusOK {
		t.Fatalf("code = %d %v", code, resp)
	}
	if got := playback(t, resp)["frame_count"]; got != 8.0 {
		t.Errorf("frame_count = %v, want 8", got)
	}

	code, _ = do(t, s, "POST", "/api/stream", `{"url":"/nonexistent/capture.json"}`)
	if code != http.StatusBadRequest {
		t.Errorf("missing file code = %d, want 400", code)
	}
	code, _ = do(t, s, "POST", "/api/stream", ``)
	if code != http.StatusBadRequest {
		t.Errorf("empty body code = %d, want 400", code)
	}
}

func TestRigEndpoint(t *testing.T) {
	s, sess := newServer(t, Options{})

	code, body := do(t, s, "POST", "/api/rig", `{"url":"/nonexistent/avatar.glb","wait":true}`)
	if code != http.StatusUnprocessableEntity {
		t.Errorf("missing rig code = %d, want 422 (%v)", code, body)
	}
	if got := sess.Status().Rig.Name; got != "Figure" {
		t.Errorf("rig = %q, want procedural kept", got)
	}

	code, _ = do(t, s, "POST", "/api/rig", `{}`)
	if code != http.StatusAccepted {
		t.Errorf("async swap code = %d, want 202", code)
	}
}

func serve(t *testing.T, s *Server) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go s.Serve(ctx, ln)
	time.Sleep(100 * time.Millisecond)
	return "ws://" + ln.Addr().String()
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("WebSocket dial error: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func waitClients(t *testing.T, count func() int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for count() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPoseFeed(t *testing.T) {
	s, sess := newServer(t, Options{})
	ws := dial(t, serve(t, s)+"/ws/pose")
	waitClients(t, s.PoseHub().ClientCount)

	sess.LoadStreamData(streamJSON(t, 5))
	sess.Tick()

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	if msg.Type != protocol.TypePose {
		t.Fatalf("type = %s, want pose", msg.Type)
	}
	var snap animator.Snapshot
	if err := msg.ParseData(&snap); err != nil {
		t.Fatalf("ParseData: %v", err)
	}
	if snap.Session != sess.ID() || len(snap.Bones) == 0 {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestOverlayFeed(t *testing.T) {
	s, sess := newServer(t, Options{Overlay: fakeRenderer{}, OverlayEvery: 1})
	ws := dial(t, serve(t, s)+"/ws/overlay")
	waitClients(t, s.OverlayHub().ClientCount)

	sess.LoadStreamData(streamJSON(t, 5))
	sess.Tick()

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	kind, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if kind != websocket.BinaryMessage || !bytes.HasPrefix(data, []byte{0xFF, 0xD8}) {
		t.Errorf("kind = %d data = %v", kind, data)
	}
}

func TestControlChannelMounted(t *testing.T) {
	s, _ := newServer(t, Options{})
	ws := dial(t, serve(t, s)+"/ws/control")

	msg, _ := protocol.NewMessage(protocol.TypeGetStatus, nil)
	data, _ := msg.Bytes()
	ws.WriteMessage(websocket.TextMessage, data)

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	reply, _ := protocol.ParseMessage(data)
	if reply == nil || reply.Type != protocol.TypeStatus {
		t.Errorf("reply = %v", reply)
	}
}
