package surface

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/ambulance-tracker/model"
)

type fakeCommands struct {
	mu     sync.Mutex
	calls  []string
	err    error
	callAt model.LocationPoint
}

func (f *fakeCommands) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func (f *fakeCommands) FindAmbulance(context.Context) error {
	f.record(CommandFindAmbulance)
	return f.err
}

func (f *fakeCommands) CallAmbulance(context.Context) (model.LocationPoint, error) {
	f.record(CommandCallAmbulance)
	return f.callAt, f.err
}

func (f *fakeCommands) CloseMap(context.Context) error {
	f.record(CommandClose)
	return f.err
}

func (f *fakeCommands) Back(context.Context) { f.record(CommandBack) }

func dial(t *testing.T, h *WebSocketHandler) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readStruct(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var s structpb.Struct
	if err := protojson.Unmarshal(data, &s); err != nil {
		t.Fatalf("decode %q: %v", data, err)
	}
	return s.AsMap()
}

func readKind(t *testing.T, conn *websocket.Conn, kind string) map[string]any {
	t.Helper()
	for i := 0; i < 10; i++ {
		m := readStruct(t, conn)
		if m["kind"] == kind {
			return m
		}
	}
	t.Fatalf("no %q message received", kind)
	return nil
}

func waitSubscribers(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Subscribers() != n {
		if time.Now().After(deadline) {
			t.Fatalf("subscribers = %d, want %d", h.Subscribers(), n)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestWebSocketStreamsFrames(t *testing.T) {
	hub := NewHub()
	hub.Render(sampleFrame(1))
	conn := dial(t, NewWebSocketHandler(hub, nil, nil))

	first := readKind(t, conn, KindFrame)
	frame := first["frame"].(map[string]any)
	if frame["step"] != float64(1) || frame["sessionId"] != "s-1" {
		t.Fatalf("retained frame = %v", frame)
	}

	waitSubscribers(t, hub, 1)
	hub.Render(sampleFrame(2))
	next := readKind(t, conn, KindFrame)
	if next["frame"].(map[string]any)["step"] != float64(2) {
		t.Fatalf("live frame = %v", next)
	}
}

func TestWebSocketDispatchesCommands(t *testing.T) {
	hub := NewHub()
	cmds := &fakeCommands{callAt: model.LocationPoint{Latitude: 12.97, Longitude: 77.59}}
	conn := dial(t, NewWebSocketHandler(hub, cmds, nil))

	for _, typ := range []string{CommandFindAmbulance, CommandCallAmbulance, CommandClose, CommandBack} {
		msg := `{"type":"` + typ + `","requestId":"r-` + typ + `"}`
		if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
			t.Fatalf("write: %v", err)
		}
		reply := readKind(t, conn, "reply")
		if reply["type"] != typ || reply["requestId"] != "r-"+typ || reply["ok"] != true {
			t.Fatalf("reply = %v", reply)
		}
		if typ == CommandCallAmbulance {
			loc := reply["location"].(map[string]any)
			if loc["latitude"] != 12.97 {
				t.Fatalf("location = %v", loc)
			}
		}
	}

	cmds.mu.Lock()
	defer cmds.mu.Unlock()
	if len(cmds.calls) != 4 {
		t.Fatalf("calls = %v", cmds.calls)
	}
}

func TestWebSocketReportsCommandErrors(t *testing.T) {
	cmds := &fakeCommands{err: errors.New("map is not open")}
	conn := dial(t, NewWebSocketHandler(NewHub(), cmds, nil))

	_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"close"}`))
	reply := readKind(t, conn, "reply")
	if reply["ok"] != false || reply["error"] != "map is not open" {
		t.Fatalf("reply = %v", reply)
	}

	_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"teleport"}`))
	reply = readKind(t, conn, "reply")
	if reply["ok"] != false || !strings.Contains(reply["error"].(string), "unknown command") {
		t.Fatalf("reply = %v", reply)
	}

	_ = conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
	reply = readKind(t, conn, "reply")
	if reply["ok"] != false {
		t.Fatalf("reply = %v", reply)
	}
}

func TestWebSocketUnsubscribesOnDisconnect(t *testing.T) {
	hub := NewHub()
	conn := dial(t, NewWebSocketHandler(hub, nil, nil))
	waitSubscribers(t, hub, 1)

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()
	waitSubscribers(t, hub, 0)
}
