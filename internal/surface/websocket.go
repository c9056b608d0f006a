package surface

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/ambulance-tracker/internal/logging"
	"github.com/signalsfoundry/ambulance-tracker/model"
)

// Client command types accepted over the socket.
const (
	CommandFindAmbulance = "findAmbulance"
	CommandCallAmbulance = "callAmbulance"
	CommandClose         = "close"
	CommandBack          = "back"
)

// ErrUnknownCommand is reported back to a client that sent an unsupported
// command type.
var ErrUnknownCommand = errors.New("unknown command")

// Commands are the user actions a remote map client may trigger.
type Commands interface {
	FindAmbulance(ctx context.Context) error
	CallAmbulance(ctx context.Context) (model.LocationPoint, error)
	CloseMap(ctx context.Context) error
	Back(ctx context.Context)
}

const (
	defaultWriteWait  = 10 * time.Second
	defaultPongWait   = 60 * time.Second
	maxCommandBytes   = 4096
	defaultSendBuffer = 64
)

// WebSocketOption customises a WebSocketHandler.
type WebSocketOption func(*WebSocketHandler)

// WithCheckOrigin replaces the upgrader's origin check.
func WithCheckOrigin(fn func(*http.Request) bool) WebSocketOption {
	return func(h *WebSocketHandler) { h.upgrader.CheckOrigin = fn }
}

// WithPongWait sets how long a silent client is tolerated; pings go out at
// nine tenths of it.
func WithPongWait(d time.Duration) WebSocketOption {
	return func(h *WebSocketHandler) { h.pongWait = d }
}

// WebSocketHandler streams hub events to browser map clients as protojson
// and accepts user commands in the other direction.
type WebSocketHandler struct {
	hub      *Hub
	commands Commands
	log      logging.Logger
	upgrader websocket.Upgrader
	pongWait time.Duration
}

// NewWebSocketHandler returns a handler bound to hub. commands may be nil
// for a read-only stream.
func NewWebSocketHandler(hub *Hub, commands Commands, log logging.Logger, opts ...WebSocketOption) *WebSocketHandler {
	if log == nil {
		log = logging.Noop()
	}
	h := &WebSocketHandler{
		hub:      hub,
		commands: commands,
		log:      log,
		upgrader: websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 4096},
		pongWait: defaultPongWait,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	if h.pongWait <= 0 {
		h.pongWait = defaultPongWait
	}
	return h
}

// ServeHTTP implements http.Handler.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn(r.Context(), "websocket upgrade failed", logging.Error(err))
		return
	}
	defer conn.Close()

	ctx, log := logging.WithRequestLogger(r.Context(), h.log.With(logging.String("remote", r.RemoteAddr)))
	log.Info(ctx, "map client connected")

	events, unsubscribe := h.hub.Subscribe(defaultSendBuffer)
	defer unsubscribe()

	replies := make(chan *structpb.Struct, 8)
	done := make(chan struct{})
	go h.readPump(ctx, conn, replies, done)

	err = h.writePump(conn, events, replies, done)
	log.Info(ctx, "map client disconnected", logging.Error(err))
}

func (h *WebSocketHandler) writePump(conn *websocket.Conn, events <-chan Event, replies <-chan *structpb.Struct, done <-chan struct{}) error {
	ping := time.NewTicker(h.pongWait * 9 / 10)
	defer ping.Stop()

	for {
		select {
		case <-done:
			return nil
		case e, ok := <-events:
			if !ok {
				return nil
			}
			data, err := MarshalEvent(e)
			if err != nil {
				h.log.Warn(context.Background(), "dropping unencodable event", logging.String("kind", e.Kind), logging.Error(err))
				continue
			}
			if err := h.write(conn, websocket.TextMessage, data); err != nil {
				return err
			}
		case reply := <-replies:
			data, err := protojson.Marshal(reply)
			if err != nil {
				return err
			}
			if err := h.write(conn, websocket.TextMessage, data); err != nil {
				return err
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(defaultWriteWait)); err != nil {
				return err
			}
		}
	}
}

func (h *WebSocketHandler) write(conn *websocket.Conn, kind int, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(defaultWriteWait)); err != nil {
		return err
	}
	return conn.WriteMessage(kind, data)
}

func (h *WebSocketHandler) readPump(ctx context.Context, conn *websocket.Conn, replies chan<- *structpb.Struct, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(maxCommandBytes)
	_ = conn.SetReadDeadline(time.Now().Add(h.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.pongWait))
	})

	log := logging.FromContext(ctx, h.log)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn(ctx, "websocket read failed", logging.Error(err))
			}
			return
		}

		reply := h.handle(ctx, data)
		select {
		case replies <- reply:
		default:
			log.Warn(ctx, "reply buffer full, dropping reply")
		}
	}
}

func (h *WebSocketHandler) handle(ctx context.Context, data []byte) *structpb.Struct {
	var msg structpb.Struct
	if err := protojson.Unmarshal(data, &msg); err != nil {
		return replyStruct("", "", fmt.Errorf("decode command: %w", err), nil)
	}
	fields := msg.GetFields()
	typ := fields["type"].GetStringValue()
	id := fields["requestId"].GetStringValue()

	if h.commands == nil {
		return replyStruct(typ, id, ErrUnknownCommand, nil)
	}

	logging.FromContext(ctx, h.log).Debug(ctx, "map client command", logging.String("type", typ))
	switch typ {
	case CommandFindAmbulance:
		return replyStruct(typ, id, h.commands.FindAmbulance(ctx), nil)
	case CommandCallAmbulance:
		loc, err := h.commands.CallAmbulance(ctx)
		if err != nil {
			return replyStruct(typ, id, err, nil)
		}
		return replyStruct(typ, id, nil, pointMap(loc))
	case CommandClose:
		return replyStruct(typ, id, h.commands.CloseMap(ctx), nil)
	case CommandBack:
		h.commands.Back(ctx)
		return replyStruct(typ, id, nil, nil)
	default:
		return replyStruct(typ, id, fmt.Errorf("%w %q", ErrUnknownCommand, typ), nil)
	}
}

func replyStruct(typ, id string, err error, location map[string]any) *structpb.Struct {
	m := map[string]any{
		"kind":      "reply",
		"type":      typ,
		"requestId": id,
		"ok":        err == nil,
	}
	if err != nil {
		m["error"] = err.Error()
	}
	if location != nil {
		m["location"] = location
	}
	s, convErr := structpb.NewStruct(m)
	if convErr != nil {
		return &structpb.Struct{}
	}
	return s
}
