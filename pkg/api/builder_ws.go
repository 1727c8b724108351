package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/schardosin/formstudio/pkg/dragdrop"
	"github.com/schardosin/formstudio/pkg/ferrors"
	"github.com/schardosin/formstudio/pkg/form"
	"github.com/schardosin/formstudio/pkg/placement"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// the studio only listens on a local address
	CheckOrigin: func(*http.Request) bool { return true },
}

// BuilderMessage is sent by the builder over the drag session socket.
//
//	{"type":"load","tree":[...]}                   replace the canvas tree
//	{"type":"zones","zones":[...]}                 use client-measured zones
//	{"type":"down","source":{"type":"input"},"x":10,"y":10}
//	{"type":"move","x":40,"y":12}
//	{"type":"up","x":40,"y":12}
//	{"type":"cancel"}
type BuilderMessage struct {
	Type   string          `json:"type"`
	Tree   form.Tree       `json:"tree,omitempty"`
	Zones  []dragdrop.Zone `json:"zones,omitempty"`
	Source dragdrop.Source `json:"source"`
	X      float64         `json:"x"`
	Y      float64         `json:"y"`
}

// BuilderEvent is sent back to the builder. Type is one of ready, state,
// zone, tree, notify or error.
type BuilderEvent struct {
	Type       string               `json:"type"`
	Transition *dragdrop.Transition `json:"transition,omitempty"`
	Zone       *dragdrop.Zone       `json:"zone,omitempty"`
	Zones      []dragdrop.Zone      `json:"zones,omitempty"`
	Tree       *form.Tree           `json:"tree,omitempty"`
	Target     *placement.Target    `json:"target,omitempty"`
	Error      *ErrorDetail         `json:"error,omitempty"`
}

// sessionZones serves client-measured zones when the builder sent some and
// the server-side box layout otherwise.
type sessionZones struct {
	mu     sync.Mutex
	static dragdrop.StaticZones
	layout dragdrop.BoxLayout
}

func (z *sessionZones) Zones(tree form.Tree) []dragdrop.Zone {
	z.mu.Lock()
	defer z.mu.Unlock()
	if len(z.static) > 0 {
		return z.static
	}
	return z.layout.Zones(tree)
}

func (z *sessionZones) set(zones []dragdrop.Zone) {
	z.mu.Lock()
	z.static = zones
	z.mu.Unlock()
}

// BuilderSocketHandler handles GET /api/builder/ws. Each connection owns
// one drag controller; pointer events come in, state changes, the active
// zone, the resulting tree and rejected drops go out.
func (s *Server) BuilderSocketHandler(w http.ResponseWriter, r *http.Request) {
	logger := s.logger(r)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	var wmu sync.Mutex
	send := func(ev BuilderEvent) {
		wmu.Lock()
		defer wmu.Unlock()
		if err := conn.WriteJSON(ev); err != nil {
			logger.Debug("websocket write failed", "err", err)
		}
	}
	sendError := func(err error) {
		code := ferrors.GetCode(err)
		if code == "" {
			code = ferrors.CodeInternal
		}
		send(BuilderEvent{Type: "error", Error: &ErrorDetail{Code: code, Message: ferrors.UserMessage(err)}})
	}

	cfg := s.config()
	zones := &sessionZones{layout: dragdrop.DefaultBoxLayout()}
	ctrl := dragdrop.NewController(form.NewTree(), s.resolver(), zones,
		dragdrop.WithThreshold(cfg.Builder.DragThreshold),
		dragdrop.WithLogger(logger),
		dragdrop.WithObserver(func(t dragdrop.Transition) {
			send(BuilderEvent{Type: "state", Transition: &t})
		}),
		dragdrop.WithNotifier(dragdrop.NotifierFunc(func(n dragdrop.Notification) {
			send(BuilderEvent{Type: "notify", Error: &ErrorDetail{Code: n.Code, Message: n.Message}})
		})),
	)
	sendTree := func(target *placement.Target) {
		tree := ctrl.Tree()
		send(BuilderEvent{Type: "tree", Tree: &tree, Target: target, Zones: zones.Zones(tree)})
	}

	logger.Debug("builder session opened", "remote", r.RemoteAddr)
	tree := ctrl.Tree()
	send(BuilderEvent{Type: "ready", Tree: &tree, Zones: zones.Zones(tree)})

	var lastZone *placement.Target
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("builder session closed unexpectedly", "err", err)
			}
			ctrl.Cancel()
			logger.Debug("builder session closed", "remote", r.RemoteAddr)
			return
		}

		var msg BuilderMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			sendError(ferrors.Wrap(ferrors.CodeInvalidInput, err, "invalid message"))
			continue
		}
		p := dragdrop.Point{X: msg.X, Y: msg.Y}

		switch msg.Type {
		case "load":
			if err := msg.Tree.Validate(); err != nil {
				sendError(err)
				continue
			}
			ctrl.SetTree(msg.Tree)
			sendTree(nil)
		case "zones":
			zones.set(msg.Zones)
		case "down":
			lastZone = nil
			if err := ctrl.PointerDown(msg.Source, p); err != nil {
				sendError(err)
			}
		case "move":
			zone, ok := ctrl.PointerMove(p)
			switch {
			case ok && (lastZone == nil || *lastZone != zone.Target):
				t := zone.Target
				lastZone = &t
				send(BuilderEvent{Type: "zone", Zone: &zone})
			case !ok && lastZone != nil:
				lastZone = nil
				send(BuilderEvent{Type: "zone"})
			}
		case "up":
			lastZone = nil
			out := ctrl.PointerUp(p)
			if out.Applied {
				target := out.Result.Target
				sendTree(&target)
			}
		case "cancel":
			lastZone = nil
			ctrl.Cancel()
		default:
			sendError(ferrors.New(ferrors.CodeInvalidInput, "unknown message type %q", msg.Type))
		}
	}
}
