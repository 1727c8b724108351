// Package dragdrop tracks pointer drags over the builder canvas, works out
// which drop zone is active and hands the drop to the placement resolver.
package dragdrop

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/schardosin/formstudio/pkg/ferrors"
	"github.com/schardosin/formstudio/pkg/form"
	"github.com/schardosin/formstudio/pkg/logging"
	"github.com/schardosin/formstudio/pkg/placement"
)

// DefaultThreshold is the distance in pixels the pointer must travel before
// a press becomes a drag.
const DefaultThreshold = 5.0

// State is the drag session state.
type State int

const (
	Idle State = iota
	Dragging
	Resolving
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case Resolving:
		return "resolving"
	case Cancelled:
		return "cancelled"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	for _, st := range []State{Idle, Dragging, Resolving, Cancelled} {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown drag state %q", b)
}

// Source is what is being dragged: a palette item creating a node of Type,
// or the existing node NodeID.
type Source struct {
	Type   form.ComponentType `json:"type,omitempty"`
	NodeID string             `json:"nodeId,omitempty"`
}

// PaletteSource drags a new node of type t from the palette.
func PaletteSource(t form.ComponentType) Source {
	return Source{Type: t}
}

// NodeSource drags the existing node id.
func NodeSource(id string) Source {
	return Source{NodeID: id}
}

// IsMove reports whether the source is an existing node.
func (s Source) IsMove() bool {
	return s.NodeID != ""
}

// Transition is emitted on every state change.
type Transition struct {
	From State `json:"from"`
	To   State `json:"to"`
}

// Observer receives transitions in order. Observers run after the
// controller's lock is released and may call back into it.
type Observer func(Transition)

// Notification is a transient, user-facing message about a rejected drop.
type Notification struct {
	Code    ferrors.Code `json:"code"`
	Message string       `json:"message"`
}

// Notifier shows notifications to the user.
type Notifier interface {
	Notify(Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// Outcome describes what a pointer release did.
type Outcome struct {
	// Applied is true when the resolver produced a new tree.
	Applied bool
	// Cancelled is true when an active drag ended without a drop.
	Cancelled bool
	Tree      form.Tree
	Result    placement.Result
	// Err is the resolver error of a rejected drop. The tree is unchanged.
	Err error
}

// Option configures a Controller.
type Option func(*Controller)

// WithThreshold overrides DefaultThreshold.
func WithThreshold(px float64) Option {
	return func(c *Controller) {
		if px >= 0 {
			c.threshold = px
		}
	}
}

// WithNotifier sets the notifier used for rejected drops.
func WithNotifier(n Notifier) Option {
	return func(c *Controller) { c.notifier = n }
}

// WithObserver adds a transition observer.
func WithObserver(o Observer) Option {
	return func(c *Controller) { c.observers = append(c.observers, o) }
}

// WithLogger sets the logger for drop decisions.
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// Controller is the drag session state machine:
//
//	Idle -> Dragging -> Resolving -> Idle
//	                 -> Cancelled -> Idle
//
// It owns the current tree and replaces it wholesale when a drop is applied.
type Controller struct {
	mu        sync.Mutex
	resolver  *placement.Resolver
	zones     ZoneProvider
	threshold float64
	notifier  Notifier
	observers []Observer
	logger    *log.Logger

	tree   form.Tree
	state  State
	armed  bool
	source Source
	origin Point
	active *Zone
}

// NewController returns an idle controller over tree.
func NewController(tree form.Tree, resolver *placement.Resolver, zones ZoneProvider, opts ...Option) *Controller {
	c := &Controller{
		resolver:  resolver,
		zones:     zones,
		threshold: DefaultThreshold,
		logger:    logging.Discard(),
		tree:      tree,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Tree returns the current tree.
func (c *Controller) Tree() form.Tree {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tree
}

// SetTree replaces the tree, e.g. after loading a saved form. An active
// drag is cancelled.
func (c *Controller) SetTree(t form.Tree) {
	c.mu.Lock()
	events := c.cancelLocked()
	c.tree = t
	c.mu.Unlock()
	c.emit(events)
}

// ActiveZone returns the zone under the pointer while dragging.
func (c *Controller) ActiveZone() (Zone, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return Zone{}, false
	}
	return *c.active, true
}

// PointerDown arms a drag of src starting at p. Nothing changes state until
// the pointer travels past the threshold.
func (c *Controller) PointerDown(src Source, p Point) error {
	if !src.IsMove() && !src.Type.Valid() {
		return ferrors.New(ferrors.CodeInvalidInput, "unknown component type %q", src.Type)
	}
	c.mu.Lock()
	events := c.cancelLocked()
	c.armed = true
	c.source = src
	c.origin = p
	c.mu.Unlock()
	c.emit(events)
	return nil
}

// PointerMove updates the pointer position and returns the active zone, if
// any.
func (c *Controller) PointerMove(p Point) (Zone, bool) {
	c.mu.Lock()
	var events []Transition
	if c.state == Idle && c.armed && c.origin.Dist(p) >= c.threshold {
		c.armed = false
		events = append(events, c.setLocked(Dragging))
	}
	if c.state == Dragging {
		c.updateZoneLocked(p)
	}
	active := c.active
	c.mu.Unlock()
	c.emit(events)

	if active == nil {
		return Zone{}, false
	}
	return *active, true
}

// PointerUp ends the gesture. Releasing over a zone resolves the drop;
// releasing elsewhere cancels. A release before the threshold was crossed
// is a click and changes nothing.
func (c *Controller) PointerUp(p Point) Outcome {
	c.mu.Lock()
	if c.state != Dragging {
		c.armed = false
		out := Outcome{Tree: c.tree}
		c.mu.Unlock()
		return out
	}

	c.updateZoneLocked(p)
	if c.active == nil {
		events := c.cancelLocked()
		out := Outcome{Cancelled: true, Tree: c.tree}
		c.mu.Unlock()
		c.emit(events)
		return out
	}

	events := []Transition{c.setLocked(Resolving)}
	zone := *c.active
	var (
		res placement.Result
		err error
	)
	if c.source.IsMove() {
		res, err = c.resolver.Move(c.tree, c.source.NodeID, zone.Target)
	} else {
		res, err = c.resolver.Resolve(c.tree, c.source.Type, zone.Target)
	}

	out := Outcome{Tree: c.tree, Err: err}
	if err == nil {
		c.tree = res.Tree
		out = Outcome{Applied: true, Tree: res.Tree, Result: res}
		c.logger.Debug("drop applied", "target", res.Target.String(), "node", res.Node.ID)
	} else {
		c.logger.Warn("drop rejected", "target", zone.Target.String(), "err", err)
	}
	c.active = nil
	events = append(events, c.setLocked(Idle))
	notifier := c.notifier
	c.mu.Unlock()

	c.emit(events)
	if err != nil && notifier != nil {
		notifier.Notify(Notification{Code: ferrors.GetCode(err), Message: ferrors.UserMessage(err)})
	}
	return out
}

// Cancel discards the gesture without touching the tree.
func (c *Controller) Cancel() {
	c.mu.Lock()
	events := c.cancelLocked()
	c.mu.Unlock()
	c.emit(events)
}

func (c *Controller) cancelLocked() []Transition {
	c.armed = false
	c.active = nil
	if c.state != Dragging {
		return nil
	}
	return []Transition{c.setLocked(Cancelled), c.setLocked(Idle)}
}

func (c *Controller) setLocked(s State) Transition {
	t := Transition{From: c.state, To: s}
	c.state = s
	return t
}

func (c *Controller) updateZoneLocked(p Point) {
	if c.zones == nil {
		c.active = nil
		return
	}
	if z, ok := HitTest(c.zones.Zones(c.tree), p); ok {
		c.active = &z
	} else {
		c.active = nil
	}
}

func (c *Controller) emit(events []Transition) {
	for _, e := range events {
		for _, o := range c.observers {
			o(e)
		}
	}
}
