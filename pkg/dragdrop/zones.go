package dragdrop

import (
	"math"

	"github.com/schardosin/formstudio/pkg/form"
	"github.com/schardosin/formstudio/pkg/placement"
)

// Point is a pointer position in canvas coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Dist is the euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Rect is an axis-aligned rectangle. X and Y are the top-left corner.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Contains reports whether p lies inside r. The top and left edges are
// inclusive, the bottom and right edges exclusive, so adjacent rects never
// both contain a point.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.X+r.W && p.Y >= r.Y && p.Y < r.Y+r.H
}

func (r Rect) Area() float64 {
	return r.W * r.H
}

func (r Rect) Center() Point {
	return Point{X: r.X + r.W/2, Y: r.Y + r.H/2}
}

// Zone is a drop zone: a region of the canvas bound to a placement target.
type Zone struct {
	Target placement.Target `json:"target"`
	Bounds Rect             `json:"bounds"`
}

// ZoneProvider supplies the drop zones for the current tree.
type ZoneProvider interface {
	Zones(tree form.Tree) []Zone
}

// StaticZones is a fixed list of zones, independent of the tree. Useful
// when the client measures its own layout and sends the zones along.
type StaticZones []Zone

func (z StaticZones) Zones(form.Tree) []Zone {
	return z
}

// HitTest picks the active zone under p. Among the zones that contain p the
// smallest by area wins; equal areas go to the zone whose centre is nearest
// to p, and exact ties to the zone declared first.
func HitTest(zones []Zone, p Point) (Zone, bool) {
	best := -1
	var bestArea, bestDist float64
	for i, z := range zones {
		if !z.Bounds.Contains(p) {
			continue
		}
		area := z.Bounds.Area()
		dist := z.Bounds.Center().Dist(p)
		if best < 0 || area < bestArea || (area == bestArea && dist < bestDist) {
			best, bestArea, bestDist = i, area, dist
		}
	}
	if best < 0 {
		return Zone{}, false
	}
	return zones[best], true
}

// BoxLayout derives drop zones from the tree with a simple box model: leaves
// are RowHeight tall and span the available width, row members split the row
// width evenly, containers stack their children inside Padding and end with
// an empty slot that accepts appends.
type BoxLayout struct {
	Width     float64
	RowHeight float64
	Padding   float64
	// EdgeRatio is the share of a node's width (height) used by its right
	// (bottom) edge zone.
	EdgeRatio float64
}

// DefaultBoxLayout matches the builder canvas defaults.
func DefaultBoxLayout() BoxLayout {
	return BoxLayout{Width: 800, RowHeight: 40, Padding: 8, EdgeRatio: 0.2}
}

// Zones lists, in document order, the right and bottom edge zones of every
// node, an append slot for each container, grid and empty row, and a root
// zone below the last top-level node.
func (b BoxLayout) Zones(tree form.Tree) []Zone {
	zones, _ := b.layout(tree)
	return zones
}

// Bounds returns the rectangle of every node keyed by id.
func (b BoxLayout) Bounds(tree form.Tree) map[string]Rect {
	_, rects := b.layout(tree)
	return rects
}

func (b BoxLayout) layout(tree form.Tree) ([]Zone, map[string]Rect) {
	var zones []Zone
	rects := make(map[string]Rect)
	y := 0.0
	for _, n := range tree.Nodes() {
		y += b.place(n, 0, y, b.Width, &zones, rects)
	}
	zones = append(zones, Zone{
		Target: placement.AtRoot(-1),
		Bounds: Rect{X: 0, Y: y, W: b.Width, H: b.RowHeight},
	})
	return zones, rects
}

func (b BoxLayout) slotHeight() float64 {
	return b.RowHeight / 2
}

// place lays out n at (x, y) with width w, appends its zones, records its
// rectangle and returns its height.
func (b BoxLayout) place(n *form.Component, x, y, w float64, zones *[]Zone, rects map[string]Rect) float64 {
	var h float64
	start := len(*zones)
	// reserve the node's own edge zones first so they precede its children
	*zones = append(*zones, Zone{}, Zone{})

	switch {
	case n.Type == form.TypeRow:
		h = b.RowHeight
		if len(n.Children) > 0 {
			cw := w / float64(len(n.Children))
			for i, c := range n.Children {
				if ch := b.place(c, x+float64(i)*cw, y, cw, zones, rects); ch > h {
					h = ch
				}
			}
		} else {
			*zones = append(*zones, Zone{
				Target: placement.InsideRow(n.ID, -1),
				Bounds: Rect{X: x, Y: y, W: w, H: h},
			})
		}
	case n.Type.IsLayout():
		inner := w - 2*b.Padding
		cy := y + b.Padding
		for _, c := range n.Children {
			cy += b.place(c, x+b.Padding, cy, inner, zones, rects)
		}
		*zones = append(*zones, Zone{
			Target: placement.InsideContainer(n.ID, -1),
			Bounds: Rect{X: x + b.Padding, Y: cy, W: inner, H: b.slotHeight()},
		})
		h = cy + b.slotHeight() + b.Padding - y
	default:
		h = b.RowHeight
	}

	rects[n.ID] = Rect{X: x, Y: y, W: w, H: h}
	edgeW := w * b.EdgeRatio
	edgeH := h * b.EdgeRatio
	(*zones)[start] = Zone{
		Target: placement.RightOf(n.ID),
		Bounds: Rect{X: x + w - edgeW, Y: y, W: edgeW, H: h},
	}
	(*zones)[start+1] = Zone{
		Target: placement.BottomOf(n.ID),
		Bounds: Rect{X: x, Y: y + h - edgeH, W: w - edgeW, H: edgeH},
	}
	return h
}
