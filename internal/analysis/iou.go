package analysis

// Rect is an axis-aligned bounding box.
type Rect struct {
	X, Y, W, H float64
}

// BBox returns the detection's bounding box.
func (d DetectionRecord) BBox() Rect {
	return Rect{X: d.X, Y: d.Y, W: d.W, H: d.H}
}

// Area returns the box area.
func (r Rect) Area() float64 { return r.W * r.H }

// IoU returns the intersection-over-union of two boxes. Disjoint boxes
// return 0.
func (r Rect) IoU(other Rect) float64 {
	x := max(r.X, other.X)
	y := max(r.Y, other.Y)
	w := min(r.X+r.W, other.X+other.W) - x
	h := min(r.Y+r.H, other.Y+other.H) - y

	if w <= 0 || h <= 0 {
		return 0
	}
	intersection := w * h
	return intersection / (r.Area() + other.Area() - intersection)
}
