package spatial

// BBox is an axis-aligned bounding box. Min and Max are inclusive/exclusive
// respectively along every indexed axis; Z is ignored when the owning
// Structure is two-dimensional.
type BBox struct {
	Min, Max Point
}

// NewBBox builds a BBox from two corner points, normalizing component
// order so Min <= Max on every axis.
func NewBBox(a, b Point) BBox {
	lo := Point{min(a.X, b.X), min(a.Y, b.Y), min(a.Z, b.Z)}
	hi := Point{max(a.X, b.X), max(a.Y, b.Y), max(a.Z, b.Z)}
	return BBox{Min: lo, Max: hi}
}

// Mid returns the center point of the box.
func (b BBox) Mid() Point {
	return Point{
		X: (b.Min.X + b.Max.X) / 2,
		Y: (b.Min.Y + b.Max.Y) / 2,
		Z: (b.Min.Z + b.Max.Z) / 2,
	}
}

// Width, Length and Height report the extent of the box along X, Y and Z.
func (b BBox) Width() float64  { return b.Max.X - b.Min.X }
func (b BBox) Length() float64 { return b.Max.Y - b.Min.Y }
func (b BBox) Height() float64 { return b.Max.Z - b.Min.Z }

// Contains reports whether p lies within the box, treating Max as
// exclusive so that every point in a tree maps to exactly one leaf.
func (b BBox) Contains(p Point, dims int) bool {
	if p.X < b.Min.X || p.X >= b.Max.X {
		return false
	}
	if p.Y < b.Min.Y || p.Y >= b.Max.Y {
		return false
	}
	if dims > 2 && (p.Z < b.Min.Z || p.Z >= b.Max.Z) {
		return false
	}
	return true
}

// Overlaps reports whether b and o share any volume.
func (b BBox) Overlaps(o BBox, dims int) bool {
	if b.Max.X <= o.Min.X || o.Max.X <= b.Min.X {
		return false
	}
	if b.Max.Y <= o.Min.Y || o.Max.Y <= b.Min.Y {
		return false
	}
	if dims > 2 && (b.Max.Z <= o.Min.Z || o.Max.Z <= b.Min.Z) {
		return false
	}
	return true
}

// Contains2d reports whether o is entirely inside b on the X/Y axes,
// ignoring Z. Used by queries run against tubular structures, where the
// Z range is unbounded and traversal decisions are made in 2D.
func (b BBox) Contains2d(o BBox) bool {
	return o.Min.X >= b.Min.X && o.Max.X <= b.Max.X &&
		o.Min.Y >= b.Min.Y && o.Max.Y <= b.Max.Y
}

// Go returns the child box for the given direction: half the size of b,
// on the side of Mid() that dir selects. If tubular is true the Z extent
// is left untouched (the owning tree has no Z subdivision).
func (b BBox) Go(dir Dir, tubular bool) BBox {
	mid := b.Mid()
	out := b

	if dir.PositiveX() {
		out.Min.X = mid.X
	} else {
		out.Max.X = mid.X
	}

	if dir.PositiveY() {
		out.Min.Y = mid.Y
	} else {
		out.Max.Y = mid.Y
	}

	if !tubular {
		if dir.PositiveZ() {
			out.Min.Z = mid.Z
		} else {
			out.Max.Z = mid.Z
		}
	}

	return out
}

// Grow returns the smallest box containing both b and p.
func (b BBox) Grow(p Point) BBox {
	return BBox{
		Min: Point{min(b.Min.X, p.X), min(b.Min.Y, p.Y), min(b.Min.Z, p.Z)},
		Max: Point{max(b.Max.X, p.X), max(b.Max.Y, p.Y), max(b.Max.Z, p.Z)},
	}
}

// Cubeify expands b into the smallest cube (or square, for 2D) that
// contains it, centered on its original midpoint. Entwine-style trees are
// built over cube bounds so every depth halves all axes uniformly.
func (b BBox) Cubeify(dims int) BBox {
	mid := b.Mid()
	radius := b.Width() / 2
	if r := b.Length() / 2; r > radius {
		radius = r
	}
	if dims > 2 {
		if r := b.Height() / 2; r > radius {
			radius = r
		}
	} else {
		radius = max(radius, b.Length()/2)
	}

	out := BBox{
		Min: Point{mid.X - radius, mid.Y - radius, mid.Z - radius},
		Max: Point{mid.X + radius, mid.Y + radius, mid.Z + radius},
	}
	if dims <= 2 {
		out.Min.Z, out.Max.Z = b.Min.Z, b.Max.Z
	}
	return out
}
