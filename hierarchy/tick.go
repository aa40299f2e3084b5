package hierarchy

import "math"

// Tick maps a Z coordinate to the integer index of the vertical slice a
// point falls into within a tubular structure, at a given depth and Z
// range. Tubular structures never subdivide Z during tree descent, so
// this tick is the only thing that distinguishes two points which land
// in the same X/Y node but at different heights; it is computed
// independently of tree traversal so it can be unit tested on its own.
func Tick(z float64, depth uint64, zMin, zMax float64) uint64 {
	if zMax <= zMin || depth == 0 {
		return 0
	}
	span := zMax - zMin
	slices := math.Ldexp(1, int(depth)) // 2^depth slices
	rel := (z - zMin) / span
	if rel < 0 {
		rel = 0
	}
	if rel >= 1 {
		rel = math.Nextafter(1, 0)
	}
	tick := uint64(rel * slices)
	if tick >= uint64(slices) {
		tick = uint64(slices) - 1
	}
	return tick
}
