package geocell

// ResolutionForZoom maps a map zoom level (1-21, validated upstream) to the
// grid resolution used for viewport queries. Finer cells at high zoom keep
// nearby markers from merging into one cell; coarser cells at low zoom keep
// the number of scanned cells bounded.
func ResolutionForZoom(zoom int) int {
	switch {
	case zoom >= 18:
		return BaseResolution + 2
	case zoom >= 16:
		return BaseResolution + 1
	case zoom >= 14:
		return BaseResolution
	default:
		return BaseResolution - 1
	}
}
