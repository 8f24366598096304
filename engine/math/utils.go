package math

import "golang.org/x/exp/constraints"

// Clamp limits f to [low, high].
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

// ClampPair clamps a width/height pair against per-axis bounds.
func ClampPair[T constraints.Integer](width, height, minWidth, minHeight, maxWidth, maxHeight T) (T, T) {
	return Clamp(width, minWidth, maxWidth), Clamp(height, minHeight, maxHeight)
}
