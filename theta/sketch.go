package theta

import "iter"

// Sketch is the read-only view shared by all Theta sketch variants. It
// generalizes the Kth Minimum Value (KMV) sketch: every retained entry is
// a 64-bit hash below theta, and theta doubles as the effective sampling
// rate of the input stream.
type Sketch interface {
	// IsEmpty returns true if this sketch represents an empty set.
	// Note that this is not the same as having no retained entries:
	// a sketch with a lowered theta and no retained entries still
	// describes a non-empty set.
	IsEmpty() bool

	// Estimate returns the estimated number of distinct items seen
	Estimate() float64

	// LowerBound returns the approximate lower error bound for the given
	// number of standard deviations. Passing 1, 2 or 3 corresponds to
	// confidence intervals of approximately 67%, 95% and 99%.
	LowerBound(numStdDevs uint8) (float64, error)

	// UpperBound returns the approximate upper error bound for the given
	// number of standard deviations. Passing 1, 2 or 3 corresponds to
	// confidence intervals of approximately 67%, 95% and 99%.
	UpperBound(numStdDevs uint8) (float64, error)

	// IsEstimationMode returns true if the sketch is not empty and theta is
	// below MaxTheta. An empty sketch reports false whatever its sampling
	// probability.
	IsEstimationMode() bool

	// Theta returns theta as a fraction from 0 to 1
	Theta() float64

	// Theta64 returns theta on its integer scale, between 0 and math.MaxInt64
	Theta64() uint64

	// NumRetained returns the number of entries currently held
	NumRetained() uint32

	// SeedHash returns the 16-bit fingerprint of the seed that hashed the input
	SeedHash() (uint16, error)

	// IsOrdered returns true if retained entries are ordered
	IsOrdered() bool

	// String returns a human-readable summary of this sketch.
	// If shouldPrintItems is true, the retained hash values are listed too.
	String(shouldPrintItems bool) string

	// All returns an iterator over the retained hash values
	All() iter.Seq[uint64]
}
