package timing

import "math"

// Accumulator collects elapsed-time samples (milliseconds) and derives
// population statistics from them. It keeps running sums so every read
// is O(1) regardless of how many samples were pushed.
//
// Reading statistics from an empty accumulator is a caller error; the
// runner always pushes at least one sample before reading.
type Accumulator struct {
	count      int
	min        float64
	max        float64
	sum        float64
	sumSquares float64
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Push appends one elapsed-time sample.
func (a *Accumulator) Push(elapsedMs float64) {
	if a.count == 0 || elapsedMs < a.min {
		a.min = elapsedMs
	}

	if a.count == 0 || elapsedMs > a.max {
		a.max = elapsedMs
	}

	a.count++
	a.sum += elapsedMs
	a.sumSquares += elapsedMs * elapsedMs
}

// Count returns the number of samples pushed so far.
func (a *Accumulator) Count() int {
	return a.count
}

// Min returns the smallest sample.
func (a *Accumulator) Min() float64 {
	return a.min
}

// Max returns the largest sample.
func (a *Accumulator) Max() float64 {
	return a.max
}

// Mean returns the arithmetic mean of all samples.
func (a *Accumulator) Mean() float64 {
	return a.sum / float64(a.count)
}

// StdDev returns the population standard deviation of all samples.
func (a *Accumulator) StdDev() float64 {
	mean := a.Mean()
	variance := a.sumSquares/float64(a.count) - mean*mean

	// Running-sums variance can go slightly negative from floating-point
	// rounding when all samples are (near) identical.
	if variance < 0 {
		variance = 0
	}

	return math.Sqrt(variance)
}

// RelStdDev returns the standard deviation normalized by the mean.
// A zero mean yields 0 rather than a division fault.
func (a *Accumulator) RelStdDev() float64 {
	mean := a.Mean()
	if mean == 0 {
		return 0
	}

	return a.StdDev() / mean
}
