package engine

// ChooseBatchSize picks how many of the available items to include in the
// next run. Small backlogs are drained whole, large backlogs are clamped to
// the optimal size, and anything in between takes whichever of available or
// optimal is smaller. Pure function, no hidden state.
func ChooseBatchSize(available, minSize, maxSize, optimal int) int {
	if available <= minSize {
		return available
	}
	if available >= maxSize {
		return optimal
	}
	if available < optimal {
		return available
	}
	return optimal
}
