package limiter

// timeline is a chronological queue of admissions. Units admitted by one
// call share a single run, so a multi-unit acquire costs one entry while
// the queue still counts one timestamp per unit.
type timeline[T any] struct {
	runs  []run[T]
	units uint32
}

type run[T any] struct {
	at    T
	units uint32
}

func (tl *timeline[T]) push(at T, units uint32) {
	if units == 0 {
		return
	}
	tl.runs = append(tl.runs, run[T]{at: at, units: units})
	tl.units += units
}

// trim drops runs from the front while stale reports true. Runs are in
// insertion order, so the first fresh run ends the scan.
func (tl *timeline[T]) trim(stale func(at T) bool) {
	i := 0
	for i < len(tl.runs) && stale(tl.runs[i].at) {
		tl.units -= tl.runs[i].units
		i++
	}
	if i == 0 {
		return
	}
	if i == len(tl.runs) {
		tl.runs = tl.runs[:0]
		return
	}
	clear(tl.runs[:i])
	tl.runs = tl.runs[i:]
}

func (tl *timeline[T]) oldest() (T, bool) {
	if len(tl.runs) == 0 {
		var zero T
		return zero, false
	}
	return tl.runs[0].at, true
}

func (tl *timeline[T]) newest() (T, bool) {
	if len(tl.runs) == 0 {
		var zero T
		return zero, false
	}
	return tl.runs[len(tl.runs)-1].at, true
}

func (tl *timeline[T]) len() uint32 {
	return tl.units
}
