package enrollment

// CounterDelta returns the change a status transition applies to the class enrollment counter.
// An empty prev means the enrollment is being created, an empty next that it is being deleted.
func CounterDelta(prev, next string) int {
	wasActive := prev == StatusActive
	isActive := next == StatusActive
	switch {
	case !wasActive && isActive:
		return 1
	case wasActive && !isActive:
		return -1
	default:
		return 0
	}
}
