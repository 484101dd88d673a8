package services

// callbackSlot is a single assignable callback. The version changes on every
// assignment so that a queued replay can tell whether its target is still
// installed. The owner guards the slot with its own mutex.
type callbackSlot[T any] struct {
	fn      func(T)
	version uint64
}

func (s *callbackSlot[T]) set(fn func(T)) uint64 {
	s.fn = fn
	s.version++
	return s.version
}

func (s *callbackSlot[T]) attached() bool {
	return s.fn != nil
}

// current returns the callback if version is still the installed one.
func (s *callbackSlot[T]) current(version uint64) func(T) {
	if s.version != version {
		return nil
	}
	return s.fn
}

// deliver invokes fn with v if fn is set.
func deliver[T any](fn func(T), v T) {
	if fn != nil {
		fn(v)
	}
}
