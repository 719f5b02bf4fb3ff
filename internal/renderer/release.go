package renderer

// releaseStack destroys Vulkan objects in reverse creation order. Each object is
// pushed right after it is created, so unwinding after a failure part way through
// setup releases exactly what exists.
type releaseStack struct {
	releasers []func()
}

func (s *releaseStack) push(release func()) {
	s.releasers = append(s.releasers, release)
}

func (s *releaseStack) release() {
	for i := len(s.releasers) - 1; i >= 0; i-- {
		s.releasers[i]()
	}
	s.releasers = nil
}

func (s *releaseStack) size() int {
	return len(s.releasers)
}
