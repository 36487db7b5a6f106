package collector

// seenSet tracks post IDs accepted during one walk. It only ever grows;
// cross-run dedup is deliberately not this package's job.
type seenSet map[string]struct{}

func (s seenSet) contains(id string) bool {
	_, ok := s[id]
	return ok
}

func (s seenSet) add(id string) {
	s[id] = struct{}{}
}
