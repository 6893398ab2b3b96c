package bowgo

// docStore keeps term-frequency vectors in insertion order with O(1) key
// lookup. Synchronization is owned by the catalog; the store itself is not
// safe for concurrent use.
type docStore struct {
	keys     []string
	vectors  [][]float32
	position map[string]int
}

func newDocStore() *docStore {
	return &docStore{
		position: make(map[string]int),
	}
}

func (s *docStore) len() int {
	return len(s.keys)
}

func (s *docStore) has(key string) bool {
	_, ok := s.position[key]
	return ok
}

// get returns the stored vector for key. The slice is shared; callers must
// not mutate it.
func (s *docStore) get(key string) ([]float32, bool) {
	i, ok := s.position[key]
	if !ok {
		return nil, false
	}
	return s.vectors[i], true
}

// put appends a document. The vector is retained without copying.
// Callers must have checked for duplicates.
func (s *docStore) put(key string, tf []float32) {
	s.position[key] = len(s.keys)
	s.keys = append(s.keys, key)
	s.vectors = append(s.vectors, tf)
}

// delete removes a document, preserving the insertion order of the rest.
func (s *docStore) delete(key string) bool {
	i, ok := s.position[key]
	if !ok {
		return false
	}

	s.keys = append(s.keys[:i], s.keys[i+1:]...)
	s.vectors = append(s.vectors[:i], s.vectors[i+1:]...)
	delete(s.position, key)

	for j := i; j < len(s.keys); j++ {
		s.position[s.keys[j]] = j
	}

	return true
}

// at returns the i-th document in insertion order.
func (s *docStore) at(i int) (string, []float32) {
	return s.keys[i], s.vectors[i]
}

// keyList returns the keys in insertion order as a fresh slice.
func (s *docStore) keyList() []string {
	return append([]string(nil), s.keys...)
}
