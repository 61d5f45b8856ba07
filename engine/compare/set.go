// Package compare keeps the bounded comparison selection and builds the
// side-by-side comparison matrix.
package compare

import (
	"errors"
	"sync"
)

// MaxSelected is the most cars a comparison can hold.
const MaxSelected = 3

// ErrCapacityExceeded is returned when a fourth distinct car is added.
var ErrCapacityExceeded = errors.New("compare: selection is full")

// ToggleResult reports the outcome of Toggle.
type ToggleResult struct {
	// Selected is true when id is in the set after the call.
	Selected         bool `json:"selected"`
	CapacityExceeded bool `json:"capacityExceeded"`
}

// Set is a de-duplicated selection of car ids bounded by MaxSelected.
// IDs are listed in the order they were added.
type Set struct {
	mu  sync.Mutex
	ids []int
}

// NewSet returns an empty selection.
func NewSet() *Set {
	return &Set{}
}

// Toggle removes id if present, otherwise adds it. Adding to a full set is
// rejected and leaves the set unchanged.
func (s *Set) Toggle(id int) ToggleResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.index(id); i >= 0 {
		s.ids = append(s.ids[:i], s.ids[i+1:]...)
		return ToggleResult{}
	}
	if len(s.ids) >= MaxSelected {
		return ToggleResult{CapacityExceeded: true}
	}
	s.ids = append(s.ids, id)
	return ToggleResult{Selected: true}
}

// TryAdd adds id unless the set is full. Adding a present id is a no-op.
func (s *Set) TryAdd(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index(id) >= 0 {
		return nil
	}
	if len(s.ids) >= MaxSelected {
		return ErrCapacityExceeded
	}
	s.ids = append(s.ids, id)
	return nil
}

// Clear empties the selection.
func (s *Set) Clear() {
	s.mu.Lock()
	s.ids = nil
	s.mu.Unlock()
}

// Contains reports whether id is selected.
func (s *Set) Contains(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index(id) >= 0
}

// Size returns the number of selected ids.
func (s *Set) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// IDs returns a copy of the selected ids in insertion order.
func (s *Set) IDs() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int{}, s.ids...)
}

func (s *Set) index(id int) int {
	for i, v := range s.ids {
		if v == id {
			return i
		}
	}
	return -1
}
