package core

import "sync"

// Selection tracks which plans are shown on the timeline. Membership is
// ordered by when a plan joined, and that order drives color assignment.
//
// Until the user touches the selection, the first refresh that finds it
// empty selects every valid plan. After that a refresh only prunes plans
// that disappeared; new plans are never added automatically. Any explicit
// toggle, select-all or clear marks the selection touched for good.
//
// A Selection is safe for concurrent use. The change callback runs after the
// internal lock is released.
type Selection struct {
	mu       sync.Mutex
	ids      []string
	touched  bool
	onChange func([]string)
}

// NewSelection returns an empty, untouched selection.
func NewSelection() *Selection {
	return &Selection{}
}

// OnChange registers a callback invoked with the new membership after every
// change. Passing nil removes the callback.
func (s *Selection) OnChange(fn func([]string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// Sync reconciles the selection against the ids of the current plan list.
func (s *Selection) Sync(validIDs []string) {
	s.mu.Lock()
	valid := make(map[string]struct{}, len(validIDs))
	for _, id := range validIDs {
		valid[id] = struct{}{}
	}
	if !s.touched && len(s.ids) == 0 {
		next := make([]string, 0, len(validIDs))
		seen := make(map[string]struct{}, len(validIDs))
		for _, id := range validIDs {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			next = append(next, id)
		}
		s.replaceAndUnlock(next)
		return
	}
	next := make([]string, 0, len(s.ids))
	for _, id := range s.ids {
		if _, ok := valid[id]; ok {
			next = append(next, id)
		}
	}
	if len(next) == len(s.ids) {
		s.mu.Unlock()
		return
	}
	s.replaceAndUnlock(next)
}

// Toggle flips membership of id. A newly added id goes to the end.
func (s *Selection) Toggle(id string) {
	s.mu.Lock()
	s.touched = true
	next := make([]string, 0, len(s.ids)+1)
	removed := false
	for _, existing := range s.ids {
		if existing == id {
			removed = true
			continue
		}
		next = append(next, existing)
	}
	if !removed {
		next = append(next, id)
	}
	s.replaceAndUnlock(next)
}

// SelectAll selects every id, keeping existing members in place and
// appending the rest in the supplied order.
func (s *Selection) SelectAll(ids []string) {
	s.mu.Lock()
	s.touched = true
	next := append([]string(nil), s.ids...)
	have := make(map[string]struct{}, len(next))
	for _, id := range next {
		have[id] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := have[id]; ok {
			continue
		}
		have[id] = struct{}{}
		next = append(next, id)
	}
	s.replaceAndUnlock(next)
}

// Clear empties the selection.
func (s *Selection) Clear() {
	s.mu.Lock()
	s.touched = true
	s.replaceAndUnlock(nil)
}

// Set replaces membership wholesale, as the renderer does through its
// selection callback.
func (s *Selection) Set(ids []string) {
	s.mu.Lock()
	s.touched = true
	next := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		next = append(next, id)
	}
	s.replaceAndUnlock(next)
}

// Selected returns a copy of the ordered membership.
func (s *Selection) Selected() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.ids...)
}

// Contains reports whether id is selected.
func (s *Selection) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.ids {
		if existing == id {
			return true
		}
	}
	return false
}

// Touched reports whether the user has ever changed the selection.
func (s *Selection) Touched() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touched
}

// replaceAndUnlock stores ids, releases s.mu and then notifies. The caller
// must hold s.mu.
func (s *Selection) replaceAndUnlock(ids []string) {
	s.ids = ids
	fn := s.onChange
	snapshot := append([]string(nil), ids...)
	s.mu.Unlock()
	if fn != nil {
		fn(snapshot)
	}
}
