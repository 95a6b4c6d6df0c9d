package activity

// backStack holds live activities, bottom first. It is a plain
// container; all synchronization belongs to the navigator.
type backStack struct {
	entries []Activity
}

func (s *backStack) push(a Activity) {
	s.entries = append(s.entries, a)
}

// pop removes and returns the top activity, nil when empty.
func (s *backStack) pop() Activity {
	if len(s.entries) == 0 {
		return nil
	}
	top := s.entries[len(s.entries)-1]
	s.entries[len(s.entries)-1] = nil
	s.entries = s.entries[:len(s.entries)-1]
	return top
}

// peek returns the top activity without removing it, nil when empty.
func (s *backStack) peek() Activity {
	if len(s.entries) == 0 {
		return nil
	}
	return s.entries[len(s.entries)-1]
}

func (s *backStack) len() int {
	return len(s.entries)
}

func (s *backStack) empty() bool {
	return len(s.entries) == 0
}

// at returns the activity at position i (0 is the bottom).
func (s *backStack) at(i int) Activity {
	if i < 0 || i >= len(s.entries) {
		return nil
	}
	return s.entries[i]
}

// removeAt removes and returns the activity at position i.
func (s *backStack) removeAt(i int) Activity {
	if i < 0 || i >= len(s.entries) {
		return nil
	}
	a := s.entries[i]
	copy(s.entries[i:], s.entries[i+1:])
	s.entries[len(s.entries)-1] = nil
	s.entries = s.entries[:len(s.entries)-1]
	return a
}

// indexOfComponent returns the topmost position holding the named
// component, -1 when absent.
func (s *backStack) indexOfComponent(name string) int {
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].base().component == name {
			return i
		}
	}
	return -1
}

// indexOf returns the position of the given activity, -1 when absent.
func (s *backStack) indexOf(b *Base) int {
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].base() == b {
			return i
		}
	}
	return -1
}
