package taralli

// Frame is the saved state of one ancestor level: the exact item list
// that was visible there, the raw children it was mapped from, and the
// selection at the moment the level was drilled out of. Frames are pushed
// on drill-forward commit and popped on drill-back commit, strictly LIFO,
// and their contents are restored verbatim so fractional scroll position
// and ordering survive the round trip exactly.
type Frame struct {
	Items         []Item
	Raw           []any
	SelectedIndex int
	CurrentIndex  float64
	SelectedItem  Item
	Crumb         string // render element id parked in the breadcrumb trail
}

// Stack manages drill history for back navigation. Depth is always
// Len() and is the single source of truth for how many ancestor levels
// exist.
type Stack struct {
	frames []Frame
}

// NewStack creates a new empty navigation stack.
func NewStack() *Stack {
	return &Stack{
		frames: make([]Frame, 0),
	}
}

// Push adds a new frame to the stack.
// Called when a drill-forward commits.
func (s *Stack) Push(f Frame) {
	s.frames = append(s.frames, f)
}

// Pop removes and returns the top frame from the stack.
// Returns nil if the stack is empty.
func (s *Stack) Pop() *Frame {
	if len(s.frames) == 0 {
		return nil
	}
	f := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	return &f
}

// Peek returns the top frame without removing it.
// Returns nil if the stack is empty.
func (s *Stack) Peek() *Frame {
	if len(s.frames) == 0 {
		return nil
	}
	return &s.frames[len(s.frames)-1]
}

// IsEmpty returns true if the stack has no frames.
func (s *Stack) IsEmpty() bool {
	return len(s.frames) == 0
}

// Depth returns the number of ancestor levels on the stack.
func (s *Stack) Depth() int {
	return len(s.frames)
}

// Clear removes all frames from the stack.
func (s *Stack) Clear() {
	s.frames = s.frames[:0]
}

// Frames returns a copy of the stack from root outward, for building
// selection paths and persisted snapshots.
func (s *Stack) Frames() []Frame {
	out := make([]Frame, len(s.frames))
	copy(out, s.frames)
	return out
}
