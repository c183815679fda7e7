package cpu

const (
	STACK_LIMIT = 16 // Maximum stack depth
)

// Stack is the call stack of return addresses. Sp is the depth.
type Stack struct {
	Sp   int
	Data [STACK_LIMIT]uint16
}

// Push a return address. The caller checks Full() first.
func (s *Stack) Push(value uint16) (ok bool) {
	if s.Full() {
		return
	}

	s.Data[s.Sp] = value
	s.Sp++
	ok = true
	return
}

// Pop a return address, clearing the vacated slot.
func (s *Stack) Pop() (value uint16, ok bool) {
	value, ok = s.Peek()
	if ok {
		s.Sp--
		s.Data[s.Sp] = 0
	}
	return
}

func (s *Stack) Empty() bool {
	return s.Sp <= 0
}

func (s *Stack) Full() bool {
	return s.Sp >= STACK_LIMIT
}

func (s *Stack) Peek() (value uint16, ok bool) {
	if s.Empty() {
		return
	}

	return s.Data[s.Sp-1], true
}

func (s *Stack) Reset() {
	s.Sp = 0
	clear(s.Data[:])
}
