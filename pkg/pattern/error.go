package pattern

// Error reports a run that could not complete.
type Error struct {
	Source  string // command or component that failed
	Message string
}

func (e *Error) Type() PatternType { return PatternTypeError }
