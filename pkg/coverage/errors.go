package coverage

import (
	"errors"
	"fmt"
)

// Sentinels matched by the typed errors below via errors.Is.
var (
	ErrNotFound  = errors.New("not found")
	ErrParse     = errors.New("malformed result set")
	ErrIO        = errors.New("write failed")
	ErrCollision = errors.New("composite key collision")
)

// NotFoundError reports an expected directory or result file that is absent.
type NotFoundError struct {
	Path string
	Err  error
}

func (e *NotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Path + ": not found"
}

func (e *NotFoundError) Unwrap() error { return e.Err }

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ParseError reports a result file that is not valid JSON or whose top level
// is not an object keyed by process name.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// IOError reports a failure while persisting the combined result set.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool { return target == ErrIO }

// CollisionError is returned under the "error" collision policy when two
// discovered files produce the same composite key.
type CollisionError struct {
	Collision Collision
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("key %q from %s already written by %s",
		e.Collision.Key, e.Collision.Current, e.Collision.Previous)
}

func (e *CollisionError) Is(target error) bool { return target == ErrCollision }
