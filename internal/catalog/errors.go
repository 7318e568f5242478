package catalog

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// CompileError is a catalog error with its source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ErrorList collects every error found in one catalog.
type ErrorList []*CompileError

func (l ErrorList) Error() string {
	msgs := make([]string, len(l))
	for i, e := range l {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "\n")
}

// err returns l as an error, or nil when empty.
func (l ErrorList) err() error {
	if len(l) == 0 {
		return nil
	}
	return l
}

// fromCUE converts CUE evaluation errors, keeping their positions.
func fromCUE(err error) ErrorList {
	var out ErrorList
	for _, e := range errors.Errors(err) {
		ce := &CompileError{Field: "cue", Message: e.Error()}
		if positions := errors.Positions(e); len(positions) > 0 {
			ce.Pos = positions[0]
		}
		out = append(out, ce)
	}
	if len(out) == 0 && err != nil {
		out = append(out, &CompileError{Field: "cue", Message: err.Error()})
	}
	return out
}
