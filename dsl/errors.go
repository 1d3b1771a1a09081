package dsl

import "fmt"

// SyntaxError reports a malformed token sequence, per §7.
type SyntaxError struct {
	File     string
	Line     int
	Column   int
	Expected string
	Found    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d:%d: syntax error: expected %s, found %s", e.File, e.Line, e.Column, e.Expected, e.Found)
}

// CircularIncludeError reports a re-entered file on the current include
// path, per §4.2.
type CircularIncludeError struct {
	Cycle []string
}

func (e *CircularIncludeError) Error() string {
	msg := "circular include: "
	for i, f := range e.Cycle {
		if i > 0 {
			msg += " -> "
		}
		msg += f
	}
	return msg
}

// ErrorList collects every SyntaxError found while parsing one file,
// matching the "C1-C5 collect all errors" policy of §7.
type ErrorList struct {
	Errors []error
}

func (el *ErrorList) Add(err error) { el.Errors = append(el.Errors, err) }
func (el *ErrorList) HasErrors() bool { return len(el.Errors) > 0 }

func (el *ErrorList) Error() string {
	if len(el.Errors) == 0 {
		return "no errors"
	}
	msg := ""
	for i, e := range el.Errors {
		if i > 0 {
			msg += "\n"
		}
		msg += e.Error()
	}
	return msg
}
