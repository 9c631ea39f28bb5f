package ply

import "fmt"

// ParseError reports input that is not a valid PLY file.
type ParseError struct {
	// Line is the 1-based header line, or 0 when the error is in the data section.
	Line int

	// Element and Row locate a data section error.
	Element string
	Row     int

	Msg string
}

func (e *ParseError) Error() string {
	switch {
	case e.Line > 0:
		return fmt.Sprintf("ply: header line %d: %s", e.Line, e.Msg)
	case e.Element != "":
		return fmt.Sprintf("ply: element %q row %d: %s", e.Element, e.Row, e.Msg)
	default:
		return "ply: " + e.Msg
	}
}
