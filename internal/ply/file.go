package ply

import (
	"fmt"
)

// DefaultVersion is the format version written when a File has none.
const DefaultVersion = "1.0"

// Column holds the data of one property for every row of an element.
// Columns are immutable once read and may be shared between files.
type Column struct {
	prop   Property
	format Format

	// width is the fixed row width in bytes, or 0 when rows vary in length
	// (list properties and every ascii column).
	width int
	data  []byte
	ends  []int
	rows  int
}

func newColumn(p Property, format Format, rowsHint int) *Column {
	c := &Column{prop: p, format: format}

	if format.IsBinary() && !p.List {
		c.width = p.Type.Size()
		c.data = make([]byte, 0, c.width*rowsHint)
	} else {
		c.ends = make([]int, 0, rowsHint)
	}

	return c
}

// appendRow adds one encoded row. b is copied.
func (c *Column) appendRow(b []byte) {
	c.data = append(c.data, b...)
	c.rows++

	if c.width == 0 {
		c.ends = append(c.ends, len(c.data))
	}
}

// appendTokens adds one ascii row made of space separated tokens.
func (c *Column) appendTokens(toks []string) {
	for i, t := range toks {
		if i > 0 {
			c.data = append(c.data, ' ')
		}

		c.data = append(c.data, t...)
	}

	c.rows++
	c.ends = append(c.ends, len(c.data))
}

// Property returns the property this column stores.
func (c *Column) Property() Property { return c.prop }

// Name returns the property name.
func (c *Column) Name() string { return c.prop.Name }

// Len returns the number of rows.
func (c *Column) Len() int { return c.rows }

// Format returns the encoding the column data was read with.
func (c *Column) Format() Format { return c.format }

// Size returns the number of encoded data bytes held by the column.
func (c *Column) Size() int { return len(c.data) }

// Row returns the encoded value of row i: raw bytes for binary columns
// (count prefix included for lists), token text for ascii columns.
// The returned slice must not be modified.
func (c *Column) Row(i int) []byte {
	if c.width > 0 {
		off := i * c.width
		return c.data[off : off+c.width : off+c.width]
	}

	start := 0
	if i > 0 {
		start = c.ends[i-1]
	}

	end := c.ends[i]

	return c.data[start:end:end]
}

// Element is a named collection of rows stored as columns.
type Element struct {
	Name    string
	Count   int
	Columns []*Column
}

// NewElement assembles an element from existing columns. Every column must
// have count rows and column names must be unique.
func NewElement(name string, count int, cols ...*Column) (*Element, error) {
	seen := make(map[string]bool, len(cols))

	for _, c := range cols {
		if c.Len() != count {
			return nil, fmt.Errorf("ply: column %q has %d rows, element %q expects %d", c.Name(), c.Len(), name, count)
		}

		if seen[c.Name()] {
			return nil, fmt.Errorf("ply: duplicate column %q in element %q", c.Name(), name)
		}

		seen[c.Name()] = true
	}

	return &Element{Name: name, Count: count, Columns: cols}, nil
}

// Properties returns the element schema in column order.
func (e *Element) Properties() []Property {
	props := make([]Property, len(e.Columns))
	for i, c := range e.Columns {
		props[i] = c.prop
	}

	return props
}

// Column returns the column named name.
func (e *Element) Column(name string) (*Column, bool) {
	for _, c := range e.Columns {
		if c.Name() == name {
			return c, true
		}
	}

	return nil, false
}

// Size returns the encoded data bytes of all columns.
func (e *Element) Size() int {
	n := 0
	for _, c := range e.Columns {
		n += c.Size()
	}

	return n
}

// File is a fully loaded PLY file.
type File struct {
	Format   Format
	Version  string
	Comments []string
	ObjInfo  []string
	Elements []*Element
}

// Element returns the element named name.
func (f *File) Element(name string) (*Element, bool) {
	for _, e := range f.Elements {
		if e.Name == name {
			return e, true
		}
	}

	return nil, false
}

// Header derives the header describing f.
func (f *File) Header() *Header {
	version := f.Version
	if version == "" {
		version = DefaultVersion
	}

	h := &Header{
		Format:   f.Format,
		Version:  version,
		Comments: f.Comments,
		ObjInfo:  f.ObjInfo,
		Elements: make([]ElementDecl, len(f.Elements)),
	}

	for i, e := range f.Elements {
		h.Elements[i] = ElementDecl{Name: e.Name, Count: e.Count, Properties: e.Properties()}
	}

	return h
}

// validate checks that f can be written without changing how any column
// is encoded.
func (f *File) validate() error {
	if _, err := parseFormat(string(f.Format)); err != nil {
		return fmt.Errorf("ply: %w", err)
	}

	for _, e := range f.Elements {
		for _, c := range e.Columns {
			if c.Len() != e.Count {
				return fmt.Errorf("ply: column %q has %d rows, element %q expects %d", c.Name(), c.Len(), e.Name, e.Count)
			}

			if c.format != f.Format {
				return fmt.Errorf("ply: column %q encoding does not match format %s", c.Name(), f.Format)
			}
		}
	}

	return nil
}
