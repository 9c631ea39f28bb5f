package ply

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	readBufferSize = 1 << 20

	// maxASCIILine bounds one ascii data row.
	maxASCIILine = 16 << 20

	// maxRowsHint caps up-front column allocation so a forged element count
	// cannot force a huge allocation before any data has been read.
	maxRowsHint = 1 << 20

	// listChunk bounds how much list item data is buffered ahead of the
	// bytes actually read, so a forged list count fails as a short read.
	listChunk = 64 << 10
)

// Read parses a complete PLY file from r into memory.
func Read(r io.Reader) (*File, error) {
	br := bufio.NewReaderSize(r, readBufferSize)

	h, err := readHeader(br)
	if err != nil {
		return nil, err
	}

	f := &File{
		Format:   h.Format,
		Version:  h.Version,
		Comments: h.Comments,
		ObjInfo:  h.ObjInfo,
		Elements: make([]*Element, 0, len(h.Elements)),
	}

	var read func(ElementDecl) (*Element, error)

	if h.Format.IsBinary() {
		order := h.Format.ByteOrder()
		read = func(d ElementDecl) (*Element, error) {
			return readBinaryElement(br, d, h.Format, order)
		}
	} else {
		sc := bufio.NewScanner(br)
		sc.Buffer(make([]byte, 0, 64*1024), maxASCIILine)
		read = func(d ElementDecl) (*Element, error) {
			return readASCIIElement(sc, d)
		}
	}

	for _, d := range h.Elements {
		e, err := read(d)
		if err != nil {
			return nil, err
		}

		f.Elements = append(f.Elements, e)
	}

	return f, nil
}

func rowsHint(n int) int {
	return min(n, maxRowsHint)
}

func newColumns(d ElementDecl, format Format) []*Column {
	cols := make([]*Column, len(d.Properties))
	for i, p := range d.Properties {
		cols[i] = newColumn(p, format, rowsHint(d.Count))
	}

	return cols
}

func dataError(d ElementDecl, row int, format string, args ...any) error {
	return &ParseError{Element: d.Name, Row: row, Msg: fmt.Sprintf(format, args...)}
}

// readFull wraps io.ReadFull, turning short reads into parse errors.
func readFull(r io.Reader, buf []byte, d ElementDecl, row int) error {
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return dataError(d, row, "unexpected end of data")
		}

		return fmt.Errorf("reading element %q: %w", d.Name, err)
	}

	return nil
}

func readBinaryElement(r io.Reader, d ElementDecl, format Format, order binary.ByteOrder) (*Element, error) {
	cols := newColumns(d, format)

	fixed := true
	rowWidth := 0

	for _, p := range d.Properties {
		if p.List {
			fixed = false
			break
		}

		rowWidth += p.Type.Size()
	}

	if fixed {
		// All scalar: read whole rows and slice them.
		row := make([]byte, rowWidth)

		for n := 0; n < d.Count; n++ {
			if err := readFull(r, row, d, n); err != nil {
				return nil, err
			}

			off := 0
			for _, c := range cols {
				c.appendRow(row[off : off+c.width])
				off += c.width
			}
		}

		return &Element{Name: d.Name, Count: d.Count, Columns: cols}, nil
	}

	var scratch []byte

	for n := 0; n < d.Count; n++ {
		for _, c := range cols {
			p := c.prop

			if !p.List {
				scratch = grow(scratch, c.width)
				if err := readFull(r, scratch, d, n); err != nil {
					return nil, err
				}

				c.appendRow(scratch)

				continue
			}

			cw := p.CountType.Size()
			scratch = grow(scratch, cw)

			if err := readFull(r, scratch, d, n); err != nil {
				return nil, err
			}

			count, err := p.CountType.countFromBytes(scratch, order)
			if err != nil {
				return nil, dataError(d, n, "property %q: %v", p.Name, err)
			}

			for need := count * p.Type.Size(); need > 0; {
				chunk := min(need, listChunk)
				start := len(scratch)
				scratch = grow(scratch, start+chunk)

				if err := readFull(r, scratch[start:], d, n); err != nil {
					return nil, err
				}

				need -= chunk
			}

			c.appendRow(scratch)
		}
	}

	return &Element{Name: d.Name, Count: d.Count, Columns: cols}, nil
}

// grow returns buf resized to n bytes, keeping its prefix.
func grow(buf []byte, n int) []byte {
	if cap(buf) < n {
		nb := make([]byte, n, max(n, 2*cap(buf)))
		copy(nb, buf)

		return nb
	}

	return buf[:n]
}

func readASCIIElement(sc *bufio.Scanner, d ElementDecl) (*Element, error) {
	cols := newColumns(d, ASCII)

	if len(cols) == 0 {
		return &Element{Name: d.Name, Count: d.Count, Columns: cols}, nil
	}

	for n := 0; n < d.Count; n++ {
		fields, err := nextFields(sc, d, n)
		if err != nil {
			return nil, err
		}

		pos := 0

		for _, c := range cols {
			p := c.prop

			if pos >= len(fields) {
				return nil, dataError(d, n, "missing value for property %q", p.Name)
			}

			if !p.List {
				if err := p.Type.validateToken(fields[pos]); err != nil {
					return nil, dataError(d, n, "property %q: %v", p.Name, err)
				}

				c.appendTokens(fields[pos : pos+1])
				pos++

				continue
			}

			count, err := p.CountType.countFromToken(fields[pos])
			if err != nil {
				return nil, dataError(d, n, "property %q: %v", p.Name, err)
			}

			end := pos + 1 + count
			if end > len(fields) {
				return nil, dataError(d, n, "property %q: expected %d list items, got %d", p.Name, count, len(fields)-pos-1)
			}

			for _, tok := range fields[pos+1 : end] {
				if err := p.Type.validateToken(tok); err != nil {
					return nil, dataError(d, n, "property %q: %v", p.Name, err)
				}
			}

			c.appendTokens(fields[pos:end])
			pos = end
		}

		if pos != len(fields) {
			return nil, dataError(d, n, "%d unexpected trailing values", len(fields)-pos)
		}
	}

	return &Element{Name: d.Name, Count: d.Count, Columns: cols}, nil
}

// nextFields returns the tokens of the next non-blank line.
func nextFields(sc *bufio.Scanner, d ElementDecl, row int) ([]string, error) {
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) > 0 {
			return fields, nil
		}
	}

	if err := sc.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, dataError(d, row, "line exceeds %d bytes", maxASCIILine)
		}

		return nil, fmt.Errorf("reading element %q: %w", d.Name, err)
	}

	return nil, dataError(d, row, "unexpected end of data")
}
