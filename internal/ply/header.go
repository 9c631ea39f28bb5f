package ply

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

const (
	magic     = "ply"
	endHeader = "end_header"

	// supportedVersions constrains the "format" line version.
	supportedVersions = "^1"

	// maxHeaderLine bounds a single header line so a binary blob without
	// newlines cannot grow the buffer without limit.
	maxHeaderLine = 64 * 1024
)

// Format is the encoding mode of the data section.
type Format string

// Supported formats.
const (
	ASCII              Format = "ascii"
	BinaryLittleEndian Format = "binary_little_endian"
	BinaryBigEndian    Format = "binary_big_endian"
)

// IsBinary reports whether f is one of the binary formats.
func (f Format) IsBinary() bool {
	return f == BinaryLittleEndian || f == BinaryBigEndian
}

// ByteOrder returns the byte order of a binary format, or nil for ascii.
func (f Format) ByteOrder() binary.ByteOrder {
	switch f {
	case BinaryLittleEndian:
		return binary.LittleEndian
	case BinaryBigEndian:
		return binary.BigEndian
	default:
		return nil
	}
}

func parseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case ASCII, BinaryLittleEndian, BinaryBigEndian:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q", s)
	}
}

// Property describes one named, typed per-row attribute of an element.
type Property struct {
	Name string

	// Type is the value type; for lists the type of each item.
	Type ScalarType

	// List marks a variable-length list property.
	List bool

	// CountType is the list length type. Zero for scalar properties.
	CountType ScalarType

	// typeName and countName keep the header spelling ("float" vs "float32").
	typeName  string
	countName string
}

// NewProperty returns a scalar property using the classic type spelling.
func NewProperty(name string, t ScalarType) Property {
	return Property{Name: name, Type: t}
}

// NewListProperty returns a list property using the classic type spellings.
func NewListProperty(name string, count, item ScalarType) Property {
	return Property{Name: name, Type: item, List: true, CountType: count}
}

// TypeName returns the value type as spelled in the header.
func (p Property) TypeName() string {
	if p.typeName != "" {
		return p.typeName
	}

	return p.Type.String()
}

// CountTypeName returns the list count type as spelled in the header.
func (p Property) CountTypeName() string {
	if p.countName != "" {
		return p.countName
	}

	return p.CountType.String()
}

// Decl returns the property's header line without the trailing newline.
func (p Property) Decl() string {
	if p.List {
		return fmt.Sprintf("property list %s %s %s", p.CountTypeName(), p.TypeName(), p.Name)
	}

	return fmt.Sprintf("property %s %s", p.TypeName(), p.Name)
}

// ElementDecl is the header declaration of an element.
type ElementDecl struct {
	Name       string
	Count      int
	Properties []Property
}

// Header is the parsed PLY header.
type Header struct {
	Format   Format
	Version  string
	Comments []string
	ObjInfo  []string
	Elements []ElementDecl
}

// Element returns the declaration named name.
func (h *Header) Element(name string) (*ElementDecl, bool) {
	for i := range h.Elements {
		if h.Elements[i].Name == name {
			return &h.Elements[i], true
		}
	}

	return nil, false
}

// String renders the header exactly as Write emits it.
func (h *Header) String() string {
	var b strings.Builder

	b.WriteString(magic + "\n")
	fmt.Fprintf(&b, "format %s %s\n", h.Format, h.Version)

	for _, c := range h.Comments {
		b.WriteString(lineWithText("comment", c))
	}

	for _, o := range h.ObjInfo {
		b.WriteString(lineWithText("obj_info", o))
	}

	for _, e := range h.Elements {
		fmt.Fprintf(&b, "element %s %d\n", e.Name, e.Count)

		for _, p := range e.Properties {
			b.WriteString(p.Decl())
			b.WriteByte('\n')
		}
	}

	b.WriteString(endHeader + "\n")

	return b.String()
}

func lineWithText(keyword, text string) string {
	if text == "" {
		return keyword + "\n"
	}

	return keyword + " " + text + "\n"
}

// ReadHeader parses a PLY header from r and stops after the end_header line.
func ReadHeader(r io.Reader) (*Header, error) {
	return readHeader(bufio.NewReader(r))
}

func readHeader(br *bufio.Reader) (*Header, error) {
	hp := &headerParser{br: br}

	return hp.parse()
}

type headerParser struct {
	br   *bufio.Reader
	line int
}

func (hp *headerParser) errorf(format string, args ...any) error {
	return &ParseError{Line: hp.line, Msg: fmt.Sprintf(format, args...)}
}

// next returns the next header line without its line terminator.
func (hp *headerParser) next() (string, error) {
	var buf []byte

	for {
		chunk, err := hp.br.ReadSlice('\n')
		buf = append(buf, chunk...)

		if len(buf) > maxHeaderLine {
			hp.line++
			return "", hp.errorf("header line exceeds %d bytes", maxHeaderLine)
		}

		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				if len(buf) > 0 {
					break
				}

				hp.line++

				return "", hp.errorf("unexpected end of file in header")
			}

			return "", err
		}

		break
	}

	hp.line++

	return strings.TrimRight(string(buf), "\r\n"), nil
}

func (hp *headerParser) parse() (*Header, error) {
	first, err := hp.next()
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(first) != magic {
		return nil, hp.errorf("missing %q magic", magic)
	}

	h := &Header{}
	seenFormat := false

	var names map[string]bool

	for {
		line, err := hp.next()
		if err != nil {
			return nil, err
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			// Blank header lines are tolerated.
			continue
		}

		keyword := fields[0]
		fields = fields[1:]

		switch keyword {
		case "format":
			if seenFormat {
				return nil, hp.errorf("duplicate format line")
			}

			if err := hp.parseFormatLine(h, fields); err != nil {
				return nil, err
			}

			seenFormat = true

		case "comment":
			h.Comments = append(h.Comments, textAfter(line, keyword))

		case "obj_info":
			h.ObjInfo = append(h.ObjInfo, textAfter(line, keyword))

		case "element":
			if !seenFormat {
				return nil, hp.errorf("element declared before format line")
			}

			e, err := hp.parseElementLine(fields)
			if err != nil {
				return nil, err
			}

			h.Elements = append(h.Elements, e)
			names = make(map[string]bool)

		case "property":
			if len(h.Elements) == 0 {
				return nil, hp.errorf("property declared before any element")
			}

			p, err := hp.parsePropertyLine(fields)
			if err != nil {
				return nil, err
			}

			if names[p.Name] {
				return nil, hp.errorf("duplicate property %q", p.Name)
			}

			names[p.Name] = true
			e := &h.Elements[len(h.Elements)-1]
			e.Properties = append(e.Properties, p)

		case endHeader:
			if !seenFormat {
				return nil, hp.errorf("missing format line")
			}

			return h, nil

		default:
			return nil, hp.errorf("unexpected header keyword %q", keyword)
		}
	}
}

// textAfter returns the free text following keyword on line, minus the
// single separator after the keyword.
func textAfter(line, keyword string) string {
	rest := strings.TrimLeft(line, " \t")[len(keyword):]
	if rest != "" && (rest[0] == ' ' || rest[0] == '\t') {
		rest = rest[1:]
	}

	return rest
}

func (hp *headerParser) parseFormatLine(h *Header, fields []string) error {
	if len(fields) != 2 {
		return hp.errorf("malformed format line")
	}

	f, err := parseFormat(fields[0])
	if err != nil {
		return hp.errorf("%v", err)
	}

	if err := checkVersion(fields[1]); err != nil {
		return hp.errorf("%v", err)
	}

	h.Format = f
	h.Version = fields[1]

	return nil
}

func checkVersion(v string) error {
	ver, err := semver.NewVersion(v)
	if err != nil {
		return fmt.Errorf("invalid format version %q: %w", v, err)
	}

	c, err := semver.NewConstraint(supportedVersions)
	if err != nil {
		return err
	}

	if !c.Check(ver) {
		return fmt.Errorf("unsupported format version %q", v)
	}

	return nil
}

func (hp *headerParser) parseElementLine(fields []string) (ElementDecl, error) {
	if len(fields) != 2 {
		return ElementDecl{}, hp.errorf("malformed element line")
	}

	n, err := strconv.Atoi(fields[1])
	if err != nil || n < 0 {
		return ElementDecl{}, hp.errorf("invalid element count %q", fields[1])
	}

	return ElementDecl{Name: fields[0], Count: n}, nil
}

func (hp *headerParser) parsePropertyLine(fields []string) (Property, error) {
	if len(fields) > 0 && fields[0] == "list" {
		if len(fields) != 4 {
			return Property{}, hp.errorf("malformed list property line")
		}

		ct, err := ParseScalarType(fields[1])
		if err != nil {
			return Property{}, hp.errorf("%v", err)
		}

		if !ct.IsInteger() {
			return Property{}, hp.errorf("list count type %q must be an integer type", fields[1])
		}

		it, err := ParseScalarType(fields[2])
		if err != nil {
			return Property{}, hp.errorf("%v", err)
		}

		return Property{
			Name:      fields[3],
			Type:      it,
			List:      true,
			CountType: ct,
			typeName:  fields[2],
			countName: fields[1],
		}, nil
	}

	if len(fields) != 2 {
		return Property{}, hp.errorf("malformed property line")
	}

	t, err := ParseScalarType(fields[0])
	if err != nil {
		return Property{}, hp.errorf("%v", err)
	}

	return Property{Name: fields[1], Type: t, typeName: fields[0]}, nil
}
