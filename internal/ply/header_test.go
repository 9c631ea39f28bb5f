package ply

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const splatHeader = `ply
format binary_little_endian 1.0
comment generated by a trainer
obj_info scene 42
element vertex 3
property float x
property float32 y
property double z
property uchar red
property list uchar int vertex_indices
element camera 1
property float fov
end_header
`

func TestReadHeader_Splat(t *testing.T) {
	h, err := ReadHeader(strings.NewReader(splatHeader))
	require.NoError(t, err)

	want := &Header{
		Format:   BinaryLittleEndian,
		Version:  "1.0",
		Comments: []string{"generated by a trainer"},
		ObjInfo:  []string{"scene 42"},
		Elements: []ElementDecl{
			{Name: "vertex", Count: 3, Properties: []Property{
				{Name: "x", Type: Float32, typeName: "float"},
				{Name: "y", Type: Float32, typeName: "float32"},
				{Name: "z", Type: Float64, typeName: "double"},
				{Name: "red", Type: Uint8, typeName: "uchar"},
				{Name: "vertex_indices", Type: Int32, List: true, CountType: Uint8, typeName: "int", countName: "uchar"},
			}},
			{Name: "camera", Count: 1, Properties: []Property{
				{Name: "fov", Type: Float32, typeName: "float"},
			}},
		},
	}

	if diff := cmp.Diff(want, h, cmp.AllowUnexported(Property{})); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}
}

func TestHeader_StringRoundTrip(t *testing.T) {
	h, err := ReadHeader(strings.NewReader(splatHeader))
	require.NoError(t, err)
	assert.Equal(t, splatHeader, h.String())
}

func TestHeader_KeepsTypeSpelling(t *testing.T) {
	h, err := ReadHeader(strings.NewReader(splatHeader))
	require.NoError(t, err)

	v, ok := h.Element("vertex")
	require.True(t, ok)
	assert.Equal(t, "property float32 y", v.Properties[1].Decl())
	assert.Equal(t, "property list uchar int vertex_indices", v.Properties[4].Decl())
}

func TestReadHeader_CRLF(t *testing.T) {
	in := strings.ReplaceAll("ply\nformat ascii 1.0\nelement vertex 0\nproperty float x\nend_header\n", "\n", "\r\n")

	h, err := ReadHeader(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, ASCII, h.Format)
	require.Len(t, h.Elements, 1)
	assert.Equal(t, "x", h.Elements[0].Properties[0].Name)
}

func TestReadHeader_IndentedLines(t *testing.T) {
	in := "ply\nformat ascii 1.0\nelement vertex 0\nproperty float x\n  property float f_rest_0\n\tcomment  two spaces\nend_header\n"

	h, err := ReadHeader(strings.NewReader(in))
	require.NoError(t, err)

	v, ok := h.Element("vertex")
	require.True(t, ok)
	require.Len(t, v.Properties, 2)
	assert.Equal(t, "f_rest_0", v.Properties[1].Name)
	assert.Equal(t, []string{" two spaces"}, h.Comments)
}

func TestReadHeader_TabSeparated(t *testing.T) {
	in := "ply\nformat\tascii 1.0\nelement\tvertex 1\nproperty\tlist uchar\tint idx\nobj_info\tscene\nend_header\n"

	h, err := ReadHeader(strings.NewReader(in))
	require.NoError(t, err)

	v, ok := h.Element("vertex")
	require.True(t, ok)
	assert.Equal(t, 1, v.Count)
	require.Len(t, v.Properties, 1)
	assert.True(t, v.Properties[0].List)
	assert.Equal(t, []string{"scene"}, h.ObjInfo)
}

func TestReadHeader_EndWithoutNewline(t *testing.T) {
	h, err := ReadHeader(strings.NewReader("ply\nformat ascii 1.0\nelement vertex 0\nend_header"))
	require.NoError(t, err)
	assert.Len(t, h.Elements, 1)
}

func TestReadHeader_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", "unexpected end of file"},
		{"bad magic", "plx\n", "magic"},
		{"no format", "ply\nend_header\n", "missing format"},
		{"unknown format", "ply\nformat binary_middle_endian 1.0\nend_header\n", "unknown format"},
		{"bad version", "ply\nformat ascii abc\nend_header\n", "invalid format version"},
		{"unsupported version", "ply\nformat ascii 2.0\nend_header\n", "unsupported format version"},
		{"duplicate format", "ply\nformat ascii 1.0\nformat ascii 1.0\nend_header\n", "duplicate format"},
		{"property first", "ply\nformat ascii 1.0\nproperty float x\nend_header\n", "before any element"},
		{"bad count", "ply\nformat ascii 1.0\nelement vertex -1\nend_header\n", "invalid element count"},
		{"unknown type", "ply\nformat ascii 1.0\nelement vertex 1\nproperty half x\nend_header\n", "unknown property type"},
		{"float count", "ply\nformat ascii 1.0\nelement f 1\nproperty list float int idx\nend_header\n", "integer type"},
		{"duplicate property", "ply\nformat ascii 1.0\nelement vertex 1\nproperty float x\nproperty float x\nend_header\n", "duplicate property"},
		{"unknown keyword", "ply\nformat ascii 1.0\nvertices 3\nend_header\n", "unexpected header keyword"},
		{"truncated", "ply\nformat ascii 1.0\nelement vertex 1\n", "unexpected end of file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadHeader(strings.NewReader(tt.in))
			require.Error(t, err)

			var pe *ParseError
			require.True(t, errors.As(err, &pe), "expected *ParseError, got %T", err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestReadHeader_SameNameInDifferentElements(t *testing.T) {
	in := "ply\nformat ascii 1.0\nelement a 0\nproperty float x\nelement b 0\nproperty float x\nend_header\n"

	_, err := ReadHeader(strings.NewReader(in))
	require.NoError(t, err)
}

func TestParseScalarType(t *testing.T) {
	tests := []struct {
		name string
		want ScalarType
		size int
	}{
		{"char", Int8, 1},
		{"int8", Int8, 1},
		{"uchar", Uint8, 1},
		{"uint8", Uint8, 1},
		{"short", Int16, 2},
		{"ushort", Uint16, 2},
		{"int", Int32, 4},
		{"uint32", Uint32, 4},
		{"float", Float32, 4},
		{"double", Float64, 8},
		{"float64", Float64, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseScalarType(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.size, got.Size())
		})
	}

	_, err := ParseScalarType("int64")
	assert.Error(t, err)
}

func TestProperty_ClassicSpellingByDefault(t *testing.T) {
	assert.Equal(t, "property float opacity", NewProperty("opacity", Float32).Decl())
	assert.Equal(t, "property list uchar uint idx", NewListProperty("idx", Uint8, Uint32).Decl())
}
