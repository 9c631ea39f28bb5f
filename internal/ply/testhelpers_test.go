package ply

import (
	"bytes"
	"encoding/binary"
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

// binaryPLY builds a binary file with float32 scalar properties named props
// and rows filled from value(row, col).
func binaryPLY(t *testing.T, order binary.ByteOrder, props []string, rows int, value func(r, c int) float32) []byte {
	t.Helper()

	format := "binary_little_endian"
	if order == binary.BigEndian {
		format = "binary_big_endian"
	}

	var buf bytes.Buffer

	buf.WriteString("ply\nformat " + format + " 1.0\n")
	buf.WriteString("element vertex ")
	buf.WriteString(strconv.Itoa(rows))
	buf.WriteString("\n")

	for _, p := range props {
		buf.WriteString("property float " + p + "\n")
	}

	buf.WriteString("end_header\n")

	for r := 0; r < rows; r++ {
		for c := range props {
			require.NoError(t, binary.Write(&buf, order, math.Float32bits(value(r, c))))
		}
	}

	return buf.Bytes()
}
