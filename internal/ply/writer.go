package ply

import (
	"bufio"
	"io"
)

const writeBufferSize = 1 << 20

// Write serializes f to w. The header is regenerated from f's elements and
// every column row is written exactly as it was read.
func Write(w io.Writer, f *File) error {
	if err := f.validate(); err != nil {
		return err
	}

	bw := bufio.NewWriterSize(w, writeBufferSize)

	if _, err := bw.WriteString(f.Header().String()); err != nil {
		return err
	}

	binaryData := f.Format.IsBinary()

	for _, e := range f.Elements {
		if !binaryData && len(e.Columns) == 0 {
			continue
		}

		for i := 0; i < e.Count; i++ {
			for j, c := range e.Columns {
				if !binaryData && j > 0 {
					if err := bw.WriteByte(' '); err != nil {
						return err
					}
				}

				if _, err := bw.Write(c.Row(i)); err != nil {
					return err
				}
			}

			if !binaryData {
				if err := bw.WriteByte('\n'); err != nil {
					return err
				}
			}
		}
	}

	return bw.Flush()
}
