package output

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// StdoutPath selects [StdoutWriter] in [New].
const StdoutPath = "-"

// WriteFunc produces the output content into w.
type WriteFunc func(w io.Writer) error

// Writer is the interface for output destinations.
type Writer interface {
	// Write streams the content produced by fn to the destination and
	// returns the number of bytes written.
	Write(fn WriteFunc) (int64, error)
}

// New returns a FileWriter for path, or a StdoutWriter when path is "-".
func New(path string, stdout io.Writer, opts ...FileWriterOption) Writer {
	if path == StdoutPath {
		return NewStdoutWriter(stdout)
	}

	return NewFileWriter(path, opts...)
}

// countingWriter counts the bytes passed through to w.
type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)

	return n, err
}

// StdoutWriter streams output to os.Stdout.
type StdoutWriter struct {
	out io.Writer
}

// NewStdoutWriter creates a writer that sends output to the given writer.
// If w is nil, os.Stdout is used.
func NewStdoutWriter(w io.Writer) *StdoutWriter {
	if w == nil {
		w = os.Stdout
	}

	return &StdoutWriter{out: w}
}

// Write streams the content to stdout.
func (sw *StdoutWriter) Write(fn WriteFunc) (int64, error) {
	cw := &countingWriter{w: sw.out}
	if err := fn(cw); err != nil {
		return cw.n, fmt.Errorf("writing to stdout: %w", err)
	}

	return cw.n, nil
}

// DiscardWriter counts the bytes of the content and drops them.
type DiscardWriter struct{}

// Write runs fn against io.Discard.
func (DiscardWriter) Write(fn WriteFunc) (int64, error) {
	cw := &countingWriter{w: io.Discard}
	err := fn(cw)

	return cw.n, err
}

// FileWriter writes output to a file atomically, creating parent
// directories as needed.
type FileWriter struct {
	path   string
	perm   os.FileMode
	logger *slog.Logger
}

// FileWriterOption configures a FileWriter.
type FileWriterOption func(*FileWriter)

// WithPermissions overrides the default file permissions (0644).
func WithPermissions(perm os.FileMode) FileWriterOption {
	return func(fw *FileWriter) {
		fw.perm = perm
	}
}

// WithLogger sets a logger for the FileWriter.
func WithLogger(logger *slog.Logger) FileWriterOption {
	return func(fw *FileWriter) {
		fw.logger = logger
	}
}

// NewFileWriter creates a writer that writes to the specified file path.
func NewFileWriter(path string, opts ...FileWriterOption) *FileWriter {
	fw := &FileWriter{
		path:   path,
		perm:   0o644,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(fw)
	}

	return fw
}

// Write streams the content to a temporary file in the target directory and
// renames it over the target once complete. On any error the temporary file
// is removed and an existing target is left as it was.
func (fw *FileWriter) Write(fn WriteFunc) (n int64, err error) {
	dir := filepath.Dir(fw.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return 0, fmt.Errorf("creating directory %s: %w", dir, err)
	}

	if _, statErr := os.Stat(fw.path); statErr == nil {
		fw.logger.Warn("overwriting existing file", slog.String("path", fw.path))
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(fw.path)+".tmp-*")
	if err != nil {
		return 0, fmt.Errorf("creating temporary file in %s: %w", dir, err)
	}

	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if err := tmp.Chmod(fw.perm); err != nil {
		return 0, fmt.Errorf("setting permissions on %s: %w", tmpName, err)
	}

	cw := &countingWriter{w: tmp}
	buf := bufio.NewWriterSize(cw, 256*1024)

	if err := fn(buf); err != nil {
		return cw.n, fmt.Errorf("writing file %s: %w", fw.path, err)
	}

	if err := buf.Flush(); err != nil {
		return cw.n, fmt.Errorf("writing file %s: %w", fw.path, err)
	}

	if err := tmp.Sync(); err != nil {
		return cw.n, fmt.Errorf("syncing file %s: %w", fw.path, err)
	}

	if err := tmp.Close(); err != nil {
		return cw.n, fmt.Errorf("closing file %s: %w", fw.path, err)
	}

	if err := os.Rename(tmpName, fw.path); err != nil {
		return cw.n, fmt.Errorf("renaming into %s: %w", fw.path, err)
	}

	fw.logger.Debug("file written", slog.String("path", fw.path), slog.Int64("bytes", cw.n))

	return cw.n, nil
}

// Path returns the output file path.
func (fw *FileWriter) Path() string {
	return fw.path
}
