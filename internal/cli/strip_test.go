package cli

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/plystrip/internal/filter"
)

const asciiSplat = `ply
format ascii 1.0
comment captured with a phone
element vertex 2
property float x
property float y
property float z
property float f_dc_0
property float f_rest_0
property float f_rest_1
property float f_rest_2
property float opacity
end_header
0 1 2 0.5 0.1 0.2 0.3 0.9
3 4 5 0.6 0.4 0.5 0.6 0.8
`

const plainCloud = `ply
format ascii 1.0
element vertex 1
property float x
property float y
property float z
property float opacity
end_header
1 2 3 0.5
`

// writePLY writes content to name inside a fresh temp dir and returns the
// path.
func writePLY(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644)) //nolint:gosec // test

	return path
}

// binarySplat returns a big endian file with x, f_rest_0..2 and opacity.
func binarySplat(t *testing.T, rows int) []byte {
	t.Helper()

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "ply\nformat binary_big_endian 1.0\nelement vertex %d\n", rows)
	buf.WriteString("property float x\nproperty float f_rest_0\nproperty float f_rest_1\nproperty float f_rest_2\nproperty uchar opacity\nend_header\n")

	for r := 0; r < rows; r++ {
		for c := 0; c < 4; c++ {
			require.NoError(t, binary.Write(&buf, binary.BigEndian, float32(r*10+c)))
		}

		buf.WriteByte(byte(r))
	}

	return buf.Bytes()
}

func TestStrip_ASCII(t *testing.T) {
	in := writePLY(t, "scene.ply", asciiSplat)
	out := filepath.Join(filepath.Dir(in), "scene-dc.ply")

	stdout, _, err := executeCommand("--quiet", in, out)
	require.NoError(t, err)
	assert.Empty(t, stdout)

	got, err := os.ReadFile(out) //nolint:gosec // test
	require.NoError(t, err)
	assert.Equal(t, `ply
format ascii 1.0
comment captured with a phone
element vertex 2
property float x
property float y
property float z
property float f_dc_0
property float opacity
end_header
0 1 2 0.5 0.9
3 4 5 0.6 0.8
`, string(got))
}

func TestStrip_BinaryBigEndian(t *testing.T) {
	in := writePLY(t, "big.ply", string(binarySplat(t, 3)))
	out := filepath.Join(filepath.Dir(in), "out.ply")

	_, _, err := executeCommand("--quiet", in, out)
	require.NoError(t, err)

	got, err := os.ReadFile(out) //nolint:gosec // test
	require.NoError(t, err)

	header := "ply\nformat binary_big_endian 1.0\nelement vertex 3\nproperty float x\nproperty uchar opacity\nend_header\n"
	require.True(t, bytes.HasPrefix(got, []byte(header)))

	body := got[len(header):]
	require.Len(t, body, 3*5)

	for r := 0; r < 3; r++ {
		row := body[r*5 : r*5+5]
		assert.Equal(t, float32(r*10), math.Float32frombits(binary.BigEndian.Uint32(row[:4])))
		assert.Equal(t, byte(r), row[4])
	}
}

func TestStrip_ConfigErrorExitCode(t *testing.T) {
	in := writePLY(t, "plain.ply", plainCloud)
	out := filepath.Join(filepath.Dir(in), "out.ply")

	_, _, err := executeCommand("--quiet", in, out)
	requireExitCode(t, err, exitConfig)
	assert.ErrorIs(t, err, filter.ErrNoChannelsMatched)

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr), "no output may be written when nothing matched")
}

func TestStrip_AllChannelsExitCode(t *testing.T) {
	in := writePLY(t, "scene.ply", asciiSplat)

	_, _, err := executeCommand("--quiet", "--exclude", ".", in, filepath.Join(filepath.Dir(in), "out.ply"))
	requireExitCode(t, err, exitConfig)
	assert.ErrorIs(t, err, filter.ErrAllChannelsMatched)
}

func TestStrip_MissingInput(t *testing.T) {
	dir := t.TempDir()

	_, _, err := executeCommand("--quiet", filepath.Join(dir, "missing.ply"), filepath.Join(dir, "out.ply"))
	requireExitCode(t, err, exitFailed)
	assert.Contains(t, err.Error(), "opening input")
}

func TestStrip_MalformedInput(t *testing.T) {
	in := writePLY(t, "bad.ply", "ply\nformat ascii 1.0\nelement vertex 2\nproperty float x\nend_header\n1\n")

	_, _, err := executeCommand("--quiet", in, filepath.Join(filepath.Dir(in), "out.ply"))
	requireExitCode(t, err, exitFailed)
}

func TestStrip_ReapplyFails(t *testing.T) {
	in := writePLY(t, "scene.ply", asciiSplat)
	out := filepath.Join(filepath.Dir(in), "out.ply")

	_, _, err := executeCommand("--quiet", in, out)
	require.NoError(t, err)

	_, _, err = executeCommand("--quiet", out, filepath.Join(filepath.Dir(in), "again.ply"))
	requireExitCode(t, err, exitConfig)
}

func TestStrip_ExcludeFlag(t *testing.T) {
	in := writePLY(t, "plain.ply", plainCloud)
	out := filepath.Join(filepath.Dir(in), "out.ply")

	_, _, err := executeCommand("--quiet", "--exclude", "opacity", in, out)
	require.NoError(t, err)

	got, err := os.ReadFile(out) //nolint:gosec // test
	require.NoError(t, err)
	assert.Contains(t, string(got), "end_header\n1 2 3\n")
}

func TestStrip_ProfileFromConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "plystrip.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("profile: lean\nprofiles:\n  lean:\n    extends: sh\n    exclude:\n      - f_dc_\n"), 0o644)) //nolint:gosec // test

	in := filepath.Join(dir, "scene.ply")
	require.NoError(t, os.WriteFile(in, []byte(asciiSplat), 0o644)) //nolint:gosec // test

	out := filepath.Join(dir, "out.ply")

	_, _, err := executeCommand("--quiet", "--config", cfg, in, out)
	require.NoError(t, err)

	got, err := os.ReadFile(out) //nolint:gosec // test
	require.NoError(t, err)
	assert.Contains(t, string(got), "end_header\n0 1 2 0.9\n3 4 5 0.8\n")
}

func TestStrip_DryRun(t *testing.T) {
	in := writePLY(t, "scene.ply", asciiSplat)
	out := filepath.Join(filepath.Dir(in), "out.ply")

	stdout, _, err := executeCommand("--quiet", "--dry-run", in, out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Dry run:")
	assert.Contains(t, stdout, "remove (3): f_rest_0, f_rest_1, f_rest_2")
	assert.Contains(t, stdout, "keep   (5): x, y, z, f_dc_0, opacity")

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestStrip_Stdout(t *testing.T) {
	in := writePLY(t, "scene.ply", asciiSplat)

	stdout, _, err := executeCommand("--quiet", in, "-")
	require.NoError(t, err)
	assert.Contains(t, stdout, "property float opacity\nend_header\n0 1 2 0.5 0.9\n")
}

func TestStrip_LogsSummary(t *testing.T) {
	in := writePLY(t, "scene.ply", asciiSplat)

	_, stderr, err := executeCommand("--log-format", "json", in, filepath.Join(filepath.Dir(in), "out.ply"))
	require.NoError(t, err)
	assert.Contains(t, stderr, `"msg":"stripped channels"`)
	assert.Contains(t, stderr, `"removed":3`)
}
