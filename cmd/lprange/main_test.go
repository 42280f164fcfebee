package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/lp-hedge/internal/export"
	"github.com/rovshanmuradov/lp-hedge/internal/hedge"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), append([]string{"-config", ""}, args...), &stdout, &stderr)
	return stdout.String(), err
}

func TestRunPrintsRange(t *testing.T) {
	out, err := runCLI(t, "-asset", "sol", "-strike", "120", "-premium", "10.79", "-spot", "123", "-points", "101")
	require.NoError(t, err)
	assert.Contains(t, out, "SOL")
	assert.Contains(t, out, "67.8400")
	assert.Contains(t, out, "166.1600")
	assert.Contains(t, out, hedge.MarkerBreakEven)
	assert.Contains(t, out, "max loss")
}

func TestRunJSONAndExport(t *testing.T) {
	dir := t.TempDir()
	out, err := runCLI(t, "-strike", "120", "-premium", "10.79", "-spot", "123",
		"-weight", "single", "-points", "51", "-json", "-export", "csv", "-out", dir)
	require.NoError(t, err)

	var s export.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	assert.Equal(t, "single", s.BreakEvenWeight)
	assert.InDelta(t, 144.58, s.Bounds.UpperBound, 1e-9)
	assert.Len(t, s.Markers, 5)

	files, err := filepath.Glob(filepath.Join(dir, "curve_SOL_*.csv"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	raw, err := os.ReadFile(files[0])
	require.NoError(t, err)
	// header plus one line per sample
	assert.Equal(t, 52, bytes.Count(raw, []byte("\n")))
}

func TestRunErrors(t *testing.T) {
	_, err := runCLI(t, "-spot", "123", "-weight", "triple")
	assert.ErrorIs(t, err, hedge.ErrInvalidParameters)

	_, err = runCLI(t, "-asset", "BTC", "-spot", "100")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pass -strike and -premium")

	_, err = runCLI(t, "-strike", "110", "-premium", "10", "-spot", "100")
	assert.ErrorIs(t, err, hedge.ErrDegenerateBounds)

	_, err = runCLI(t, "-spot", "123", "-points", "1000000000")
	assert.ErrorIs(t, err, hedge.ErrInvalidParameters)
	assert.Contains(t, err.Error(), "sweep.max_points is 10000")

	_, err = runCLI(t, "-strike", "abc")
	require.Error(t, err)
}

func TestOptionalFloat(t *testing.T) {
	var f optionalFloat
	assert.Nil(t, f.ptr())
	assert.Empty(t, f.String())

	require.NoError(t, f.Set("1.5"))
	require.NotNil(t, f.ptr())
	assert.Equal(t, 1.5, *f.ptr())
	assert.Equal(t, "1.5", f.String())
	assert.Error(t, f.Set("x"))
}
