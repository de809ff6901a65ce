package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onnwee/fmmtree/backend/internal/fmm"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestDemoCommand(t *testing.T) {
	out, err := run(t, "demo")
	require.NoError(t, err)

	sections := strings.Split(out, "\n\n")
	require.Len(t, sections, 2)

	fixed, fitted := sections[0], sections[1]
	assert.Contains(t, fixed, "root: fixed")
	assert.Contains(t, fixed, "nodes: 1  leaves: 1  empty leaves: 1")
	assert.Contains(t, fixed, "diagnostics: 6")
	assert.Equal(t, 6, strings.Count(fixed, "fmm outside_root"))

	assert.Contains(t, fitted, "root: fit")
	assert.Contains(t, fitted, "diagnostics: 0")
	assert.True(t, strings.HasPrefix(fitted, "Balanced FMM Tree: 6 sources, max 2 per leaf"))
}

func TestBuildCommandFromCSV(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "sources.csv")
	outCSV := filepath.Join(dir, "nodes.csv")
	require.NoError(t, os.WriteFile(in, []byte("x,y,strength\n0.25,0.25,1\n-0.25,0.25,1\n0.25,-0.25,1\n"), 0o644))

	out, err := run(t, "build", "-i", in, "-o", outCSV, "--root", "fixed", "--max-per-leaf", "2", "--leaves-only")
	require.NoError(t, err)
	assert.Contains(t, out, "Balanced FMM Tree: 3 sources, max 2 per leaf")
	assert.Contains(t, out, "nodes: 5  leaves: 4  empty leaves: 1  max depth: 1  max occupancy: 1")

	nodes, err := os.ReadFile(outCSV)
	require.NoError(t, err)
	assert.Equal(t, "depth,state,x,y,size,count\n"+
		"1,leaf,0.5,0.5,0.5,1\n"+
		"1,leaf,-0.5,0.5,0.5,1\n"+
		"1,leaf,0.5,-0.5,0.5,1\n"+
		"1,leaf,-0.5,-0.5,0.5,0\n", string(nodes))
}

func TestBuildCommandErrors(t *testing.T) {
	_, err := run(t, "build", "--root", "grow")
	assert.ErrorIs(t, err, fmm.ErrInvalidOptions)

	_, err = run(t, "build", "--root", "fixed", "--strict")
	assert.ErrorIs(t, err, fmm.ErrOutsideRoot)

	_, err = run(t, "build", "-i", filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
