package export

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/onnwee/fmmtree/backend/internal/fmm"
	"github.com/onnwee/fmmtree/backend/internal/source"
	"github.com/onnwee/fmmtree/backend/internal/vector"
)

func TestAxisNames(t *testing.T) {
	require.Equal(t, []string{"x"}, AxisNames(1))
	require.Equal(t, []string{"x", "y", "z", "x3", "x4"}, AxisNames(5))
}

func TestWriteNodesCSV(t *testing.T) {
	sources := []source.Source{
		source.New(vector.New(0.25, 0.25), 1),
		source.New(vector.New(-0.25, 0.25), 1),
		source.New(vector.New(0.25, -0.25), 1),
	}
	opts := fmm.Options{MaxSourcesPerLeaf: 2, Accuracy: 1e-6, Root: fmm.RootFixed, Size: 1}
	tree, err := fmm.Build(context.Background(), sources, opts)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteNodesCSV(&buf, tree, false))

	want := strings.Join([]string{
		"depth,state,x,y,size,count",
		"0,subdividing,0,0,1,3",
		"1,leaf,0.5,0.5,0.5,1",
		"1,leaf,-0.5,0.5,0.5,1",
		"1,leaf,0.5,-0.5,0.5,1",
		"1,leaf,-0.5,-0.5,0.5,0",
		"",
	}, "\n")
	require.Equal(t, want, buf.String())

	buf.Reset()
	require.NoError(t, WriteNodesCSV(&buf, tree, true))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	require.Equal(t, "1,leaf,0.5,0.5,0.5,1", lines[1])
}

func TestReadSourcesCSV(t *testing.T) {
	in := "x,y,strength\n# comment\n1, 2, 5\n-0.5,0.25,1\n"
	sources, err := ReadSourcesCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, sources, 2)
	require.True(t, sources[0].Equal(source.New(vector.New(1, 2), 5)))
	require.True(t, sources[1].Equal(source.New(vector.New(-0.5, 0.25), 1)))
}

func TestReadSourcesCSVErrors(t *testing.T) {
	tests := map[string]string{
		"bad number":       "1,2,3\n1,abc,3\n",
		"ragged rows":      "1,2,3\n1,2\n",
		"missing strength": "1\n",
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ReadSourcesCSV(strings.NewReader(in))
			require.Error(t, err)
		})
	}
}

func TestRoundTripThroughBuild(t *testing.T) {
	in := "1,2,3,1\n-1,-2,-3,1\n0,0,0,2\n"
	sources, err := ReadSourcesCSV(strings.NewReader(in))
	require.NoError(t, err)

	tree, err := fmm.Build(context.Background(), sources, fmm.Options{MaxSourcesPerLeaf: 1, Accuracy: 1e-6})
	require.NoError(t, err)
	require.Equal(t, 3, tree.Dimension())

	var buf bytes.Buffer
	require.NoError(t, WriteNodesCSV(&buf, tree, true))
	require.True(t, strings.HasPrefix(buf.String(), "depth,state,x,y,z,size,count\n"))
}
