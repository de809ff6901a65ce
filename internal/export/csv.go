// Package export writes built trees as CSV and reads source lists back in.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/onnwee/fmmtree/backend/internal/fmm"
	"github.com/onnwee/fmmtree/backend/internal/source"
	"github.com/onnwee/fmmtree/backend/internal/vector"
)

// AxisNames returns the coordinate column names for dimension dim:
// x, y, z for the first three axes and x3, x4, ... beyond.
func AxisNames(dim int) []string {
	names := make([]string, dim)
	for i := range names {
		switch i {
		case 0:
			names[i] = "x"
		case 1:
			names[i] = "y"
		case 2:
			names[i] = "z"
		default:
			names[i] = "x" + strconv.Itoa(i)
		}
	}
	return names
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// WriteNodesCSV writes one row per node in walk order with columns
// depth,state,<axes>,size,count. With leavesOnly set, internal nodes are
// skipped.
func WriteNodesCSV(w io.Writer, tree *fmm.Tree, leavesOnly bool) error {
	writer := csv.NewWriter(w)

	header := append([]string{"depth", "state"}, AxisNames(tree.Dimension())...)
	header = append(header, "size", "count")
	if err := writer.Write(header); err != nil {
		return err
	}

	var werr error
	row := make([]string, len(header))
	tree.Walk(func(n *fmm.Node) bool {
		if werr != nil {
			return false
		}
		if leavesOnly && !n.IsLeaf() {
			return true
		}
		row = row[:0]
		row = append(row, strconv.Itoa(n.Depth), n.State.String())
		center := n.Center()
		for i := range center.Dim() {
			row = append(row, formatFloat(center.At(i)))
		}
		row = append(row, formatFloat(n.Size), strconv.Itoa(n.Len()))
		werr = writer.Write(row)
		return werr == nil
	})
	if werr != nil {
		return werr
	}

	writer.Flush()
	return writer.Error()
}

// ReadSourcesCSV reads rows of the form x,y[,z...],strength. A first row
// whose first field is not a number is treated as a header. Every row must
// have the same number of columns.
func ReadSourcesCSV(r io.Reader) ([]source.Source, error) {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.TrimLeadingSpace = true

	var sources []source.Source
	line := 0
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if line == 1 && isHeader(rec) {
			continue
		}
		if len(rec) < 2 {
			return nil, fmt.Errorf("line %d: need at least one coordinate and a strength, got %d fields", line, len(rec))
		}

		values := make([]float64, len(rec))
		for i, field := range rec {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d, column %d: %w", line, i+1, err)
			}
			values[i] = v
		}
		last := len(values) - 1
		sources = append(sources, source.New(vector.New(values[:last]...), values[last]))
	}
	return sources, nil
}

func isHeader(rec []string) bool {
	if len(rec) == 0 {
		return false
	}
	_, err := strconv.ParseFloat(strings.TrimSpace(rec[0]), 64)
	return err != nil
}
