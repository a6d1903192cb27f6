package linsys

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Substitution records a field that did not parse and was read as NaN.
type Substitution struct {
	Line   int
	Column int
	Value  string
}

// Read parses one equation per line, "constant,coeff_0,...,coeff_{n-1}".
// Blank or whitespace-only lines and lines starting with '#' are skipped.
// Unparsable numbers become NaN and are reported in the returned
// substitutions; ragged rows and non-square input are configuration errors.
func Read(r io.Reader) (*System, []Substitution, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var (
		rows  [][]float64
		subs  []Substitution
		width int
	)
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("linsys: read csv: %w", err)
		}
		if blank(record) {
			continue
		}
		line, _ := cr.FieldPos(0)
		if width == 0 {
			width = len(record)
		}
		if len(record) != width {
			return nil, nil, configErr("csv", ErrDimensionMismatch, "line %d has %d fields, want %d", line, len(record), width)
		}

		row := make([]float64, len(record))
		for i, field := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				v = math.NaN()
				subs = append(subs, Substitution{Line: line, Column: i, Value: field})
			}
			row[i] = v
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, nil, configErr("csv", ErrEmptySystem, "no equations")
	}
	if width != len(rows)+1 {
		return nil, nil, configErr("csv", ErrDimensionMismatch, "%d equations need %d fields per line, got %d", len(rows), len(rows)+1, width)
	}
	sys, err := FromAugmented(rows)
	if err != nil {
		return nil, nil, err
	}
	return sys, subs, nil
}

func blank(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

// Write emits s in the format Read accepts.
func Write(w io.Writer, s *System) error {
	cw := csv.NewWriter(w)
	row := make([]float64, 0, s.n+1)
	record := make([]string, s.n+1)
	for r := 0; r < s.n; r++ {
		row = s.AugmentedRow(row[:0], r)
		for i, v := range row {
			record[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSolution writes one value per line.
func WriteSolution(w io.Writer, x []float64) error {
	for _, v := range x {
		if _, err := fmt.Fprintln(w, strconv.FormatFloat(v, 'g', -1, 64)); err != nil {
			return err
		}
	}
	return nil
}
