package ingest

import (
	"errors"
	"strconv"
	"strings"

	"github.com/clusterautomation/perfwatch/pkg/types"
)

// Row is one raw record as read from the results file.
type Row struct {
	Line        int
	Timestamp   string
	Node        string
	Concurrency int
	ElapsedRaw  string
}

// Field names used in ParseError.Field.
const (
	FieldTimestamp   = "timestamp"
	FieldNode        = "node"
	FieldConcurrency = "concurrency"
	FieldElapsed     = "elapsed"
)

var (
	errEmptyNode      = errors.New("node is empty")
	errBadConcurrency = errors.New("concurrency must be >= 1")
)

// Normalizer converts raw rows into measurements.
type Normalizer struct {
	// Elapsed parses the raw elapsed cell. Defaults to
	// TokenElapsed(DefaultElapsedToken) when nil.
	Elapsed ElapsedParser
}

// Normalize converts row into a Measurement. It never fails: a row with a
// malformed field comes back with Valid=false and Err set to a *ParseError
// for the first bad field.
func (n Normalizer) Normalize(row Row) types.Measurement {
	m := types.Measurement{
		Line:        row.Line,
		NodeID:      strings.TrimSpace(row.Node),
		Concurrency: row.Concurrency,
	}

	ts, err := ParseTimestamp(row.Timestamp)
	if err != nil {
		m.Err = &ParseError{Line: row.Line, Field: FieldTimestamp, Value: row.Timestamp, Err: err}
		return m
	}
	m.Timestamp = ts

	if m.NodeID == "" {
		m.Err = &ParseError{Line: row.Line, Field: FieldNode, Value: row.Node, Err: errEmptyNode}
		return m
	}
	if row.Concurrency < 1 {
		m.Err = &ParseError{
			Line:  row.Line,
			Field: FieldConcurrency,
			Value: strconv.Itoa(row.Concurrency),
			Err:   errBadConcurrency,
		}
		return m
	}

	parse := n.Elapsed
	if parse == nil {
		parse = TokenElapsed(DefaultElapsedToken)
	}
	v, err := parse(row.ElapsedRaw)
	if err != nil {
		m.Err = &ParseError{Line: row.Line, Field: FieldElapsed, Value: row.ElapsedRaw, Err: err}
		return m
	}

	m.Elapsed = v
	m.Valid = true
	return m
}

// NormalizeAll normalises every row, preserving order, and returns the parse
// errors of the invalid ones.
func (n Normalizer) NormalizeAll(rows []Row) ([]types.Measurement, []*ParseError) {
	out := make([]types.Measurement, 0, len(rows))
	var errs []*ParseError
	for _, r := range rows {
		m := n.Normalize(r)
		if !m.Valid {
			var pe *ParseError
			if errors.As(m.Err, &pe) {
				errs = append(errs, pe)
			}
		}
		out = append(out, m)
	}
	return out, errs
}
