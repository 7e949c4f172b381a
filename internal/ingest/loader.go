package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Columns names the header cells holding each field.
type Columns struct {
	Timestamp   string
	Node        string
	Concurrency string
	Elapsed     string
}

// DefaultColumns matches the header written by the benchmark jobs.
func DefaultColumns() Columns {
	return Columns{
		Timestamp:   "Timestamp",
		Node:        "Node",
		Concurrency: "NPerNode",
		Elapsed:     "Time_sec",
	}
}

// LoadFile reads the CSV results file at path.
func LoadFile(path string, cols Columns) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: open %q: %w", path, err)
	}
	defer f.Close()

	rows, err := ReadCSV(f, cols)
	if err != nil {
		return nil, fmt.Errorf("ingest: %q: %w", path, err)
	}
	return rows, nil
}

// ReadCSV reads rows from r. The first record is the header. An input with
// no header at all yields zero rows and no error; a header lacking one of the
// configured columns is an error.
func ReadCSV(r io.Reader, cols Columns) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx, err := columnIndex(header, cols)
	if err != nil {
		return nil, err
	}

	var rows []Row
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if isBlank(rec) {
			continue
		}
		rows = append(rows, Row{
			Line:        line,
			Timestamp:   cell(rec, idx.timestamp),
			Node:        cell(rec, idx.node),
			Concurrency: atoiOrZero(cell(rec, idx.concurrency)),
			ElapsedRaw:  cell(rec, idx.elapsed),
		})
	}
	return rows, nil
}

type colIdx struct {
	timestamp, node, concurrency, elapsed int
}

func columnIndex(header []string, cols Columns) (colIdx, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.TrimSpace(h)] = i
	}
	lookup := func(name string) (int, error) {
		i, ok := pos[name]
		if !ok {
			return 0, fmt.Errorf("header is missing column %q", name)
		}
		return i, nil
	}

	var idx colIdx
	var err error
	if idx.timestamp, err = lookup(cols.Timestamp); err != nil {
		return idx, err
	}
	if idx.node, err = lookup(cols.Node); err != nil {
		return idx, err
	}
	if idx.concurrency, err = lookup(cols.Concurrency); err != nil {
		return idx, err
	}
	if idx.elapsed, err = lookup(cols.Elapsed); err != nil {
		return idx, err
	}
	return idx, nil
}

func cell(rec []string, i int) string {
	if i < len(rec) {
		return rec[i]
	}
	return ""
}

// atoiOrZero returns 0 for a non-integer cell; the normalizer rejects it.
func atoiOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

func isBlank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
