package ingest

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DefaultElapsedToken is the position of the elapsed seconds inside the raw
// Time_sec string (the fourth token).
const DefaultElapsedToken = 3

var (
	errTokenMissing = errors.New("elapsed token missing")
	errNotFinite    = errors.New("elapsed value is not finite")
	errNegative     = errors.New("elapsed value is negative")
)

// ElapsedParser extracts elapsed seconds from a raw elapsed-time cell.
type ElapsedParser func(raw string) (float64, error)

// TokenElapsed returns an ElapsedParser that reads the index-th
// whitespace-separated token of the raw string as a float.
func TokenElapsed(index int) ElapsedParser {
	return func(raw string) (float64, error) {
		fields := strings.Fields(raw)
		if index < 0 || index >= len(fields) {
			return 0, fmt.Errorf("%w: want token %d, have %d", errTokenMissing, index, len(fields))
		}
		return parseSeconds(fields[index])
	}
}

// PlainElapsed parses the whole trimmed cell as a float. Use it for files
// that store the bare number.
func PlainElapsed(raw string) (float64, error) {
	return parseSeconds(strings.TrimSpace(raw))
}

func parseSeconds(tok string) (float64, error) {
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errNotFinite
	}
	if v < 0 {
		return 0, errNegative
	}
	return v, nil
}
