package compute

import (
	"errors"
	"fmt"

	"github.com/clusterautomation/perfwatch/pkg/types"
)

// ErrNothingToEvaluate matches every error that means the run had no data
// to judge, as opposed to "no issues found".
var ErrNothingToEvaluate = errors.New("compute: nothing to evaluate")

// ErrEmptyDataset is returned when the dataset holds no rows at all.
var ErrEmptyDataset = fmt.Errorf("%w: dataset is empty", ErrNothingToEvaluate)

// Window scopes reported by EmptyWindowError.
const (
	ScopeHistory = "history"
	ScopeCurrent = "current"
)

// EmptyWindowError is returned when no row falls in the historical window
// (Scope "history") or on the evaluated day (Scope "current").
type EmptyWindowError struct {
	Scope  string
	Window Window
}

func (e *EmptyWindowError) Error() string {
	return fmt.Sprintf("compute: no measurements in %s window %s", e.Scope, e.Window)
}

// Is makes errors.Is(err, ErrNothingToEvaluate) hold.
func (e *EmptyWindowError) Is(target error) bool {
	return target == ErrNothingToEvaluate
}

// InsufficientBaselineError explains why a finding is Indeterminate.
type InsufficientBaselineError struct {
	Key     types.PartitionKey
	Samples int
	Missing bool // no historical rows at all for Key
}

func (e *InsufficientBaselineError) Error() string {
	if e.Missing {
		return fmt.Sprintf("compute: no baseline for %s", e.Key)
	}
	if e.Samples >= 2 {
		return fmt.Sprintf("compute: baseline for %s has zero variance over %d samples", e.Key, e.Samples)
	}
	return fmt.Sprintf("compute: baseline for %s has %d valid samples, need 2", e.Key, e.Samples)
}
