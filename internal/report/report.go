package report

import (
	"sort"

	"github.com/clusterautomation/perfwatch/pkg/types"
)

// Report is the aggregated result of one evaluation.
type Report struct {
	Groups  []Group
	Summary Summary
}

// Group holds the findings for one partition key.
type Group struct {
	Key types.PartitionKey

	// Baseline is the baseline the group was scored against, nil when none
	// existed.
	Baseline *types.Baseline

	Outliers      []types.Finding
	Normal        []types.Finding
	Indeterminate []types.Finding
}

// Summary counts findings by classification.
type Summary struct {
	Scored        int
	Outliers      int
	Normal        int
	Indeterminate int
}

// Aggregate builds a Report from findings. The input slice is not modified.
func Aggregate(findings []types.Finding) Report {
	byKey := make(map[types.PartitionKey]*Group)
	var keys []types.PartitionKey

	var r Report
	for _, f := range findings {
		g, ok := byKey[f.Key]
		if !ok {
			g = &Group{Key: f.Key}
			byKey[f.Key] = g
			keys = append(keys, f.Key)
		}
		if g.Baseline == nil && f.Baseline != nil {
			g.Baseline = f.Baseline
		}

		r.Summary.Scored++
		switch f.Classification {
		case types.Outlier:
			g.Outliers = append(g.Outliers, f)
			r.Summary.Outliers++
		case types.Normal:
			g.Normal = append(g.Normal, f)
			r.Summary.Normal++
		default:
			g.Indeterminate = append(g.Indeterminate, f)
			r.Summary.Indeterminate++
		}
	}

	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	r.Groups = make([]Group, 0, len(keys))
	for _, k := range keys {
		g := byKey[k]
		sortByZDesc(g.Outliers)
		sortByZDesc(g.Normal)
		sort.SliceStable(g.Indeterminate, func(i, j int) bool {
			return measurementLess(g.Indeterminate[i].Measurement, g.Indeterminate[j].Measurement)
		})
		r.Groups = append(r.Groups, *g)
	}
	return r
}

// Outliers returns every outlier across groups, z-score descending.
func (r Report) Outliers() []types.Finding {
	var out []types.Finding
	for _, g := range r.Groups {
		out = append(out, g.Outliers...)
	}
	sortByZDesc(out)
	return out
}

// HasOutliers reports whether any finding is an outlier.
func (r Report) HasOutliers() bool {
	return r.Summary.Outliers > 0
}

// Group returns the group for k.
func (r Report) Group(k types.PartitionKey) (Group, bool) {
	for _, g := range r.Groups {
		if g.Key == k {
			return g, true
		}
	}
	return Group{}, false
}

func sortByZDesc(fs []types.Finding) {
	sort.SliceStable(fs, func(i, j int) bool {
		if fs[i].ZScore != fs[j].ZScore {
			return fs[i].ZScore > fs[j].ZScore
		}
		return measurementLess(fs[i].Measurement, fs[j].Measurement)
	})
}

func measurementLess(a, b types.Measurement) bool {
	if a.NodeID != b.NodeID {
		return a.NodeID < b.NodeID
	}
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	return a.Line < b.Line
}
