package exporter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/clusterautomation/perfwatch/internal/compute"
	"github.com/clusterautomation/perfwatch/pkg/types"
)

// Metric names.
const (
	MetricFindings        = "perfwatch_findings"
	MetricParseFailures   = "perfwatch_parse_failures"
	MetricRows            = "perfwatch_rows"
	MetricBaselineMean    = "perfwatch_baseline_mean_seconds"
	MetricBaselineStdDev  = "perfwatch_baseline_stddev_seconds"
	MetricBaselineSamples = "perfwatch_baseline_samples"
	MetricNodeElapsed     = "perfwatch_node_elapsed_seconds"
	MetricNodeZScore      = "perfwatch_node_zscore"
	MetricNodeOutlier     = "perfwatch_node_outlier"
	MetricLastEvaluation  = "perfwatch_last_evaluation_timestamp_seconds"
)

// Families builds the metric families for ev. now stamps
// perfwatch_last_evaluation_timestamp_seconds. The result is sorted by name.
func Families(ev *compute.Evaluation, now time.Time) []*dto.MetricFamily {
	s := ev.Report.Summary
	fams := []*dto.MetricFamily{
		gaugeFamily(MetricFindings, "Findings on the evaluated day by classification.",
			gauge(float64(s.Normal), "classification", string(types.Normal)),
			gauge(float64(s.Outliers), "classification", string(types.Outlier)),
			gauge(float64(s.Indeterminate), "classification", string(types.Indeterminate)),
		),
		gaugeFamily(MetricParseFailures, "Dataset rows that failed to parse.",
			gauge(float64(ev.ParseFailures))),
		gaugeFamily(MetricRows, "Rows in the dataset.",
			gauge(float64(ev.Rows))),
		gaugeFamily(MetricLastEvaluation, "Unix time of the last evaluation.",
			gauge(float64(now.UnixNano())/1e9)),
	}

	var mean, std, samples []*dto.Metric
	for _, b := range ev.BaselineList() {
		labels := []string{"group", b.Key.Group, "concurrency", strconv.Itoa(b.Key.Concurrency)}
		samples = append(samples, gauge(float64(b.SampleCount), labels...))
		if b.SampleCount == 0 {
			continue
		}
		mean = append(mean, gauge(b.Mean, labels...))
		if b.Usable() {
			std = append(std, gauge(b.StdDev, labels...))
		}
	}
	fams = appendNonEmpty(fams,
		gaugeFamily(MetricBaselineMean, "Mean elapsed seconds of the baseline window.", mean...),
		gaugeFamily(MetricBaselineStdDev, "Sample standard deviation of elapsed seconds in the baseline window.", std...),
		gaugeFamily(MetricBaselineSamples, "Valid samples in the baseline window.", samples...),
	)

	var elapsed, zscore, outlier []*dto.Metric
	for _, f := range latestPerSeries(ev) {
		labels := []string{
			"node", f.Measurement.NodeID,
			"group", f.Key.Group,
			"concurrency", strconv.Itoa(f.Key.Concurrency),
		}
		elapsed = append(elapsed, gauge(f.Measurement.Elapsed, labels...))
		if f.HasScore() {
			zscore = append(zscore, gauge(f.ZScore, labels...))
		}
		var v float64
		if f.Classification == types.Outlier {
			v = 1
		}
		outlier = append(outlier, gauge(v, labels...))
	}
	fams = appendNonEmpty(fams,
		gaugeFamily(MetricNodeElapsed, "Elapsed seconds of the node's run on the evaluated day.", elapsed...),
		gaugeFamily(MetricNodeZScore, "Z-score of the node's run against its baseline.", zscore...),
		gaugeFamily(MetricNodeOutlier, "1 if the node's run is an outlier.", outlier...),
	)

	sort.Slice(fams, func(i, j int) bool { return fams[i].GetName() < fams[j].GetName() })
	return fams
}

// Write encodes the families for ev to w in the text exposition format.
func Write(w io.Writer, ev *compute.Evaluation, now time.Time) error {
	for _, mf := range Families(ev, now) {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("exporter: encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// WriteFile writes the metrics for ev to path through a temporary file in
// the same directory and a rename.
func WriteFile(path string, ev *compute.Evaluation, now time.Time) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("exporter: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Write(tmp, ev, now); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("exporter: chmod: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("exporter: close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("exporter: rename: %w", err)
	}
	return nil
}

type seriesKey struct {
	node string
	key  types.PartitionKey
}

// latestPerSeries returns one finding per node and partition, keeping the
// run with the latest timestamp.
func latestPerSeries(ev *compute.Evaluation) []types.Finding {
	latest := make(map[seriesKey]types.Finding)
	var order []seriesKey
	for _, g := range ev.Report.Groups {
		for _, list := range [][]types.Finding{g.Outliers, g.Normal, g.Indeterminate} {
			for _, f := range list {
				sk := seriesKey{node: f.Measurement.NodeID, key: f.Key}
				prev, seen := latest[sk]
				if !seen {
					order = append(order, sk)
				}
				if !seen || f.Measurement.Timestamp.After(prev.Measurement.Timestamp) {
					latest[sk] = f
				}
			}
		}
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].key != order[j].key {
			return order[i].key.Less(order[j].key)
		}
		return order[i].node < order[j].node
	})
	out := make([]types.Finding, len(order))
	for i, sk := range order {
		out[i] = latest[sk]
	}
	return out
}

func gaugeFamily(name, help string, ms ...*dto.Metric) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   proto.String(name),
		Help:   proto.String(help),
		Type:   dto.MetricType_GAUGE.Enum(),
		Metric: ms,
	}
}

// gauge builds a gauge sample from a value and alternating label names and
// values.
func gauge(v float64, labels ...string) *dto.Metric {
	m := &dto.Metric{Gauge: &dto.Gauge{Value: proto.Float64(v)}}
	for i := 0; i+1 < len(labels); i += 2 {
		m.Label = append(m.Label, &dto.LabelPair{
			Name:  proto.String(labels[i]),
			Value: proto.String(labels[i+1]),
		})
	}
	return m
}

func appendNonEmpty(fams []*dto.MetricFamily, more ...*dto.MetricFamily) []*dto.MetricFamily {
	for _, mf := range more {
		if len(mf.Metric) > 0 {
			fams = append(fams, mf)
		}
	}
	return fams
}
