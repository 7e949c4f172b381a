package exporter

import (
	"bytes"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/common/expfmt"

	"github.com/clusterautomation/perfwatch/internal/compute"
)

// Source returns the evaluation to expose and the time it was produced. ok
// is false while no evaluation exists.
type Source func() (ev *compute.Evaluation, at time.Time, ok bool)

// Handler serves the metrics of the evaluation returned by src in the text
// exposition format. It responds 503 while src has nothing.
func Handler(src Source) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		ev, at, ok := src()
		if !ok || ev == nil {
			http.Error(w, "no evaluation yet", http.StatusServiceUnavailable)
			return
		}

		var buf bytes.Buffer
		if err := Write(&buf, ev, at); err != nil {
			slog.Error("exporter: encode metrics", "err", err)
			http.Error(w, "encode metrics", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", string(expfmt.NewFormat(expfmt.TypeTextPlain)))
		w.Write(buf.Bytes()) //nolint:errcheck
	})
}
