package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// deliver sends a to all configured targets.
func (n *Notifier) deliver(ctx context.Context, a *Alert) error {
	n.mu.Lock()
	webhooks, client := n.webhooks, n.client
	n.mu.Unlock()

	var errs []error
	for _, wh := range webhooks {
		url := wh.URL()
		if url == "" {
			slog.Warn("alerts: webhook url not set, skipping", "type", wh.Type, "env", wh.URLEnv)
			continue
		}

		var err error
		switch wh.Type {
		case "slack":
			err = sendSlack(ctx, client, url, a)
		case "teams":
			err = sendTeams(ctx, client, url, a)
		case "http":
			err = sendHTTP(ctx, client, url, a)
		default:
			slog.Warn("alerts: unknown webhook type, skipping", "type", wh.Type)
			continue
		}

		if err != nil {
			slog.Error("alerts: webhook delivery failed",
				"type", wh.Type,
				"day", a.Day,
				"err", err,
			)
			errs = append(errs, fmt.Errorf("%s webhook: %w", wh.Type, err))
		} else {
			slog.Debug("alerts: webhook delivered",
				"type", wh.Type,
				"day", a.Day,
				"severity", a.Severity,
			)
		}
	}
	return joinErrs(errs)
}

func sendSlack(ctx context.Context, client *http.Client, url string, a *Alert) error {
	body, _ := json.Marshal(map[string]string{
		"text": fmt.Sprintf("*%s* perfwatch: %s", severityLabel(a.Severity), a.Message),
	})
	return post(ctx, client, url, body)
}

func sendTeams(ctx context.Context, client *http.Client, url string, a *Alert) error {
	payload := map[string]interface{}{
		"@type":      "MessageCard",
		"@context":   "http://schema.org/extensions",
		"themeColor": severityColor(a.Severity),
		"summary":    "perfwatch outliers " + a.Day,
		"title":      fmt.Sprintf("perfwatch: slow nodes on %s", a.Day),
		"text":       a.Message,
	}
	body, _ := json.Marshal(payload)
	return post(ctx, client, url, body)
}

func sendHTTP(ctx context.Context, client *http.Client, url string, a *Alert) error {
	body, _ := json.Marshal(map[string]interface{}{"alert": a})
	return post(ctx, client, url, body)
}

func post(ctx context.Context, client *http.Client, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func severityLabel(s string) string {
	switch s {
	case SeverityCritical:
		return "[CRITICAL]"
	case SeverityWarning:
		return "[WARNING]"
	default:
		return "[INFO]"
	}
}

func severityColor(s string) string {
	switch s {
	case SeverityCritical:
		return "FF4F6A"
	case SeverityWarning:
		return "FFAB40"
	default:
		return "00D4FF"
	}
}
