package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"compilatio/internal/config"
	"compilatio/internal/remote"
)

// Service is the push surface the CLI reports run outcomes through.
type Service interface {
	NotifyRunCompleted(ctx context.Context, outcome RunOutcome) error
	NotifyRunFailed(ctx context.Context, sourceName string, err error) error
}

// RunOutcome carries the counts a finished import run reports.
type RunOutcome struct {
	Source     string
	Discovered int
	Imported   int
	Updated    int
	Skipped    int
	Failed     int
	Elapsed    time.Duration
}

// NewService builds a notification service backed by ntfy when a topic
// is configured and a noop otherwise.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, outcome RunOutcome) error {
	elapsed := outcome.Elapsed.Round(time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	counts := fmt.Sprintf("%d imported, %d updated, %d skipped", outcome.Imported, outcome.Updated, outcome.Skipped)

	data := payload{
		title:   "Compilatio - Import Complete",
		message: fmt.Sprintf("📜 %s: %s in %s", outcome.Source, counts, elapsed),
		tags:    []string{"compilatio", "import", "completed"},
	}
	if outcome.Failed > 0 {
		data.title = "Compilatio - Import Complete (with errors)"
		data.message = fmt.Sprintf("%s: %s, %d failed in %s", outcome.Source, counts, outcome.Failed, elapsed)
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunFailed(ctx context.Context, sourceName string, runErr error) error {
	var builder strings.Builder
	builder.WriteString("❌ Import failed")
	if sourceName = strings.TrimSpace(sourceName); sourceName != "" {
		builder.WriteString(" for ")
		builder.WriteString(sourceName)
	}
	builder.WriteString(": ")
	if runErr != nil {
		builder.WriteString(strings.TrimSpace(runErr.Error()))
	} else {
		builder.WriteString("unknown error")
	}

	data := payload{
		title:    "Compilatio - Import Failed",
		message:  builder.String(),
		tags:     []string{"compilatio", "import", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", remote.DefaultUserAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyRunCompleted(context.Context, RunOutcome) error { return nil }
func (noopService) NotifyRunFailed(context.Context, string, error) error { return nil }
