package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"upkeep/internal/config"
)

const userAgent = "Upkeep/0.1.0"

// Service defines the notification surface exposed to the run pipeline.
type Service interface {
	NotifyRunCompleted(ctx context.Context, changed, warnings int, duration time.Duration) error
	NotifyRunFailed(ctx context.Context, err error) error
	NotifyRebootRequired(ctx context.Context, host string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
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

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, changed, warnings int, duration time.Duration) error {
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	title := "Upkeep - Run Complete"
	message := fmt.Sprintf("Maintenance complete: %d packages changed in %s", changed, duration)
	if warnings > 0 {
		title = "Upkeep - Run Complete (with warnings)"
		message = fmt.Sprintf("Maintenance complete: %d packages changed, %d warnings in %s", changed, warnings, duration)
	}

	data := payload{
		title:   title,
		message: message,
		tags:    []string{"upkeep", "run", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunFailed(ctx context.Context, err error) error {
	message := "Maintenance run failed: "
	if err != nil {
		message += strings.TrimSpace(err.Error())
	} else {
		message += "unknown error"
	}

	data := payload{
		title:    "Upkeep - Run Failed",
		message:  message,
		tags:     []string{"upkeep", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRebootRequired(ctx context.Context, host string) error {
	host = strings.TrimSpace(host)
	if host == "" {
		host = "this host"
	}
	data := payload{
		title:    "Upkeep - Reboot Required",
		message:  fmt.Sprintf("Kernel updated on %s, restart it to activate the new kernel", host),
		tags:     []string{"upkeep", "reboot", "required"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Upkeep - Test",
		message:  "Notification system test",
		tags:     []string{"upkeep", "test"},
		priority: "low",
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
	req.Header.Set("User-Agent", userAgent)
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

func (noopService) NotifyRunCompleted(context.Context, int, int, time.Duration) error { return nil }
func (noopService) NotifyRunFailed(context.Context, error) error                      { return nil }
func (noopService) NotifyRebootRequired(context.Context, string) error                { return nil }
func (noopService) TestNotification(context.Context) error                            { return nil }
