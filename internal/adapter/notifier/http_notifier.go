package notifier

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/V4T54L/leadhub/internal/adapter/metrics"
	"github.com/V4T54L/leadhub/internal/domain"
)

const userAgent = "leadhub-notifier/1.0"

// HTTPNotifier delivers projected notification payloads to agency-configured URLs.
// Each call is a single POST; retries belong to the caller.
type HTTPNotifier struct {
	client  *resty.Client
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewHTTPNotifier creates a notifier whose requests time out after timeout.
func NewHTTPNotifier(timeout time.Duration, logger *slog.Logger, m *metrics.Metrics) *HTTPNotifier {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", userAgent)

	return &HTTPNotifier{
		client:  client,
		logger:  logger.With("component", "http_notifier"),
		metrics: m,
	}
}

// Post sends body to url. A transport failure yields a DispatchError of kind
// Unreachable; any non-2xx answer yields RemoteRejected with the status code.
func (n *HTTPNotifier) Post(ctx context.Context, url string, body []byte) error {
	start := time.Now()
	resp, err := n.client.R().
		SetContext(ctx).
		SetBody(body).
		Post(url)
	n.observeDuration(time.Since(start))

	if err != nil {
		n.observe(domain.Unreachable.String())
		n.logger.Warn("Webhook receiver unreachable", "url", url, "error", err)
		return &domain.DispatchError{Kind: domain.Unreachable, Err: err}
	}
	if !resp.IsSuccess() {
		n.observe(domain.RemoteRejected.String())
		n.logger.Warn("Webhook receiver rejected notification", "url", url, "status", resp.StatusCode())
		return &domain.DispatchError{Kind: domain.RemoteRejected, Status: resp.StatusCode()}
	}

	n.observe("delivered")
	n.logger.Debug("Notification delivered", "url", url, "status", resp.StatusCode())
	return nil
}

func (n *HTTPNotifier) observe(outcome string) {
	if n.metrics != nil {
		n.metrics.DispatchTotal.WithLabelValues(outcome).Inc()
	}
}

func (n *HTTPNotifier) observeDuration(d time.Duration) {
	if n.metrics != nil {
		n.metrics.DispatchDuration.Observe(d.Seconds())
	}
}
