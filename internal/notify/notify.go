package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"strings"
	"time"
)

// Alert is one presence alert to deliver to the webhook.
type Alert struct {
	// DistanceCM is the measured distance that triggered the alert.
	DistanceCM float64
	// At is the wall-clock time rendered into the message text.
	At time.Time
	// ImagePath optionally points at a JPEG to attach. An empty path or an
	// unreadable file degrades the alert to text-only.
	ImagePath string
}

// Outcome describes a single delivery attempt. It exists for logging only;
// failed deliveries are never retried.
type Outcome struct {
	// Delivered reports whether the webhook accepted the alert (2xx).
	Delivered bool
	// StatusDetail carries the HTTP status or transport error for the logs.
	StatusDetail string
}

const (
	// DefaultTimeout bounds a single webhook request.
	DefaultTimeout = 15 * time.Second

	// placeholderURL is the stand-in value shipped in example settings;
	// it must be treated the same as an unset URL.
	placeholderURL = "PUT_A_NEW_DISCORD_WEBHOOK_HERE"

	// attachmentFilename is the name under which the photo is uploaded.
	attachmentFilename = "intruder.jpg"

	// maxDetailLength truncates response bodies quoted in StatusDetail.
	maxDetailLength = 200
)

// ErrNoWebhookURL is returned when no usable webhook URL is configured.
// It is a per-cycle configuration error, not a startup failure.
var ErrNoWebhookURL = errors.New("no webhook URL configured")

// Notifier posts alerts to a Discord-compatible webhook.
type Notifier struct {
	// webhookURL is the destination endpoint.
	webhookURL string
	// httpClient performs the requests; its Timeout bounds each attempt.
	httpClient *http.Client
}

// Option configures notifier behaviour.
type Option func(*Notifier)

// WithTimeout overrides the default request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(n *Notifier) {
		if timeout > 0 {
			n.httpClient.Timeout = timeout
		}
	}
}

// WithHTTPClient substitutes the HTTP client, mainly for tests.
func WithHTTPClient(client *http.Client) Option {
	return func(n *Notifier) {
		if client != nil {
			n.httpClient = client
		}
	}
}

// NewNotifier creates a notifier for the given webhook URL.
func NewNotifier(webhookURL string, opts ...Option) *Notifier {
	n := &Notifier{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}

	for _, opt := range opts {
		opt(n)
	}

	return n
}

// Send delivers one alert. Text-only alerts go as a JSON payload; alerts
// with an attached image go as one multipart request carrying both the
// message and the JPEG. Transport errors and non-2xx responses come back
// as a failed Outcome, never as an error: the only error condition is a
// missing webhook URL.
func (n *Notifier) Send(ctx context.Context, alert Alert) (Outcome, error) {
	if n.webhookURL == "" || strings.Contains(n.webhookURL, placeholderURL) {
		return Outcome{}, ErrNoWebhookURL
	}

	content := FormatMessage(alert.DistanceCM, alert.At)

	body, contentType, err := encodePayload(content, alert.ImagePath)
	if err != nil {
		return Outcome{}, fmt.Errorf("encode payload: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, body)
	if err != nil {
		return Outcome{}, fmt.Errorf("build request: %w", err)
	}

	request.Header.Set("Content-Type", contentType)

	response, err := n.httpClient.Do(request)
	if err != nil {
		return Outcome{StatusDetail: err.Error()}, nil
	}

	defer func() {
		_, _ = io.Copy(io.Discard, response.Body)
		_ = response.Body.Close()
	}()

	if response.StatusCode >= 200 && response.StatusCode < 300 {
		return Outcome{Delivered: true, StatusDetail: response.Status}, nil
	}

	detail, _ := io.ReadAll(io.LimitReader(response.Body, maxDetailLength))

	return Outcome{StatusDetail: fmt.Sprintf("%s %s", response.Status, bytes.TrimSpace(detail))}, nil
}

// FormatMessage renders the alert text: a fixed marker, the distance to one
// decimal place and the wall-clock time.
func FormatMessage(distanceCM float64, at time.Time) string {
	return fmt.Sprintf(":rotating_light: **Intruder detected** — %.1f cm at %s",
		distanceCM, at.Format("15:04:05"))
}

// encodePayload builds the request body: JSON for text-only, multipart when
// an image file is present and readable.
func encodePayload(content, imagePath string) (io.Reader, string, error) {
	if imagePath != "" {
		if file, err := os.Open(imagePath); err == nil {
			defer file.Close()

			return encodeMultipart(content, file)
		}
		// Unreadable image degrades to text-only.
	}

	payload, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return nil, "", err
	}

	return bytes.NewReader(payload), "application/json", nil
}

// encodeMultipart combines the message text and the JPEG into one request.
func encodeMultipart(content string, image io.Reader) (io.Reader, string, error) {
	var buf bytes.Buffer

	writer := multipart.NewWriter(&buf)

	if err := writer.WriteField("content", content); err != nil {
		return nil, "", err
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename=%q`, attachmentFilename))
	header.Set("Content-Type", "image/jpeg")

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}

	if _, err = io.Copy(part, image); err != nil {
		return nil, "", err
	}

	if err = writer.Close(); err != nil {
		return nil, "", err
	}

	return &buf, writer.FormDataContentType(), nil
}
