package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/iov-one/custody/errors"
)

// Notification is a single payload addressed to a single subscriber.
type Notification struct {
	Subscription Subscription
	Payload      Payload
	// Key is unique per subscriber and transition. Receivers can use it to
	// drop notifications that were retried after a lost response.
	Key string
}

// Sink transports notifications to subscribers.
type Sink interface {
	Deliver(ctx context.Context, n Notification) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, n Notification) error

func (fn SinkFunc) Deliver(ctx context.Context, n Notification) error {
	return fn(ctx, n)
}

// WebhookSink posts the JSON payload to the subscription URL. Any response
// other than 2xx is a failed delivery.
type WebhookSink struct {
	client *http.Client
}

var _ Sink = (*WebhookSink)(nil)

// NewWebhookSink returns a sink that gives up on a single request after
// timeout. Redirects are not followed; a 3xx response is a failed delivery.
func NewWebhookSink(timeout time.Duration) *WebhookSink {
	return &WebhookSink{client: &http.Client{
		Timeout: timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}}
}

func (w *WebhookSink) Deliver(ctx context.Context, n Notification) error {
	body, err := json.Marshal(n.Payload)
	if err != nil {
		return errors.Wrap(err, "cannot serialize payload")
	}
	req, err := http.NewRequest(http.MethodPost, n.Subscription.URL, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(errors.ErrInput, err.Error())
	}
	req = req.WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Custody-Event", n.Payload.EventKind.String())
	req.Header.Set("Idempotency-Key", n.Key)

	resp, err := w.client.Do(req)
	if err != nil {
		return errors.Wrap(errors.ErrDelivery, err.Error())
	}
	defer resp.Body.Close()
	// Drain so that the connection can be reused.
	io.Copy(ioutil.Discard, io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Wrap(errors.ErrDelivery, fmt.Sprintf("%s responded %s", n.Subscription.URL, resp.Status))
	}
	return nil
}
