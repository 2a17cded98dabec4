// Package notify implements a client for the outbound notification
// webhook. The webhook receiver (email, chat, ...) is not part of
// the portal.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cdfmlr/crud/log"
)

var logger = log.ZoneLogger("musicportal/notify")

const (
	EventReleaseSubmitted = "release.submitted"
	EventReleaseApproved  = "release.approved"
	EventReleaseRejected  = "release.rejected"
	EventRequestUpdated   = "request.updated"
)

// Event is the JSON body posted to the webhook.
type Event struct {
	Type      string    `json:"type"`
	OwnerID   uint      `json:"ownerId"`
	SubjectID uint      `json:"subjectId"`
	Kind      string    `json:"kind,omitempty"`
	Status    string    `json:"status"`
	Reason    string    `json:"reason,omitempty"`
	At        time.Time `json:"at"`
}

// Client posts events to URL. A zero URL only logs.
type Client struct {
	URL    string
	client *http.Client
}

func New(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		URL:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Notify sends e. Errors are returned for the caller to log;
// a failed notification never undoes the change it reports.
func (c *Client) Notify(ctx context.Context, e Event) error {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	entry := logger.WithContext(ctx).
		WithField("type", e.Type).
		WithField("subject", e.SubjectID).
		WithField("status", e.Status)

	if c == nil || c.URL == "" {
		entry.Debug("Notify: no webhook configured")
		return nil
	}

	// build body
	body, err := json.Marshal(e)
	if err != nil {
		return err
	}

	// build request
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	// send request
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify webhook: %w", err)
	}
	defer resp.Body.Close()

	// check response
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("notify webhook: unexpected status %d", resp.StatusCode)
	}

	entry.Info("Notify: delivered")
	return nil
}
