// Package analysis submits completed intake payloads to the remote analysis
// API and exposes the returned recommendations through a tolerant view
// model.
package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/gabrielmiguelok/intakewizard/internal/remote"
	"github.com/gabrielmiguelok/intakewizard/internal/wizard"
	"github.com/gabrielmiguelok/intakewizard/pkg/logging"
)

// ErrSubmission is returned for every failed submission. The cause is
// logged, never shown to the prospect.
var ErrSubmission = errors.New("something went wrong")

// Client posts payloads to <base>/submit.
type Client struct {
	remote *remote.Client
	logger logging.Logger
}

// NewClient creates a client for baseURL. Options are passed to the
// underlying HTTP plumbing.
func NewClient(baseURL string, logger logging.Logger, opts ...remote.Option) (*Client, error) {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	logger = logger.With(logging.String("component", "analysis"))
	rc, err := remote.New(baseURL, append([]remote.Option{remote.WithLogger(logger)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("analysis client: %w", err)
	}
	return &Client{remote: rc, logger: logger}, nil
}

// Submit sends one request. There is no retry; ctx is the only bound.
// A 2xx reply whose body is not a JSON object is a failed submission.
func (c *Client) Submit(ctx context.Context, p wizard.Payload) (*Result, error) {
	var doc map[string]any
	if err := c.remote.PostJSON(ctx, "submit", "/submit", p, &doc); err != nil {
		c.logger.Error("analysis submission failed", logging.Err(err))
		return nil, ErrSubmission
	}
	if doc == nil {
		c.logger.Error("analysis submission returned an empty document")
		return nil, ErrSubmission
	}
	return NewResult(doc), nil
}
