// Package otp relays email verification codes through an external provider.
package otp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gabrielmiguelok/intakewizard/internal/remote"
	"github.com/gabrielmiguelok/intakewizard/pkg/logging"
)

var (
	// ErrProvider is returned when the provider cannot be reached or
	// answers unexpectedly.
	ErrProvider = errors.New("verification service unavailable")

	// ErrCodeRejected is returned when the provider refuses a code.
	ErrCodeRejected = errors.New("verification code rejected")
)

// Provider sends and checks one-time codes.
type Provider interface {
	Send(ctx context.Context, email string) (state string, err error)
	Verify(ctx context.Context, code, state string) error
	Resend(ctx context.Context, state string) (string, error)
}

type sendRequest struct {
	Email string `json:"email"`
}

type verifyRequest struct {
	Code  string `json:"code"`
	State string `json:"state"`
}

type resendRequest struct {
	State string `json:"state"`
}

type stateResponse struct {
	State string `json:"state"`
}

type verifyResponse struct {
	Verified bool `json:"verified"`
}

// Client is the HTTP provider client.
type Client struct {
	remote *remote.Client
	logger logging.Logger
}

var _ Provider = (*Client)(nil)

// NewClient creates a client for baseURL. A non-empty apiKey is sent as a
// bearer token.
func NewClient(baseURL, apiKey string, logger logging.Logger, opts ...remote.Option) (*Client, error) {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	logger = logger.With(logging.String("component", "otp"))
	base := []remote.Option{remote.WithLogger(logger), remote.WithToken(apiKey)}
	rc, err := remote.New(baseURL, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("otp client: %w", err)
	}
	return &Client{remote: rc, logger: logger}, nil
}

// Send asks the provider to email a new code and returns its state token.
func (c *Client) Send(ctx context.Context, email string) (string, error) {
	var resp stateResponse
	if err := c.remote.PostJSON(ctx, "otp send", "/send", sendRequest{Email: email}, &resp); err != nil {
		c.logger.Error("otp send failed", logging.Err(err))
		return "", ErrProvider
	}
	if resp.State == "" {
		c.logger.Error("otp send returned no state")
		return "", ErrProvider
	}
	return resp.State, nil
}

// Verify checks code against the provider state.
func (c *Client) Verify(ctx context.Context, code, state string) error {
	var resp verifyResponse
	err := c.remote.PostJSON(ctx, "otp verify", "/verify", verifyRequest{Code: code, State: state}, &resp)
	if err != nil {
		var se *remote.StatusError
		if errors.As(err, &se) && (se.StatusCode == http.StatusBadRequest || se.StatusCode == http.StatusUnprocessableEntity) {
			return ErrCodeRejected
		}
		c.logger.Error("otp verify failed", logging.Err(err))
		return ErrProvider
	}
	if !resp.Verified {
		return ErrCodeRejected
	}
	return nil
}

// Resend asks for a new code for state. The provider may rotate the token;
// the returned value is the one to use from now on.
func (c *Client) Resend(ctx context.Context, state string) (string, error) {
	var resp stateResponse
	if err := c.remote.PostJSON(ctx, "otp resend", "/resend", resendRequest{State: state}, &resp); err != nil {
		c.logger.Error("otp resend failed", logging.Err(err))
		return "", ErrProvider
	}
	if resp.State == "" {
		return state, nil
	}
	return resp.State, nil
}
