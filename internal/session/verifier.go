package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrRejected is returned by a Verifier when the remote authority answered but did
// not confirm the credential.
var ErrRejected = errors.New("session rejected by remote authority")

// Verifier asks the remote authority whether a credential is still valid.
// Any non-nil error means "not authorized".
type Verifier interface {
	Verify(ctx context.Context, c Credential) error
}

// verifyResponse is the structured indicator returned by the verification endpoint.
type verifyResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// HTTPVerifier calls the session-verification endpoint with the bearer token.
type HTTPVerifier struct {
	URL     string
	Client  *http.Client
	Timeout time.Duration
}

// NewHTTPVerifier returns a verifier for url bounded by timeout.
func NewHTTPVerifier(url string, timeout time.Duration) *HTTPVerifier {
	return &HTTPVerifier{
		URL:     url,
		Client:  &http.Client{},
		Timeout: timeout,
	}
}

func (v *HTTPVerifier) Verify(ctx context.Context, c Credential) error {
	if v.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.URL, nil)
	if err != nil {
		return fmt.Errorf("build verify request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("X-Subject-Id", c.SubjectID)
	req.Header.Set("Accept", "application/json")

	resp, err := v.Client.Do(req)
	if err != nil {
		return fmt.Errorf("verify request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
	}

	var body verifyResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&body); err != nil {
		return fmt.Errorf("decode verify response: %w", err)
	}
	if !body.Success {
		return fmt.Errorf("%w: %s", ErrRejected, body.Message)
	}
	return nil
}
