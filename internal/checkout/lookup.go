package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// AddressLookup fetches the shopper's saved delivery address. A nil address with a
// nil error means nothing is saved.
type AddressLookup interface {
	Lookup(ctx context.Context, subjectID, token string) (*Address, error)
}

type lookupResponse struct {
	Address *Address `json:"address"`
}

// HTTPAddressLookup calls the address-lookup endpoint, keyed by subject id.
type HTTPAddressLookup struct {
	BaseURL string
	Client  *http.Client
	Timeout time.Duration
}

func NewHTTPAddressLookup(baseURL string, timeout time.Duration) *HTTPAddressLookup {
	return &HTTPAddressLookup{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{},
		Timeout: timeout,
	}
}

func (l *HTTPAddressLookup) Lookup(ctx context.Context, subjectID, token string) (*Address, error) {
	if l.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.BaseURL+"/"+url.PathEscape(subjectID), nil)
	if err != nil {
		return nil, fmt.Errorf("build address request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := l.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("address request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusNoContent:
		return nil, nil
	default:
		return nil, fmt.Errorf("address lookup: unexpected status %d", resp.StatusCode)
	}

	var body lookupResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode address response: %w", err)
	}
	if body.Address == nil || FormatAddress(*body.Address) == "" {
		return nil, nil
	}
	return body.Address, nil
}
