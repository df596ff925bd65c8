package provider

import (
	"fmt"
	"io"
	"net/http"

	"github.com/briefing/backend/internal/domain/provider"
)

// maxResponseSize limits provider response bodies to prevent memory exhaustion
const maxResponseSize = 10 * 1024 * 1024 // 10MB max response

// doRequest executes a prepared request against a provider API and maps
// transport and HTTP failures onto the provider sentinel errors.
func doRequest(client *http.Client, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", provider.ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: HTTP %d", provider.ErrAuthFailed, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: HTTP %d", provider.ErrRateLimited, resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: HTTP %d", provider.ErrRequestFailed, resp.StatusCode)
	}

	return body, nil
}
