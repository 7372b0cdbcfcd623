package publish

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"webmake/internal/domain"
)

// maxResponseBytes caps how much of a provider response is read.
const maxResponseBytes = 1 << 20

// DeployError is a non-2xx answer from a provider API.
type DeployError struct {
	Provider domain.Provider
	Status   int
	Body     string
}

func (e *DeployError) Error() string {
	return fmt.Sprintf("%s deploy failed (status %d): %s", e.Provider, e.Status, e.Body)
}

// errMalformedResponse marks a 2xx response whose body could not be used.
var errMalformedResponse = errors.New("malformed provider response")

// send performs req and returns the body of a 2xx response. Non-2xx
// responses become a *DeployError carrying the raw body.
func send(client *http.Client, p domain.Provider, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &DeployError{Provider: p, Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
