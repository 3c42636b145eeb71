package vault

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"weightvault/pkg/correlation"
	"weightvault/pkg/logging"
	"weightvault/pkg/weights"
)

// DefaultURL is the get-weights endpoint of a vault running locally
const DefaultURL = "http://localhost:3000/api/get-weights"

// requiredFields are checked in the order the package is read
var requiredFields = []string{"origin_document", "id", "weights"}

// Client fetches weight packages from a vault
type Client struct {
	base   *url.URL
	httpc  *http.Client
	logger logging.Logger
}

// NewClient creates a client for the given get-weights endpoint.
// A nil httpc gets a plain client with no timeout.
func NewClient(addr string, httpc *http.Client, logger logging.Logger) (*Client, error) {
	base, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse vault address: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("vault address %q must be absolute", addr)
	}
	if httpc == nil {
		httpc = &http.Client{}
	}
	return &Client{
		base:   base,
		httpc:  httpc,
		logger: logger,
	}, nil
}

// URLFor returns the request URL for a weight-set identifier
func (c *Client) URLFor(id string) string {
	u := *c.base
	q := u.Query()
	q.Set("id", id)
	u.RawQuery = q.Encode()
	return u.String()
}

// Fetch issues a single GET for id and decodes the package.
// Errors are one of *NetworkError, *HTTPError, *ParseError or *MissingFieldError.
func (c *Client) Fetch(ctx context.Context, id string) (*weights.Package, error) {
	target := c.URLFor(id)
	reqLog := c.logger.WithField("url", target)
	if runID, ok := correlation.FromContext(ctx); ok {
		reqLog = reqLog.WithCorrelationID(runID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &NetworkError{URL: target, Err: err}
	}

	reqLog.Debug("Requesting weight package")
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, &NetworkError{URL: target, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{URL: target, Err: fmt.Errorf("read body: %w", err)}
	}

	reqLog.WithFields(map[string]interface{}{
		"status_code": resp.StatusCode,
		"bytes":       len(body),
	}).Debug("Vault responded")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{URL: target, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	return decodePackage(body)
}

func decodePackage(body []byte) (*weights.Package, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, &ParseError{Err: err}
	}
	if fields == nil {
		return nil, &ParseError{Err: fmt.Errorf("expected JSON object, got null")}
	}
	for _, name := range requiredFields {
		if _, ok := fields[name]; !ok {
			return nil, &MissingFieldError{Field: name}
		}
	}

	var pkg weights.Package
	if err := json.Unmarshal(body, &pkg); err != nil {
		return nil, &ParseError{Err: err}
	}
	return &pkg, nil
}
