// Package api holds one function per backend endpoint. Functions take the
// HTTP client and base URL explicitly; authentication is added by the
// client's transport. Every failure is an *errors.Error.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	sdkerrors "github.com/meetupz/meetupz/client/internal/errors"
)

// HTTPClient is the subset of *http.Client used here.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// maxBody bounds how much of a response body is read.
const maxBody = 8 << 20

// do sends one request and decodes a 2xx JSON body into out (if non-nil).
// Empty 2xx bodies are accepted and leave out untouched.
func do(ctx context.Context, hc HTTPClient, op, method, endpoint string, in, out any) error {
	if err := ctx.Err(); err != nil {
		return sdkerrors.NewNetworkError(op, err)
	}
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return sdkerrors.NewValidationError(op, "body", err.Error())
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return sdkerrors.NewNetworkError(op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := hc.Do(req)
	if err != nil {
		return sdkerrors.NewNetworkError(op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return sdkerrors.NewNetworkError(op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return sdkerrors.NewHTTPError(op, resp.StatusCode, raw)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return sdkerrors.NewDecodeError(op, err)
	}
	return nil
}

// join builds baseURL + path segments, escaping each segment.
func join(baseURL string, segments ...string) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(baseURL, "/"))
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}
