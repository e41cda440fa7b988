package lastfm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
)

// callOptions describes how a method is authorized.
type callOptions struct {
	signed  bool // add api_sig
	session bool // add sk; implies signed
}

var (
	unsigned      = callOptions{}
	signed        = callOptions{signed: true}
	signedSession = callOptions{signed: true, session: true}
)

// errorResponse is the envelope Last.fm uses for method failures.
type errorResponse struct {
	Error   int    `json:"error"`
	Message string `json:"message"`
}

// call makes a single HTTP request to the Last.fm API and returns the raw
// JSON body.
//
// It handles:
//   - adding method, api_key and (for session methods) sk
//   - signing, then appending api_sig and format=json
//   - percent-encoding the form body
//   - mapping error fields and HTTP failures onto typed errors
//
// There is no retry; a failed call is reported once.
func (c *Client) call(ctx context.Context, method string, params map[string]string, opts callOptions) ([]byte, error) {
	reqParams := make(map[string]string, len(params)+5)
	for k, v := range params {
		reqParams[k] = v
	}
	reqParams["method"] = method
	reqParams["api_key"] = c.apiKey

	if opts.session {
		sk := c.SessionKey()
		if sk == "" {
			return nil, ErrNoSessionKey
		}
		reqParams["sk"] = sk
	}

	if opts.signed || opts.session {
		reqParams["api_sig"] = Sign(reqParams, c.apiSecret)
	}
	reqParams["format"] = "json"

	c.logDebugf("lastfm: calling %s", method)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(encodeForm(reqParams)))
	if err != nil {
		return nil, fmt.Errorf("lastfm: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Method: method, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Method: method, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	// Last.fm reports method failures with an error field, sometimes
	// alongside a 4xx status, so look for it before the status code.
	if bytes.Contains(body, []byte(`"error"`)) {
		var apiErr errorResponse
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != 0 {
			c.logDebugf("lastfm: %s failed: %d %s", method, apiErr.Error, apiErr.Message)
			return nil, providerError(method, apiErr.Error, apiErr.Message)
		}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{
			Method:     method,
			StatusCode: resp.StatusCode,
			Err:        errors.New(http.StatusText(resp.StatusCode)),
		}
	}

	c.logDebugf("lastfm: %s succeeded", method)
	return body, nil
}

// decode unmarshals a successful response body into v.
func decode(method string, body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("lastfm: failed to parse %s response: %w", method, err)
	}
	return nil
}

// encodeForm renders params as an application/x-www-form-urlencoded body.
// Keys are sorted so the body is deterministic.
func encodeForm(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(percentEncode(k))
		b.WriteByte('=')
		b.WriteString(percentEncode(params[k]))
	}
	return b.String()
}

const upperHex = "0123456789ABCDEF"

// percentEncode escapes every byte outside the unreserved set
// A-Z a-z 0-9 - _ . ~ as %XX. Spaces become %20, not '+'.
func percentEncode(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperHex[c>>4])
		b.WriteByte(upperHex[c&15])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z', '0' <= c && c <= '9':
		return true
	case c == '-', c == '_', c == '.', c == '~':
		return true
	}
	return false
}
