package common

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/johanforsgren/dbxutil/internal/logger"
)

const maxLoggedBody = 10000

// LoggingTransport wraps an http.RoundTripper to log requests and responses.
// Credentials are redacted and binary transfer bodies are never read.
type LoggingTransport struct {
	Transport http.RoundTripper
}

func NewLoggingTransport(transport http.RoundTripper) *LoggingTransport {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &LoggingTransport{
		Transport: transport,
	}
}

// NewHTTPClient returns a client using the logging transport. timeout bounds
// connecting and waiting for response headers; bodies may stream for as long
// as the transfer takes, so the client itself has no deadline.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: NewLoggingTransport(newBaseTransport(timeout)),
	}
}

func newBaseTransport(timeout time.Duration) http.RoundTripper {
	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok || timeout <= 0 {
		return http.DefaultTransport
	}
	transport := base.Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   timeout,
		KeepAlive: 30 * time.Second,
	}).DialContext
	transport.TLSHandshakeTimeout = timeout
	transport.ResponseHeaderTimeout = timeout
	return transport
}

func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	t.logRequest(req)

	resp, err := t.Transport.RoundTrip(req)

	duration := time.Since(start)

	if err != nil {
		logger.LogError("HTTP_REQUEST", fmt.Sprintf("%s %s", req.Method, req.URL.Path), err)
		return nil, err
	}

	t.logResponse(req, resp, duration)

	return resp, nil
}

func (t *LoggingTransport) logRequest(req *http.Request) {
	var buf bytes.Buffer

	buf.WriteString("=== HTTP REQUEST ===\n")
	buf.WriteString(fmt.Sprintf("%s %s://%s%s\n", req.Method, req.URL.Scheme, req.URL.Host, req.URL.Path))

	buf.WriteString("Headers:\n")
	for name, values := range req.Header {
		if isSensitiveHeader(name) {
			buf.WriteString(fmt.Sprintf("  %s: [REDACTED]\n", name))
			continue
		}
		for _, value := range values {
			buf.WriteString(fmt.Sprintf("  %s: %s\n", name, value))
		}
	}

	contentType := req.Header.Get("Content-Type")
	if req.Body != nil && req.ContentLength > 0 && req.ContentLength < maxLoggedBody && isTextContent(contentType) {
		bodyBytes, err := io.ReadAll(req.Body)
		if err == nil {
			req.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
			buf.WriteString(fmt.Sprintf("Body (%d bytes):\n", len(bodyBytes)))
			buf.WriteString(redactBody(contentType, bodyBytes))
			buf.WriteString("\n")
		}
	} else if req.ContentLength > 0 {
		buf.WriteString(fmt.Sprintf("Body: (%d bytes, not logged)\n", req.ContentLength))
	}

	buf.WriteString("===================")

	logger.Log("%s", buf.String())
}

func (t *LoggingTransport) logResponse(req *http.Request, resp *http.Response, duration time.Duration) {
	var buf bytes.Buffer

	buf.WriteString("=== HTTP RESPONSE ===\n")
	buf.WriteString(fmt.Sprintf("%s %s - %s (%v)\n", req.Method, req.URL.Path, resp.Status, duration))

	contentType := resp.Header.Get("Content-Type")
	if resp.Body != nil && resp.ContentLength != 0 && isTextContent(contentType) {
		bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxLoggedBody+1))
		if err == nil {
			resp.Body = readCloser{
				Reader: io.MultiReader(bytes.NewReader(bodyBytes), resp.Body),
				Closer: resp.Body,
			}

			if len(bodyBytes) > 0 && len(bodyBytes) <= maxLoggedBody {
				buf.WriteString(fmt.Sprintf("Body (%d bytes):\n", len(bodyBytes)))
				buf.WriteString(redactBody(contentType, bodyBytes))
				buf.WriteString("\n")
			} else if len(bodyBytes) > 0 {
				buf.WriteString("Body: (too large to log)\n")
			}
		}
	}

	buf.WriteString("====================")

	logger.Log("%s", buf.String())
}

type readCloser struct {
	io.Reader
	io.Closer
}

func isSensitiveHeader(name string) bool {
	lowerName := strings.ToLower(name)
	sensitiveHeaders := []string{
		"authorization",
		"x-api-key",
		"api-key",
		"x-auth-token",
		"cookie",
		"set-cookie",
	}

	for _, sensitive := range sensitiveHeaders {
		if lowerName == sensitive {
			return true
		}
	}

	return false
}

var sensitiveFields = []string{
	"access_token",
	"refresh_token",
	"client_secret",
	"code",
	"id_token",
}

func isSensitiveField(name string) bool {
	for _, field := range sensitiveFields {
		if name == field {
			return true
		}
	}
	return false
}

func isTextContent(contentType string) bool {
	return strings.HasPrefix(contentType, "application/json") ||
		strings.HasPrefix(contentType, "application/x-www-form-urlencoded") ||
		strings.HasPrefix(contentType, "text/")
}

// redactBody masks token-bearing fields of form and JSON bodies.
func redactBody(contentType string, body []byte) string {
	switch {
	case strings.HasPrefix(contentType, "application/x-www-form-urlencoded"):
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return "[UNPARSABLE FORM]"
		}
		for name := range values {
			if isSensitiveField(name) {
				values.Set(name, "[REDACTED]")
			}
		}
		return values.Encode()

	case strings.HasPrefix(contentType, "application/json"):
		var fields map[string]any
		if err := json.Unmarshal(body, &fields); err != nil {
			return string(body)
		}
		for name := range fields {
			if isSensitiveField(name) {
				fields[name] = "[REDACTED]"
			}
		}
		redacted, err := json.Marshal(fields)
		if err != nil {
			return "[UNPARSABLE JSON]"
		}
		return string(redacted)
	}

	return string(body)
}
