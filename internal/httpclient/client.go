package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// AuthProvider supplies authentication tokens and injects them into HTTP requests.
type AuthProvider interface {
	Token(ctx context.Context) (string, error)
	InjectHeader(ctx context.Context, req *http.Request) error
	Close() error
}

// RequestBuilder builds requests against a single target API rooted at a
// base path (e.g. https://api.example.com + /api/v1).
type RequestBuilder struct {
	root    string
	headers http.Header
}

func NewRequestBuilder(target, basePath string, headers map[string]string) (*RequestBuilder, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, errors.New("target URL is required")
	}
	parsed, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("invalid target %q: %w", target, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid target %q: scheme must be http or https", target)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("invalid target %q: host is required", target)
	}

	root := strings.TrimRight(parsed.String(), "/")
	if trimmed := strings.Trim(strings.TrimSpace(basePath), "/"); trimmed != "" {
		root += "/" + trimmed
	}

	hdrs := http.Header{}
	for key, value := range headers {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			return nil, fmt.Errorf("invalid header key %q", key)
		}
		if strings.ContainsAny(trimmedKey, "\r\n") {
			return nil, fmt.Errorf("invalid header key %q", key)
		}
		canonicalKey := http.CanonicalHeaderKey(trimmedKey)
		if strings.ContainsAny(value, "\r\n") {
			return nil, fmt.Errorf("invalid header value for %s", canonicalKey)
		}
		hdrs.Set(canonicalKey, value)
	}

	return &RequestBuilder{root: root, headers: hdrs}, nil
}

// URL resolves an API path (e.g. "/decks/abc/") against the builder's root.
func (b *RequestBuilder) URL(path string) string {
	if path == "" {
		return b.root + "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return b.root + path
}

// Build creates a request for method and path. body may be nil. When
// provider is non-nil its token is injected as a bearer Authorization header.
func (b *RequestBuilder) Build(ctx context.Context, method, path string, body BodySource, provider AuthProvider) (*http.Request, error) {
	if b == nil {
		return nil, errors.New("builder cannot be nil")
	}

	if ctx == nil {
		ctx = context.Background()
	}
	if body == nil {
		body = emptyBodySource{}
	}

	reader, err := body.NewReader()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(method), b.URL(path), reader)
	if err != nil {
		_ = reader.Close()
		return nil, err
	}

	req.Header = make(http.Header, len(b.headers)+2)
	for key, values := range b.headers {
		for _, val := range values {
			req.Header.Add(key, val)
		}
	}
	if ct := body.ContentType(); ct != "" {
		req.Header.Set("Content-Type", ct)
	}
	req.Header.Set("Accept", "application/json")

	if length, ok := body.ContentLength(); ok {
		req.ContentLength = length
		if length == 0 {
			_ = req.Body.Close()
			req.Body = http.NoBody
		}
	}

	if req.Body != http.NoBody {
		req.GetBody = func() (io.ReadCloser, error) {
			return body.NewReader()
		}
	}

	if provider != nil {
		if err := provider.InjectHeader(ctx, req); err != nil {
			return nil, fmt.Errorf("auth provider inject header: %w", err)
		}
	}

	return req, nil
}

func NewClient(timeout time.Duration) *http.Client {
	if timeout < 0 {
		timeout = 0
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          256,
		MaxIdleConnsPerHost:   32,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
