package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"smogdash/internal/modules/smog/types"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 8 << 20
)

// Fetcher downloads the smog feed and picks the record for one postal code.
type Fetcher struct {
	client   *http.Client
	endpoint string
	postCode string
	logger   *slog.Logger
}

type Option func(*Fetcher)

func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

// WithTimeout sets the request timeout on a copy of the current client, so
// it composes with WithHTTPClient in either order.
func WithTimeout(timeout time.Duration) Option {
	return func(f *Fetcher) {
		var client http.Client
		if f.client != nil {
			client = *f.client
		}
		client.Timeout = timeout
		f.client = &client
	}
}

func WithPostCode(postCode string) Option {
	return func(f *Fetcher) {
		f.postCode = postCode
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// New returns a Fetcher for endpoint, usually built with BuildURL.
func New(endpoint string, opts ...Option) *Fetcher {
	f := &Fetcher{
		client:   &http.Client{Timeout: defaultTimeout},
		endpoint: endpoint,
		postCode: types.TargetPostCode,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// BuildURL wraps upstream in the relay as ?url=<upstream>. An empty relay
// returns upstream unchanged.
func BuildURL(relay, upstream string) (string, error) {
	if relay == "" {
		return upstream, nil
	}
	u, err := url.Parse(relay)
	if err != nil {
		return "", fmt.Errorf("parse relay url %q: %w", relay, err)
	}
	q := u.Query()
	q.Set("url", upstream)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (f *Fetcher) Endpoint() string {
	return f.endpoint
}

func (f *Fetcher) PostCode() string {
	return f.postCode
}

// Fetch performs one GET and returns the record for the configured postal
// code. Errors wrap ErrNetwork, ErrHTTPStatus, ErrParse or ErrNotFound.
func (f *Fetcher) Fetch(ctx context.Context) (*types.StationRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			f.logger.Warn("close response body", "error", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, &StatusError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrNetwork, err)
	}
	if len(body) > maxBodyBytes {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", ErrParse, maxBodyBytes)
	}

	f.logger.Debug("smog feed downloaded", "bytes", len(body), "status", resp.StatusCode)

	return selectStation(body, f.postCode)
}

// selectStation decodes a feed and returns the first record whose postal
// code matches. Only the matched record has to be complete.
func selectStation(body []byte, postCode string) (*types.StationRecord, error) {
	var feed wireResponse
	if err := json.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	if feed.SmogData == nil {
		return nil, fmt.Errorf("%w: missing smog_data", ErrParse)
	}

	want := normalizePostCode(postCode)
	for i, node := range *feed.SmogData {
		if node.School == nil || node.School.PostCode == nil {
			continue
		}
		if normalizePostCode(*node.School.PostCode) != want {
			continue
		}
		rec, err := node.toRecord()
		if err != nil {
			return nil, fmt.Errorf("%w: smog_data[%d]: %w", ErrParse, i, err)
		}
		return rec, nil
	}
	return nil, fmt.Errorf("%w: post code %q", ErrNotFound, postCode)
}

func normalizePostCode(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
