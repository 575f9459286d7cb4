package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/tartampluch/remindme/internal/config"
)

// ErrTooLarge is returned while reading an address book bigger than the
// fetcher's limit. A truncated book would import only part of its cards.
var ErrTooLarge = errors.New(config.ErrFetchTooLarge)

// RemoteSource is a CardDAV or WebDAV address book.
type RemoteSource struct {
	URL      string `json:"url" validate:"required,url"`
	User     string `json:"user"`
	Password string `json:"password"`
}

// endpoint validates the address and returns the form safe to log, without
// credentials or query string.
func (s RemoteSource) endpoint() (string, error) {
	u, err := url.Parse(s.URL)
	if err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrInvalidURL, err)
	}
	if u.Scheme != config.SchemeHTTP && u.Scheme != config.SchemeHTTPS {
		return "", fmt.Errorf("%s: %s", config.ErrProtocol, u.Scheme)
	}
	return (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: u.Path}).String(), nil
}

// VCardFetcher downloads a remote address book.
type VCardFetcher interface {
	Fetch(ctx context.Context, src RemoteSource) (io.ReadCloser, error)
}

// HTTPFetcher downloads address books over HTTP(S).
type HTTPFetcher struct {
	Client   *http.Client
	MaxBytes int64
}

func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		Client:   &http.Client{Timeout: config.HTTPTimeout},
		MaxBytes: config.MaxHTTPResponseSize,
	}
}

// Fetch opens the address book. Any 2xx answer is accepted; a body larger
// than MaxBytes fails with ErrTooLarge, up front when the server declares
// its length and otherwise while reading.
func (f *HTTPFetcher) Fetch(ctx context.Context, src RemoteSource) (io.ReadCloser, error) {
	endpoint, err := src.endpoint()
	if err != nil {
		return nil, err
	}
	log := slog.With(config.LogKeyComponent, config.CompFetcher, config.LogKeyURL, endpoint)
	log.DebugContext(ctx, config.MsgFetchStart)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrFetchRequest, err)
	}
	req.Header.Set(config.HeaderUserAgent, config.UserAgent)
	req.Header.Set(config.HeaderAccept, config.AcceptVCard)
	if src.User != "" || src.Password != "" {
		req.SetBasicAuth(src.User, src.Password)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrFetchNetwork, err)
	}

	switch {
	case resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices:
		_ = resp.Body.Close()
		log.WarnContext(ctx, config.MsgFetchStatus, config.LogKeyStatus, resp.StatusCode)
		return nil, fmt.Errorf("%s: %s", config.ErrFetchStatus, resp.Status)
	case resp.ContentLength > f.MaxBytes:
		_ = resp.Body.Close()
		return nil, ErrTooLarge
	}

	log.InfoContext(ctx, config.MsgFetchDownload, config.LogKeyLength, resp.ContentLength)
	return &cappedBody{body: resp.Body, left: f.MaxBytes}, nil
}

// cappedBody reads at most left bytes and reports ErrTooLarge when the body
// goes on past them.
type cappedBody struct {
	body io.ReadCloser
	left int64
}

func (c *cappedBody) Read(p []byte) (int, error) {
	if c.left <= 0 {
		// One more byte tells a body of exactly the limit from a longer one.
		var extra [1]byte
		for {
			n, err := c.body.Read(extra[:])
			if n > 0 {
				return 0, ErrTooLarge
			}
			if err != nil {
				return 0, err
			}
		}
	}
	if int64(len(p)) > c.left {
		p = p[:c.left]
	}
	n, err := c.body.Read(p)
	c.left -= int64(n)
	return n, err
}

func (c *cappedBody) Close() error { return c.body.Close() }
