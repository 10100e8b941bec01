// Package backend is the HTTP client for the face-training API.
//
// Every call returns a Response carrying the status code, the decoded payload
// and the raw body. A non-nil error means no usable response exists: the
// request never completed (ErrTransport), the 2xx body could not be decoded
// (ErrDecode), or local input was invalid. Business outcomes such as 403 are
// not errors; use Response.Outcome.
package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
)

var (
	ErrTransport = errors.New("backend unreachable")
	ErrDecode    = errors.New("unexpected response body")
)

// TransportError is returned when a request could not be sent or its
// response could not be read.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeRejected
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeRejected:
		return "rejected"
	default:
		return "failed"
	}
}

type Response[T any] struct {
	StatusCode int
	Body       *T
	Raw        string
}

// Outcome classifies the status: 200 is OK, 403 a business rejection,
// anything else a failure. A 200 body may still carry a negative result.
func (r *Response[T]) Outcome() Outcome {
	switch r.StatusCode {
	case http.StatusOK:
		return OutcomeOK
	case http.StatusForbidden:
		return OutcomeRejected
	default:
		return OutcomeFailed
	}
}

type Client struct {
	baseURL  string
	http     *http.Client
	log      *slog.Logger
	progress io.Writer
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithProgress draws an upload progress bar on w.
func WithProgress(w io.Writer) Option {
	return func(c *Client) { c.progress = w }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "invalid base URL")
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("invalid base URL %q: scheme and host required", baseURL)
	}

	c := &Client{
		baseURL: strings.TrimRight(u.String(), "/"),
		http:    &http.Client{},
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) resolveURL(endpoint string) string {
	return c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.resolveURL(endpoint), body)
	if err != nil {
		return nil, errors.Wrap(err, "could not create request")
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// newUpload builds a POST with a fully buffered body so Content-Length is
// always sent.
func (c *Client) newUpload(ctx context.Context, endpoint string, body *bytes.Buffer, contentType string) (*http.Request, error) {
	size := int64(body.Len())

	var r io.Reader = body
	if c.progress != nil {
		bar := progressbar.NewOptions64(size,
			progressbar.OptionSetWriter(c.progress),
			progressbar.OptionSetDescription("Uploading"),
			progressbar.OptionShowBytes(true),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "=",
				SaucerHead:    ">",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
		)
		r = io.TeeReader(body, bar)
	}

	req, err := c.newRequest(ctx, http.MethodPost, endpoint, r)
	if err != nil {
		return nil, err
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", contentType)
	return req, nil
}

// do sends req and decodes the body when the status is one of expected.
// Other statuses get a best-effort decode.
func do[T any](c *Client, req *http.Request, decode func(io.Reader) (*T, error), expected ...int) (*Response[T], error) {
	if len(expected) == 0 {
		expected = []int{http.StatusOK}
	}

	id := uuid.NewString()
	req.Header.Set("X-Request-ID", id)
	log := c.log.With("method", req.Method, "path", req.URL.Path, "request_id", id)

	resp, err := c.http.Do(req)
	if err != nil {
		log.Error("Request failed", "error", err)
		return nil, &TransportError{Method: req.Method, Path: req.URL.Path, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error("Could not read response", "status", resp.StatusCode, "error", err)
		return nil, &TransportError{Method: req.Method, Path: req.URL.Path, Err: err}
	}
	log.Debug("Request completed", "status", resp.StatusCode, "bytes", len(raw))

	res := &Response[T]{StatusCode: resp.StatusCode, Raw: string(raw)}
	body, err := decode(bytes.NewReader(raw))
	if slices.Contains(expected, resp.StatusCode) {
		if err != nil {
			log.Error("Could not decode response", "status", resp.StatusCode, "error", err)
			return nil, errors.Wrapf(ErrDecode, "%s %s: %v", req.Method, req.URL.Path, err)
		}
		res.Body = body
	} else if err == nil {
		res.Body = body
	}
	return res, nil
}
