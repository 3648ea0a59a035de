// Package isapi is a client for the ISAPI HTTP interface of
// Hikvision-derived NVR/DVR devices: recording search, media download and a
// few system calls. Authentication (none, Basic or Digest) is negotiated once
// per client with Negotiate and reused for every request after that.
package isapi

import (
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"
)

const (
	timePath     = "/ISAPI/System/time"
	searchPath   = "/ISAPI/ContentMgmt/search/"
	downloadPath = "/ISAPI/ContentMgmt/download"
	rebootPath   = "/ISAPI/System/reboot"

	// maxErrorBody bounds how much of an error response is read back.
	maxErrorBody = 64 << 10
)

// Credentials is a username/password pair for the device.
type Credentials struct {
	Username string
	Password string
}

// Options tune a Client. Zero values fall back to defaults.
type Options struct {
	// Timeout bounds the probe and each search page request, and the
	// connection/header phase of downloads.
	Timeout time.Duration
	// PageSize is the maxResults value sent per search request.
	PageSize int
	// PageCap is the hard limit on search pages per listing.
	PageCap int
	Logger  *slog.Logger
}

const (
	defaultTimeout  = 10 * time.Second
	defaultPageSize = 50
	defaultPageCap  = 64
)

// Client talks to one device.
type Client struct {
	address  string
	creds    Credentials
	log      *slog.Logger
	timeout  time.Duration
	pageSize int
	pageCap  int

	http *http.Client
	auth AuthKind
}

// New returns an unauthenticated client for the device at address (host or
// host:port). Call Negotiate before issuing other requests.
func New(address string, creds Credentials, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}
	if opts.PageCap <= 0 {
		opts.PageCap = defaultPageCap
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Client{
		address:  address,
		creds:    creds,
		log:      opts.Logger,
		timeout:  opts.Timeout,
		pageSize: opts.PageSize,
		pageCap:  opts.PageCap,
		// No overall client timeout: it would cut long segment streams.
		// Per-request deadlines come from contexts, connection setup from
		// the transport.
		http: &http.Client{Transport: baseTransport(opts.Timeout)},
	}
}

func baseTransport(timeout time.Duration) *http.Transport {
	return &http.Transport{
		DialContext:           (&net.Dialer{Timeout: timeout}).DialContext,
		ResponseHeaderTimeout: timeout,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       30 * time.Second,
	}
}

// Address returns the device address the client was built for.
func (c *Client) Address() string {
	return c.address
}

func (c *Client) url(path string) string {
	return "http://" + c.address + path
}

// do issues one request. ISAPI expects XML bodies even on GET requests.
func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.url(path), reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/xml")
	}
	if c.auth == AuthBasic {
		req.SetBasicAuth(c.creds.Username, c.creds.Password)
	}
	return c.http.Do(req)
}

// deviceError drains resp and turns its ResponseStatus body into a
// *DeviceError. The response body is closed.
func (c *Client) deviceError(resp *http.Response) error {
	defer resp.Body.Close()
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return parseDeviceError(resp.StatusCode, data)
}

func parseDeviceError(httpStatus int, data []byte) error {
	devErr := &DeviceError{HTTPStatus: httpStatus}
	var status responseStatus
	if err := xml.Unmarshal(data, &status); err == nil && status.StatusString != "" {
		devErr.Message = status.StatusString
		devErr.Code = status.SubStatusCode
	} else {
		devErr.Message = string(bytes.TrimSpace(data))
	}
	return devErr
}
