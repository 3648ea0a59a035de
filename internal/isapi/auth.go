package isapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/icholy/digest"
)

// AuthKind identifies the authentication scheme negotiated with a device.
type AuthKind int

const (
	AuthNone AuthKind = iota
	AuthBasic
	AuthDigest
)

func (k AuthKind) String() string {
	switch k {
	case AuthBasic:
		return "basic"
	case AuthDigest:
		return "digest"
	default:
		return "none"
	}
}

// Auth returns the scheme selected by Negotiate.
func (c *Client) Auth() AuthKind {
	return c.auth
}

// Negotiate probes the device once to pick an authentication scheme, then
// verifies it with a second probe. The chosen scheme is used for every later
// request on this client.
//
// A network failure is fatal and returned as-is; a 401 that survives the
// negotiated scheme is ErrUnauthorized.
func (c *Client) Negotiate(ctx context.Context) error {
	status, header, body, err := c.probe(ctx)
	if err != nil {
		return fmt.Errorf("probing %s: %w", c.address, err)
	}
	switch {
	case status == http.StatusOK:
		c.log.Debug("device accepts unauthenticated requests", "device", c.address)
		return nil
	case status != http.StatusUnauthorized:
		return parseDeviceError(status, body)
	}

	challenge := strings.ToLower(strings.Join(header.Values("Www-Authenticate"), " "))
	if strings.Contains(challenge, "digest") {
		c.auth = AuthDigest
		c.http.Transport = &digest.Transport{
			Username:  c.creds.Username,
			Password:  c.creds.Password,
			Transport: baseTransport(c.timeout),
		}
	} else {
		c.auth = AuthBasic
	}

	// Verify the selected scheme before the run commits to it.
	status, _, body, err = c.probe(ctx)
	if err != nil {
		return fmt.Errorf("probing %s: %w", c.address, err)
	}
	switch {
	case status == http.StatusOK:
		c.log.Debug("authenticated", "device", c.address, "scheme", c.auth)
		return nil
	case status == http.StatusUnauthorized:
		return fmt.Errorf("%w (%s auth)", ErrUnauthorized, c.auth)
	default:
		return parseDeviceError(status, body)
	}
}

// probe hits the system time endpoint and consumes the response while the
// request deadline is still live.
func (c *Client) probe(ctx context.Context) (int, http.Header, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	resp, err := c.do(ctx, http.MethodGet, timePath, nil)
	if err != nil {
		return 0, nil, nil, err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return resp.StatusCode, resp.Header, body, nil
}
