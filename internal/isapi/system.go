package isapi

import (
	"context"
	"encoding/xml"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// TimeOffset reads the device's configured timezone and returns its UTC
// offset. Devices report it POSIX-style ("CST-8:00:00" means UTC+8).
func (c *Client) TimeOffset(ctx context.Context) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	resp, err := c.do(ctx, http.MethodGet, timePath, nil)
	if err != nil {
		return 0, fmt.Errorf("reading device time from %s: %w", c.address, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, c.deviceError(resp)
	}

	var info timeInfo
	if err := xml.NewDecoder(resp.Body).Decode(&info); err != nil {
		return 0, fmt.Errorf("decoding device time: %w", err)
	}
	return parseTimeZone(info.TimeZone)
}

var tzPrefix = regexp.MustCompile(`^[A-Za-z]+`)

func parseTimeZone(raw string) (time.Duration, error) {
	text := tzPrefix.ReplaceAllString(strings.TrimSpace(raw), "")
	parts := strings.Split(text, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("unrecognized device timezone %q", raw)
	}
	hours, err1 := strconv.Atoi(parts[0])
	minutes, err2 := strconv.Atoi(parts[1])
	seconds, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, fmt.Errorf("unrecognized device timezone %q", raw)
	}
	if hours < 0 {
		minutes, seconds = -minutes, -seconds
	}
	offset := time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second
	// The sign on the wire is inverted relative to the UTC offset.
	return -offset, nil
}

// Reboot asks the device to restart itself.
func (c *Client) Reboot(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	resp, err := c.do(ctx, http.MethodPut, rebootPath, nil)
	if err != nil {
		return fmt.Errorf("rebooting %s: %w", c.address, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.deviceError(resp)
	}
	return nil
}

// WaitUntilUp polls the device's HTTP port until it accepts a TCP connection
// or ctx expires. It reports whether the device came back.
func (c *Client) WaitUntilUp(ctx context.Context) bool {
	addr := c.address
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, "80")
	}
	for {
		conn, err := net.DialTimeout("tcp", addr, c.timeout)
		if err == nil {
			conn.Close()
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(time.Second):
		}
	}
}
