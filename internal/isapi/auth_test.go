package isapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	addr := strings.TrimPrefix(srv.URL, "http://")
	return New(addr, Credentials{Username: "admin", Password: "secret"}, Options{Logger: testLogger()})
}

func TestNegotiateNone(t *testing.T) {
	probes := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		probes++
		w.Write([]byte(`<Time><timeMode>NTP</timeMode><timeZone>CST-8:00:00</timeZone></Time>`))
	}))
	defer srv.Close()

	c := testClient(t, srv)
	if err := c.Negotiate(context.Background()); err != nil {
		t.Fatal(err)
	}
	if c.Auth() != AuthNone {
		t.Errorf("auth = %v, want none", c.Auth())
	}
	if probes != 1 {
		t.Errorf("probes = %d, want 1", probes)
	}
}

func TestNegotiateBasic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "admin" || pass != "secret" {
			w.Header().Set("WWW-Authenticate", `Basic realm="device"`)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`<Time><timeZone>CST-8:00:00</timeZone></Time>`))
	}))
	defer srv.Close()

	c := testClient(t, srv)
	if err := c.Negotiate(context.Background()); err != nil {
		t.Fatal(err)
	}
	if c.Auth() != AuthBasic {
		t.Errorf("auth = %v, want basic", c.Auth())
	}
}

func TestNegotiateDigest(t *testing.T) {
	challenges := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Digest ") || !strings.Contains(auth, `username="admin"`) {
			challenges++
			w.Header().Set("WWW-Authenticate", `Digest realm="device", qop="auth", nonce="6bc17f4f9a"`)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`<Time><timeZone>CST-8:00:00</timeZone></Time>`))
	}))
	defer srv.Close()

	c := testClient(t, srv)
	if err := c.Negotiate(context.Background()); err != nil {
		t.Fatal(err)
	}
	if c.Auth() != AuthDigest {
		t.Errorf("auth = %v, want digest", c.Auth())
	}

	// The challenge is cached: later requests are signed up front without a
	// fresh 401 round trip.
	before := challenges
	if _, err := c.TimeOffset(context.Background()); err != nil {
		t.Fatal(err)
	}
	if challenges != before {
		t.Errorf("got %d extra challenges after negotiation", challenges-before)
	}
}

func TestNegotiateBadCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("WWW-Authenticate", `Basic realm="device"`)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := testClient(t, srv)
	if err := c.Negotiate(context.Background()); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("error = %v, want ErrUnauthorized", err)
	}
}

func TestNegotiateConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // negotiate against a dead server

	c := testClient(t, srv)
	err := c.Negotiate(context.Background())
	if err == nil {
		t.Fatal("expected error for unreachable device")
	}
	if errors.Is(err, ErrUnauthorized) {
		t.Errorf("connection failure misreported as unauthorized: %v", err)
	}
}
