package relay

import (
	"context"
	"net"
	"net/url"
	"time"

	"github.com/go-faster/errors"
)

// Prober reports whether the relay looks reachable before a submission is
// attempted. A nil error means online.
type Prober interface {
	Probe(ctx context.Context) error
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context) error

// Probe calls f.
func (f ProberFunc) Probe(ctx context.Context) error { return f(ctx) }

// DialProber checks connectivity by opening a TCP connection to the relay host.
type DialProber struct {
	addr    string
	timeout time.Duration
	dialer  net.Dialer
}

// NewDialProber returns a prober for the host of endpoint.
func NewDialProber(endpoint string, timeout time.Duration) (*DialProber, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, errors.Wrap(err, "parse relay endpoint")
	}
	if u.Hostname() == "" {
		return nil, errors.Errorf("relay endpoint %q has no host", endpoint)
	}

	port := u.Port()
	if port == "" {
		port = "443"
		if u.Scheme == "http" {
			port = "80"
		}
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &DialProber{addr: net.JoinHostPort(u.Hostname(), port), timeout: timeout}, nil
}

// Probe dials the relay host. Any dial failure is reported as ErrOffline.
func (p *DialProber) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	conn, err := p.dialer.DialContext(ctx, "tcp", p.addr)
	if err != nil {
		return errors.Wrapf(ErrOffline, "dial %s: %s", p.addr, err)
	}
	_ = conn.Close()
	return nil
}
