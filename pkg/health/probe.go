package health

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/go-go-golems/stackctl/pkg/config"
	"github.com/go-go-golems/stackctl/pkg/runtime"
	"github.com/pkg/errors"
)

// Target is what a probe gets to look at.
type Target struct {
	Service string
	Runtime runtime.Runtime
	State   runtime.State
}

// Probe returns nil when the service is ready.
type Probe interface {
	Probe(ctx context.Context, t Target) error
}

type ProbeFunc func(ctx context.Context, t Target) error

func (f ProbeFunc) Probe(ctx context.Context, t Target) error { return f(ctx, t) }

// ProcessRunning passes whenever liveness passed.
func ProcessRunning() Probe {
	return ProbeFunc(func(ctx context.Context, t Target) error {
		if !t.State.Running {
			return errors.New("not running")
		}
		return nil
	})
}

func PortOpen(host string, port int) Probe {
	if host == "" {
		host = "127.0.0.1"
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	return ProbeFunc(func(ctx context.Context, t Target) error {
		d := net.Dialer{Timeout: time.Second}
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return errors.Wrapf(err, "dial %s", addr)
		}
		_ = conn.Close()
		return nil
	})
}

// HTTPEndpoint passes on any 2xx or 3xx response.
func HTTPEndpoint(url string) Probe {
	client := &http.Client{
		Timeout: 2 * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return ProbeFunc(func(ctx context.Context, t Target) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return errors.Wrap(err, "build request")
		}
		resp, err := client.Do(req)
		if err != nil {
			return errors.Wrapf(err, "GET %s", url)
		}
		_ = resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 400 {
			return errors.Errorf("GET %s: status %d", url, resp.StatusCode)
		}
		return nil
	})
}

// Command runs argv inside the unit when the runtime supports it, on the host otherwise.
func Command(argv []string) Probe {
	return ProbeFunc(func(ctx context.Context, t Target) error {
		if len(argv) == 0 {
			return errors.New("empty probe command")
		}
		if ex, ok := t.Runtime.(runtime.Execer); ok {
			code, out, err := ex.Exec(ctx, t.Service, argv)
			if err != nil {
				return err
			}
			if code != 0 {
				return errors.Errorf("%s exited %d: %s", argv[0], code, strings.TrimSpace(out))
			}
			return nil
		}
		// #nosec G204 -- probe command comes from the stack config.
		out, err := exec.CommandContext(ctx, argv[0], argv[1:]...).CombinedOutput()
		if err != nil {
			return errors.Wrapf(err, "%s: %s", argv[0], strings.TrimSpace(string(out)))
		}
		return nil
	})
}

// FromSpec builds the probe a service config asks for.
func FromSpec(p config.Probe) (Probe, error) {
	switch p.Kind {
	case "", config.ProbeProcess:
		return ProcessRunning(), nil
	case config.ProbePort:
		return PortOpen(p.Host, p.Port), nil
	case config.ProbeHTTP:
		url := p.URL
		if url == "" {
			host := p.Host
			if host == "" {
				host = "127.0.0.1"
			}
			path := p.Path
			if !strings.HasPrefix(path, "/") {
				path = "/" + path
			}
			url = fmt.Sprintf("http://%s%s", net.JoinHostPort(host, strconv.Itoa(p.Port)), path)
		}
		return HTTPEndpoint(url), nil
	case config.ProbeCommand:
		return Command(p.Command), nil
	default:
		return nil, errors.Errorf("unknown probe kind %q", p.Kind)
	}
}
