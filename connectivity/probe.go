// ABOUTME: Health probing that feeds the connectivity monitor
// ABOUTME: Polls the remote health endpoint on an interval and reports reachability
package connectivity

import (
	"context"
	"log"
	"net/http"
	"time"
)

// Probe reports whether the remote side is reachable right now.
type Probe func(ctx context.Context) bool

const maxProbeTimeout = 10 * time.Second

// HTTPProbe treats any 2xx answer from url as online.
func HTTPProbe(client *http.Client, url string) Probe {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context) bool {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return false
		}
		resp, err := client.Do(req)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode >= 200 && resp.StatusCode < 300
	}
}

// Run probes immediately and then every interval, feeding results into
// SetOnline, until ctx is done.
func (m *Monitor) Run(ctx context.Context, probe Probe, interval time.Duration) error {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	timeout := interval
	if timeout > maxProbeTimeout {
		timeout = maxProbeTimeout
	}

	check := func() {
		probeCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		online := probe(probeCtx)
		if ctx.Err() != nil {
			return
		}
		if online != m.IsOnline() {
			log.Printf("connectivity: remote is now %s", stateName(online))
		}
		m.SetOnline(online)
	}

	check()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			check()
		}
	}
}

func stateName(online bool) string {
	if online {
		return "online"
	}
	return "offline"
}
