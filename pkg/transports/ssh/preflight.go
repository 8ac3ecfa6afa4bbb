package ssh

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Technology-Company/djaploy/pkg/config"
	"github.com/Technology-Company/djaploy/pkg/telemetry"
)

// Preflight verifies that every inventory host accepts an SSH connection
// before any provisioning starts. Hosts are checked concurrently; the
// returned error lists every unreachable host.
func Preflight(ctx context.Context, hosts []*config.HostConfig, logger *telemetry.Logger) error {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failures []string
	)

	for _, host := range hosts {
		wg.Add(1)
		go func(h *config.HostConfig) {
			defer wg.Done()

			client, err := Dial(ctx, FromHost(h))
			if err != nil {
				mu.Lock()
				failures = append(failures, fmt.Sprintf("%s: %v", h.Name, err))
				mu.Unlock()
				return
			}
			defer client.Close()

			if logger != nil {
				logger.WithHost(h.Name).Debug("preflight connection succeeded")
			}
		}(host)
	}
	wg.Wait()

	if len(failures) > 0 {
		return fmt.Errorf("preflight failed for %d host(s): %s",
			len(failures), strings.Join(failures, "; "))
	}
	return nil
}
