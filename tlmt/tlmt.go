// Package tlmt defines anonymous product telemetry.
package tlmt

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"runtime"
)

// Telemetry sends anonymous usage events
type Telemetry interface {
	Send(ctx context.Context, event Event) error
	Close() error
}

// Event is one usage event
type Event struct {
	Name       string
	Properties map[string]any
}

// NewEvent creates an event, attaching the OS and architecture
func NewEvent(name string, props map[string]any) Event {
	merged := make(map[string]any, len(props)+2)
	for k, v := range props {
		merged[k] = v
	}
	merged["os"] = runtime.GOOS
	merged["arch"] = runtime.GOARCH

	return Event{Name: name, Properties: merged}
}

// MachineID returns a stable anonymous identifier for this host
func MachineID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}

	sum := sha256.Sum256([]byte("marketing-engine:" + host))

	return hex.EncodeToString(sum[:16])
}
