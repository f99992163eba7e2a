package goposthog

import (
	"context"
	"errors"
	"fmt"

	"github.com/posthog/posthog-go"

	"github.com/sadewadee/marketing-engine/tlmt"
)

type service struct {
	client     posthog.Client
	distinctID string
}

// New creates a posthog-backed telemetry sender
func New(apiKey, endpoint string) (tlmt.Telemetry, error) {
	if apiKey == "" {
		return nil, errors.New("posthog api key is required")
	}

	client, err := posthog.NewWithConfig(apiKey, posthog.Config{
		Endpoint: endpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create posthog client: %w", err)
	}

	return &service{
		client:     client,
		distinctID: tlmt.MachineID(),
	}, nil
}

func (s *service) Send(ctx context.Context, event tlmt.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	props := posthog.NewProperties()
	for k, v := range event.Properties {
		props.Set(k, v)
	}

	return s.client.Enqueue(posthog.Capture{
		DistinctId: s.distinctID,
		Event:      event.Name,
		Properties: props,
	})
}

func (s *service) Close() error {
	return s.client.Close()
}
