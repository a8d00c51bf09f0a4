// Package telemetry sends anonymous, opt-in usage events to PostHog. Event
// properties never include prompt text or generated content.
package telemetry

import (
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/posthog/posthog-go"
)

// Event names.
const (
	EventProjectCreated = "project_created"
	EventStageCompleted = "stage_completed"
	EventStageFailed    = "stage_failed"
	EventPRDExported    = "prd_exported"
)

// Client is the interface for telemetry clients.
type Client interface {
	// Track sends an event asynchronously. Returns immediately without blocking.
	// If telemetry is disabled, this is a no-op.
	Track(event string, properties map[string]any)

	// Close flushes pending events and closes the client.
	Close() error
}

// enqueuer is the subset of the PostHog client we use.
type enqueuer interface {
	io.Closer
	Enqueue(msg posthog.Message) error
}

// PostHogClient wraps the PostHog SDK for async telemetry.
type PostHogClient struct {
	client      enqueuer
	distinctID  string
	version     string
	mu          sync.RWMutex
	initialized bool
}

// ClientConfig holds configuration for initializing the telemetry client.
type ClientConfig struct {
	Enabled bool
	APIKey  string
	// DistinctID is the anonymous install id.
	DistinctID string
	Version    string
	// Endpoint is an optional custom PostHog endpoint (for self-hosted).
	Endpoint string
}

// New returns a PostHog client, or a NoopClient when telemetry is disabled
// or unkeyed.
func New(cfg ClientConfig) (Client, error) {
	if !cfg.Enabled || cfg.APIKey == "" || cfg.DistinctID == "" {
		return NewNoopClient(), nil
	}

	phConfig := posthog.Config{
		// Use a small batch size for CLI (we don't send many events)
		BatchSize: 10,
		// Short interval since CLI exits quickly
		Interval: 1 * time.Second,
		Logger:   quietPostHogLogger{},
	}
	if cfg.Endpoint != "" {
		phConfig.Endpoint = cfg.Endpoint
	}

	client, err := posthog.NewWithConfig(cfg.APIKey, phConfig)
	if err != nil {
		return nil, err
	}
	return newPostHogClientWithEnqueuer(client, cfg.DistinctID, cfg.Version), nil
}

func newPostHogClientWithEnqueuer(enq enqueuer, distinctID, version string) *PostHogClient {
	return &PostHogClient{
		client:      enq,
		distinctID:  distinctID,
		version:     version,
		initialized: true,
	}
}

// Track enqueues an event with the standard platform properties.
func (c *PostHogClient) Track(event string, properties map[string]any) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.initialized {
		return
	}

	props := posthog.NewProperties()
	for k, v := range properties {
		props.Set(k, v)
	}
	props.Set("os", runtime.GOOS)
	props.Set("arch", runtime.GOARCH)
	props.Set("cli_version", c.version)
	// No person profiles: events stay anonymous.
	props.Set("$process_person_profile", false)

	_ = c.client.Enqueue(posthog.Capture{
		DistinctId: c.distinctID,
		Event:      event,
		Properties: props,
	})
}

// Close flushes pending events.
func (c *PostHogClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized || c.client == nil {
		return nil
	}
	c.initialized = false
	return c.client.Close()
}

// NoopClient is a telemetry client that does nothing.
type NoopClient struct{}

func (c *NoopClient) Track(event string, properties map[string]any) {}

func (c *NoopClient) Close() error { return nil }

// NewNoopClient returns a client that does nothing.
func NewNoopClient() *NoopClient {
	return &NoopClient{}
}

// quietPostHogLogger suppresses PostHog client logs in normal CLI output.
type quietPostHogLogger struct{}

func (quietPostHogLogger) Debugf(string, ...interface{}) {}
func (quietPostHogLogger) Logf(string, ...interface{})   {}
func (quietPostHogLogger) Warnf(string, ...interface{})  {}
func (quietPostHogLogger) Errorf(string, ...interface{}) {}
