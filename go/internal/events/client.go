package events

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// Config holds the JetStream settings shared by the consumer and publisher.
type Config struct {
	URL           string
	StreamName    string
	SubjectPrefix string        // e.g. "nightskip"
	ConsumerName  string
	MaxDeliver    int           // Max delivery attempts
	AckWait       time.Duration // How long to wait for ack
	MaxAckPending int
	MaxReconnects int
	ReconnectWait time.Duration
	MaxAge        time.Duration // How long the stream keeps messages
}

// DefaultConfig returns the default JetStream configuration.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		StreamName:    "NIGHTSKIP_EVENTS",
		SubjectPrefix: "nightskip",
		ConsumerName:  "nightskip-coordinator",
		MaxDeliver:    5,
		AckWait:       30 * time.Second,
		MaxAckPending: 100,
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
		MaxAge:        24 * time.Hour,
	}
}

// EventSubjects is the filter for inbound host events.
func (c Config) EventSubjects() string { return c.SubjectPrefix + ".events.>" }

// EventSubject is the subject a host publishes eventType on.
func (c Config) EventSubject(eventType string) string {
	return c.SubjectPrefix + ".events." + eventType
}

// SkipSubject is the subject completed skips are published on.
func (c Config) SkipSubject() string { return c.SubjectPrefix + ".skips.completed" }

// Client owns the NATS connection and JetStream context.
type Client struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	config Config
}

// Connect dials NATS and makes sure the stream exists.
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	opts := []nats.Option{
		nats.Name("nightskip"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	c := &Client{nc: nc, js: js, config: cfg}
	if err := c.ensureStream(ctx); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream: %w", err)
	}
	return c, nil
}

func (c *Client) streamConfig() jetstream.StreamConfig {
	return jetstream.StreamConfig{
		Name:        c.config.StreamName,
		Description: "Night skip host events and completed skips",
		Subjects: []string{
			c.config.EventSubjects(),
			c.config.SubjectPrefix + ".skips.>",
		},
		Retention:  jetstream.LimitsPolicy,
		MaxAge:     c.config.MaxAge,
		Storage:    jetstream.FileStorage,
		Replicas:   1,
		Duplicates: 2 * time.Minute,
	}
}

func (c *Client) ensureStream(ctx context.Context) error {
	sc := c.streamConfig()

	stream, err := c.js.Stream(ctx, c.config.StreamName)
	if err != nil {
		if _, err = c.js.CreateStream(ctx, sc); err != nil {
			return fmt.Errorf("create stream: %w", err)
		}
		log.Info().Str("stream", c.config.StreamName).Msg("created JetStream stream")
		return nil
	}

	info, err := stream.Info(ctx)
	if err != nil {
		return fmt.Errorf("get stream info: %w", err)
	}
	if info.Config.MaxAge != sc.MaxAge || len(info.Config.Subjects) != len(sc.Subjects) {
		if _, err = c.js.UpdateStream(ctx, sc); err != nil {
			return fmt.Errorf("update stream: %w", err)
		}
		log.Info().Str("stream", c.config.StreamName).Msg("updated JetStream stream")
	}
	return nil
}

// Ping reports whether the connection is currently up.
func (c *Client) Ping(ctx context.Context) error {
	if !c.nc.IsConnected() {
		return fmt.Errorf("NATS %s", c.nc.Status())
	}
	return nil
}

// Close drains pending async publishes and closes the connection.
func (c *Client) Close() error {
	if c.nc == nil {
		return nil
	}
	select {
	case <-c.js.PublishAsyncComplete():
	case <-time.After(5 * time.Second):
		log.Warn().Int("pending", c.js.PublishAsyncPending()).Msg("closing with unacknowledged skip events")
	}
	c.nc.Close()
	return nil
}
