package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// Consumer feeds host events from JetStream into a Router.
type Consumer struct {
	client   *Client
	router   *Router
	consumer jetstream.Consumer
}

// NewConsumer creates or reuses the durable consumer for host events.
func NewConsumer(ctx context.Context, client *Client, router *Router) (*Consumer, error) {
	c := &Consumer{client: client, router: router}
	if err := c.ensureConsumer(ctx); err != nil {
		return nil, fmt.Errorf("ensure consumer: %w", err)
	}
	return c, nil
}

func (c *Consumer) ensureConsumer(ctx context.Context) error {
	cfg := c.client.config
	stream, err := c.client.js.Stream(ctx, cfg.StreamName)
	if err != nil {
		return fmt.Errorf("get stream: %w", err)
	}

	consumer, err := stream.Consumer(ctx, cfg.ConsumerName)
	if err != nil {
		// Stale bed events are meaningless after a restart, so start at new messages.
		consumer, err = stream.CreateConsumer(ctx, jetstream.ConsumerConfig{
			Name:          cfg.ConsumerName,
			Durable:       cfg.ConsumerName,
			Description:   "Night skip coordinator host event consumer",
			FilterSubject: cfg.EventSubjects(),
			DeliverPolicy: jetstream.DeliverNewPolicy,
			AckPolicy:     jetstream.AckExplicitPolicy,
			MaxDeliver:    cfg.MaxDeliver,
			AckWait:       cfg.AckWait,
			MaxAckPending: cfg.MaxAckPending,
			ReplayPolicy:  jetstream.ReplayInstantPolicy,
		})
		if err != nil {
			return fmt.Errorf("create consumer: %w", err)
		}
		log.Info().Str("consumer", cfg.ConsumerName).Str("stream", cfg.StreamName).Msg("created JetStream consumer")
	} else {
		log.Info().Str("consumer", cfg.ConsumerName).Str("stream", cfg.StreamName).Msg("using existing JetStream consumer")
	}

	c.consumer = consumer
	return nil
}

// Start consumes until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	log.Info().
		Str("consumer", c.client.config.ConsumerName).
		Str("subjects", c.client.config.EventSubjects()).
		Msg("starting host event consumer")

	messageCh := make(chan jetstream.Msg, 100)
	consumeCtx, err := c.consumer.Consume(func(msg jetstream.Msg) {
		select {
		case messageCh <- msg:
		case <-ctx.Done():
			_ = msg.Nak()
		}
	})
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}
	defer consumeCtx.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("host event consumer shutting down")
			return nil
		case msg := <-messageCh:
			c.handle(msg)
		}
	}
}

func (c *Consumer) handle(msg jetstream.Msg) {
	err := c.process(msg.Data())
	switch {
	case err == nil:
		if ackErr := msg.Ack(); ackErr != nil {
			log.Error().Err(ackErr).Msg("failed to ACK message")
		}
	case permanent(err):
		log.Warn().Err(err).Str("subject", msg.Subject()).Msg("dropping host event")
		if termErr := msg.Term(); termErr != nil {
			log.Error().Err(termErr).Msg("failed to TERM message")
		}
	default:
		log.Error().Err(err).Str("subject", msg.Subject()).Msg("failed to process host event")
		if nakErr := msg.Nak(); nakErr != nil {
			log.Error().Err(nakErr).Msg("failed to NAK message")
		}
	}
}

func (c *Consumer) process(data []byte) error {
	env, playerID, err := decodeEnvelope(data)
	if err != nil {
		return err
	}

	log.Debug().
		Str("event_id", env.EventID).
		Str("event_type", env.EventType).
		Str("player_id", env.PlayerID).
		Msg("processing host event")

	return c.router.Route(env, playerID)
}

// permanent reports whether redelivering the message cannot help.
func permanent(err error) bool {
	return errors.Is(err, ErrMalformedEvent) ||
		errors.Is(err, ErrUnknownEventType) ||
		errors.Is(err, ErrUnknownPlayer)
}
