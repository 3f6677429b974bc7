package events

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/nightskip/go/internal/sleep"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// Publisher announces completed skips on JetStream. It implements
// sleep.SkipObserver and never blocks the tick loop.
type Publisher struct {
	js     jetstream.JetStream
	config Config
}

func NewPublisher(client *Client) *Publisher {
	return &Publisher{js: client.js, config: client.config}
}

func (p *Publisher) SkipCompleted(res sleep.SkipResult) {
	msg, err := skipMessage(p.config.SkipSubject(), res)
	if err != nil {
		log.Error().Err(err).Str("run_id", res.RunID.String()).Msg("failed to build skip event")
		return
	}

	fut, err := p.js.PublishMsgAsync(msg,
		jetstream.WithMsgID(res.RunID.String()),
		jetstream.WithExpectStream(p.config.StreamName),
	)
	if err != nil {
		log.Error().Err(err).Str("subject", msg.Subject).Msg("failed to publish skip event")
		return
	}

	go func() {
		select {
		case ack := <-fut.Ok():
			log.Info().
				Str("subject", msg.Subject).
				Str("run_id", res.RunID.String()).
				Uint64("sequence", ack.Sequence).
				Msg("published skip event")
		case err := <-fut.Err():
			log.Error().Err(err).Str("run_id", res.RunID.String()).Msg("skip event not acknowledged")
		}
	}()
}

func skipMessage(subject string, res sleep.SkipResult) (*nats.Msg, error) {
	env, err := NewEnvelope(EventNightSkipped, uuid.Nil, res.CompletedAt, res)
	if err != nil {
		return nil, err
	}
	env.EventID = res.RunID.String()

	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return &nats.Msg{
		Subject: subject,
		Data:    data,
		Header: nats.Header{
			"Event-Type": []string{EventNightSkipped},
			"Event-ID":   []string{env.EventID},
		},
	}, nil
}
