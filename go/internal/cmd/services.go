package main

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/mcdev12/nightskip/go/internal/config"
	"github.com/mcdev12/nightskip/go/internal/events"
	"github.com/mcdev12/nightskip/go/internal/gateway"
	"github.com/mcdev12/nightskip/go/internal/history"
	"github.com/mcdev12/nightskip/go/internal/scheduler"
	"github.com/mcdev12/nightskip/go/internal/sleep"
	"github.com/mcdev12/nightskip/go/internal/world"
	"github.com/rs/zerolog/log"
)

type Services struct {
	Scheduler   *scheduler.Scheduler
	World       *world.Server
	Connections *gateway.ConnectionManager
	Gateway     *gateway.Handler
	Coordinator *sleep.Coordinator

	// Optional, nil when disabled.
	Events    *events.Client
	Consumer  *events.Consumer
	HistoryDB *sql.DB
	Recorder  *history.Recorder

	wg sync.WaitGroup
}

func setupServices(ctx context.Context, env Env, cfg config.Snapshot, msgs config.Messages) (*Services, error) {
	// Host → Gateway → Observers → Coordinator → Event consumer
	s := &Services{
		Scheduler:   scheduler.New(nil),
		World:       world.NewServer(world.DefaultWorlds(env.StartTime)...),
		Connections: gateway.NewConnectionManager(gateway.DefaultConnectionConfig()),
	}
	messenger := gateway.NewMessenger(s.Connections)
	s.World.SetEffectObserver(messenger)

	var observers []sleep.Option
	var historyStore *history.Store

	if env.HistoryEnabled {
		database, err := history.Open(ctx, env.DB.Driver, env.DB.DSN())
		if err != nil {
			s.Close()
			return nil, err
		}
		s.HistoryDB = database

		historyStore = history.NewStore(database)
		if err := historyStore.Migrate(ctx); err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to migrate history: %w", err)
		}
		s.Recorder = history.NewRecorder(historyStore, history.DefaultRecorderConfig())
		observers = append(observers, sleep.WithObserver(s.Recorder))

		log.Info().Str("driver", env.DB.Driver).Str("database", env.DB.Database).Msg("skip history enabled")
	}

	if env.NATSEnabled {
		natsCfg := events.DefaultConfig()
		natsCfg.URL = env.NATSURL

		client, err := events.Connect(ctx, natsCfg)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.Events = client
		observers = append(observers, sleep.WithObserver(events.NewPublisher(client)))
	}

	opts := append([]sleep.Option{sleep.WithMessages(msgs)}, observers...)
	coord, err := sleep.NewCoordinator(cfg, s.World, messenger, s.Scheduler, opts...)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to create coordinator: %w", err)
	}
	s.Coordinator = coord

	if s.Events != nil {
		consumer, err := events.NewConsumer(ctx, s.Events, events.NewRouter(s.World, coord))
		if err != nil {
			s.Close()
			return nil, err
		}
		s.Consumer = consumer
	}

	s.Gateway = gateway.NewHandler(s.Connections, coord).WithWorlds(s.World)
	if historyStore != nil {
		s.Gateway.WithHistory(historyStore).
			WithHealthChecks(gateway.HealthCheck{Name: "database", Check: s.HistoryDB.PingContext})
	}
	if s.Events != nil {
		s.Gateway.WithHealthChecks(gateway.HealthCheck{Name: "nats", Check: s.Events.Ping})
	}
	return s, nil
}

// Start launches every background loop. They stop when ctx is cancelled.
func (s *Services) Start(ctx context.Context) {
	s.World.Attach(s.Scheduler)
	s.Coordinator.Start()

	s.goRun(func() { s.Scheduler.Run(ctx) })
	s.goRun(func() { s.Connections.Start(ctx) })
	if s.Recorder != nil {
		s.goRun(func() { s.Recorder.Run(ctx) })
	}
	if s.Consumer != nil {
		s.goRun(func() {
			if err := s.Consumer.Start(ctx); err != nil {
				log.Error().Err(err).Msg("host event consumer failed")
			}
		})
	}
}

func (s *Services) goRun(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

// Wait blocks until every loop started by Start has returned.
func (s *Services) Wait() { s.wg.Wait() }

// Close releases connections. Call after Wait.
func (s *Services) Close() {
	if s.Coordinator != nil {
		s.Coordinator.Shutdown()
	}
	if s.Events != nil {
		if err := s.Events.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close NATS connection")
		}
	}
	if s.HistoryDB != nil {
		if err := s.HistoryDB.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close history database")
		}
	}
}
