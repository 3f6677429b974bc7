package history

import (
	"context"
	"sync"
	"time"

	"github.com/mcdev12/nightskip/go/internal/sleep"
	"github.com/rs/zerolog/log"
)

// Writer persists a batch of results.
type Writer interface {
	Record(ctx context.Context, results []sleep.SkipResult) error
}

// RecorderConfig tunes the async recorder.
type RecorderConfig struct {
	BufferSize   int
	BatchSize    int
	WriteTimeout time.Duration
}

func DefaultRecorderConfig() RecorderConfig {
	return RecorderConfig{
		BufferSize:   64,
		BatchSize:    16,
		WriteTimeout: 5 * time.Second,
	}
}

// Recorder hands completed skips to a Writer off the tick goroutine. It
// implements sleep.SkipObserver.
type Recorder struct {
	writer Writer
	config RecorderConfig
	queue  chan sleep.SkipResult

	mu      sync.Mutex
	running bool
	done    chan struct{}
}

func NewRecorder(w Writer, cfg RecorderConfig) *Recorder {
	if cfg.BufferSize < 1 {
		cfg.BufferSize = 1
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 1
	}
	return &Recorder{
		writer: w,
		config: cfg,
		queue:  make(chan sleep.SkipResult, cfg.BufferSize),
		done:   make(chan struct{}),
	}
}

// SkipCompleted queues res, dropping it when the buffer is full.
func (r *Recorder) SkipCompleted(res sleep.SkipResult) {
	select {
	case r.queue <- res:
	default:
		log.Warn().Str("run_id", res.RunID.String()).Msg("history buffer full, dropping night skip")
	}
}

// Run writes queued results until ctx is cancelled, then flushes what is left.
func (r *Recorder) Run(ctx context.Context) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		log.Warn().Msg("history recorder already running")
		return
	}
	r.running = true
	r.mu.Unlock()
	defer close(r.done)

	log.Info().Int("buffer", r.config.BufferSize).Int("batch", r.config.BatchSize).Msg("history recorder started")

	for {
		select {
		case <-ctx.Done():
			for batch := r.drain(nil); len(batch) > 0; batch = r.drain(nil) {
				r.write(batch)
			}
			log.Info().Msg("history recorder stopped")
			return
		case res := <-r.queue:
			r.write(r.drain([]sleep.SkipResult{res}))
		}
	}
}

// Done is closed once Run has returned.
func (r *Recorder) Done() <-chan struct{} { return r.done }

// drain appends whatever is already queued, up to the batch size.
func (r *Recorder) drain(batch []sleep.SkipResult) []sleep.SkipResult {
	for len(batch) < r.config.BatchSize {
		select {
		case res := <-r.queue:
			batch = append(batch, res)
		default:
			return batch
		}
	}
	return batch
}

func (r *Recorder) write(batch []sleep.SkipResult) {
	if len(batch) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	if err := r.writer.Record(ctx, batch); err != nil {
		log.Error().Err(err).Int("count", len(batch)).Msg("failed to record night skips")
		return
	}
	log.Debug().Int("count", len(batch)).Msg("recorded night skips")
}
