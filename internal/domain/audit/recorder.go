package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Recorder accepts audit entries without blocking the caller. Record never
// returns an error: audit is fire-and-forget and at-most-once.
type Recorder interface {
	Record(e Entry)
}

// Publisher delivers one entry to the audit sink. Implemented by the
// Redpanda audit publisher; failures are counted and dropped, never retried.
type Publisher interface {
	Publish(ctx context.Context, e Entry) error
}

// Counter is the minimal metrics hook, satisfied by prometheus.Counter.
type Counter interface {
	Inc()
}

// Config holds async recorder configuration.
type Config struct {
	// QueueSize is the capacity of the hand-off channel. Entries arriving
	// while the channel is full are dropped.
	QueueSize int
	// PublishTimeout bounds each publish attempt.
	PublishTimeout time.Duration
	// PublishedCounter and DroppedCounter are optional metrics hooks.
	PublishedCounter Counter
	DroppedCounter   Counter
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		QueueSize:      1024,
		PublishTimeout: 5 * time.Second,
	}
}

// AsyncRecorder decouples audit writes from the request path with a bounded
// channel drained by a single background goroutine.
type AsyncRecorder struct {
	publisher Publisher
	config    Config
	logger    *zap.Logger

	entries  chan Entry
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	accepted  int64
	published int64
	dropped   int64
}

// NewAsyncRecorder creates a recorder. Call Start before recording.
func NewAsyncRecorder(publisher Publisher, cfg Config, logger *zap.Logger) *AsyncRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = DefaultConfig().PublishTimeout
	}
	return &AsyncRecorder{
		publisher: publisher,
		config:    cfg,
		logger:    logger,
		entries:   make(chan Entry, cfg.QueueSize),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Record queues an entry. When the queue is full, or the recorder has been
// stopped, the entry is dropped and counted; the caller is never blocked,
// failed, or panicked.
func (r *AsyncRecorder) Record(e Entry) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	select {
	case <-r.stop:
		r.drop()
		r.logger.Warn("audit recorder stopped, entry dropped",
			zap.String("action", e.Action),
			zap.String("actor", e.Actor))
		return
	default:
	}

	select {
	case r.entries <- e:
		atomic.AddInt64(&r.accepted, 1)
	default:
		r.drop()
		r.logger.Warn("audit queue full, entry dropped",
			zap.String("action", e.Action),
			zap.String("actor", e.Actor))
	}
}

// Start launches the drain goroutine.
func (r *AsyncRecorder) Start() {
	go r.drain()
	r.logger.Info("audit recorder started", zap.Int("queue_size", r.config.QueueSize))
}

// Stop flushes queued entries and stops the drain goroutine. The entries
// channel is never closed, so a Record racing Stop drops instead of
// panicking. Safe to call more than once.
func (r *AsyncRecorder) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
	<-r.done
	r.logger.Info("audit recorder stopped",
		zap.Int64("published", atomic.LoadInt64(&r.published)),
		zap.Int64("dropped", atomic.LoadInt64(&r.dropped)))
}

func (r *AsyncRecorder) drain() {
	defer close(r.done)

	for {
		select {
		case e := <-r.entries:
			r.publish(e)
		case <-r.stop:
			// Flush whatever is queued, then exit.
			for {
				select {
				case e := <-r.entries:
					r.publish(e)
				default:
					return
				}
			}
		}
	}
}

func (r *AsyncRecorder) publish(e Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.PublishTimeout)
	err := r.publisher.Publish(ctx, e)
	cancel()

	if err != nil {
		r.drop()
		r.logger.Warn("audit publish failed, entry dropped",
			zap.String("action", e.Action),
			zap.String("actor", e.Actor),
			zap.Error(err))
		return
	}
	atomic.AddInt64(&r.published, 1)
	if r.config.PublishedCounter != nil {
		r.config.PublishedCounter.Inc()
	}
}

func (r *AsyncRecorder) drop() {
	atomic.AddInt64(&r.dropped, 1)
	if r.config.DroppedCounter != nil {
		r.config.DroppedCounter.Inc()
	}
}

// Stats holds recorder counters.
type Stats struct {
	Accepted  int64
	Published int64
	Dropped   int64
}

// Stats returns current counters.
func (r *AsyncRecorder) Stats() Stats {
	return Stats{
		Accepted:  atomic.LoadInt64(&r.accepted),
		Published: atomic.LoadInt64(&r.published),
		Dropped:   atomic.LoadInt64(&r.dropped),
	}
}

// NopRecorder discards every entry.
type NopRecorder struct{}

// Record implements Recorder.
func (NopRecorder) Record(Entry) {}
