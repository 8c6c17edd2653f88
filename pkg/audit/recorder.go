package audit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// RecorderConfig tunes the async writer.
type RecorderConfig struct {
	// Buffer is the size of the async write channel.
	Buffer int

	// WriteTimeout bounds each storage write.
	WriteTimeout time.Duration

	// OnDrop, when set, is called once per record lost to a full queue.
	OnDrop func()
}

// ApplyDefaults fills unset fields.
func (c *RecorderConfig) ApplyDefaults() {
	if c.Buffer <= 0 {
		c.Buffer = 1000
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
}

// Recorder writes audit records asynchronously so the request path never
// blocks on storage. When the queue is full the record is dropped and
// counted.
type Recorder struct {
	storage Storage
	config  RecorderConfig
	records chan *Record
	done    chan struct{}
	wg      sync.WaitGroup
	logger  *slog.Logger

	dropped atomic.Int64
}

// NewRecorder creates a recorder and starts its background writer.
func NewRecorder(storage Storage, config RecorderConfig) *Recorder {
	config.ApplyDefaults()

	r := &Recorder{
		storage: storage,
		config:  config,
		records: make(chan *Record, config.Buffer),
		done:    make(chan struct{}),
		logger:  slog.Default().With("component", "audit.recorder"),
	}

	r.wg.Add(1)
	go r.worker()

	return r
}

// Record enqueues one record. It never blocks: a full queue drops the
// record. A missing ID or timestamp is filled in.
func (r *Recorder) Record(rec *Record) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	select {
	case r.records <- rec:
	default:
		dropped := r.dropped.Add(1)
		if r.config.OnDrop != nil {
			r.config.OnDrop()
		}
		r.logger.Warn("audit queue full, dropping record",
			"request_id", rec.RequestID,
			"dropped_total", dropped,
		)
	}
}

// Dropped returns the number of records lost to a full queue.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Close stops the recorder after draining queued records.
func (r *Recorder) Close() error {
	close(r.done)
	r.wg.Wait()
	return nil
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case rec := <-r.records:
			r.write(rec)
		case <-r.done:
			for {
				select {
				case rec := <-r.records:
					r.write(rec)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(rec *Record) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	if err := r.storage.Store(ctx, rec); err != nil {
		r.logger.Error("failed to store audit record",
			"record_id", rec.ID,
			"request_id", rec.RequestID,
			"error", err,
		)
	}
}
