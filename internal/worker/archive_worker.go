package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/vanhoc/mocktest/internal/archive"
	"github.com/vanhoc/mocktest/internal/config"
)

const (
	ArchiveBatchTimeout = 2 * time.Second
	archiveBuffer       = 256
)

// ArchiveSink persists archive records.
type ArchiveSink interface {
	InsertBatch(ctx context.Context, records []archive.Record) error
	Insert(ctx context.Context, record archive.Record) error
}

// ArchiveWorker batches finalized attempts into the archive.
type ArchiveWorker struct {
	sink      ArchiveSink
	queue     chan archive.Record
	batchSize int
	timeout   time.Duration
	done      chan struct{}
	log       zerolog.Logger
}

// NewArchiveWorker creates a new ArchiveWorker.
func NewArchiveWorker(sink ArchiveSink, log zerolog.Logger) *ArchiveWorker {
	return &ArchiveWorker{
		sink:      sink,
		queue:     make(chan archive.Record, archiveBuffer),
		batchSize: config.WorkerKey.ArchiveBatchSize,
		timeout:   ArchiveBatchTimeout,
		done:      make(chan struct{}),
		log:       log.With().Str("component", "archive_worker").Logger(),
	}
}

// Record queues rec without blocking; a full queue drops the record.
func (w *ArchiveWorker) Record(rec archive.Record) {
	select {
	case w.queue <- rec:
	default:
		w.log.Warn().Int64("attempt_id", rec.AttemptID).Msg("Archive queue full, dropping record")
	}
}

// Done is closed once Start has returned.
func (w *ArchiveWorker) Done() <-chan struct{} {
	return w.done
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

// Start runs until ctx ends, then flushes what is left. Call in a goroutine.
func (w *ArchiveWorker) Start(ctx context.Context) {
	defer close(w.done)
	w.log.Info().Msg("ArchiveWorker started")

	batch := make([]archive.Record, 0, w.batchSize)
	timer := time.NewTimer(w.timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			for {
				select {
				case rec := <-w.queue:
					batch = append(batch, rec)
				default:
					w.flushSafe(context.Background(), batch)
					return
				}
			}

		case rec := <-w.queue:
			batch = append(batch, rec)
			if len(batch) >= w.batchSize {
				w.flushSafe(ctx, batch)
				batch = make([]archive.Record, 0, w.batchSize)
			}

		case <-timer.C:
			w.flushSafe(ctx, batch)
			batch = make([]archive.Record, 0, w.batchSize)
			timer.Reset(w.timeout)
		}
	}
}

// ----------------------------------------------------------------
// Batch insert with per-record fallback
// ----------------------------------------------------------------

func (w *ArchiveWorker) flushSafe(ctx context.Context, batch []archive.Record) {
	if len(batch) == 0 {
		return
	}

	if err := w.sink.InsertBatch(ctx, batch); err != nil {
		w.log.Warn().Err(err).Int("size", len(batch)).Msg("bulk archive insert failed, using fallback")

		for _, rec := range batch {
			if err := w.sink.Insert(ctx, rec); err != nil {
				w.log.Error().Err(err).Int64("attempt_id", rec.AttemptID).Msg("archive insert failed")
			}
		}
		return
	}

	w.log.Debug().Int("size", len(batch)).Msg("Archived finalized attempts")
}
