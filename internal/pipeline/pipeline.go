package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/cafepick-api/internal/domain"
	"github.com/couchcryptid/cafepick-api/internal/observability"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// BatchExtractor reads up to batchSize raw cafe messages from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawMessage, error)
}

// Transformer turns a raw message into a derived venue.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawMessage) (domain.Venue, error)
}

// VenueLoader stores derived venues.
type VenueLoader interface {
	UpsertVenues(ctx context.Context, venues []domain.Venue) error
}

// Pipeline runs the extract, derive and upsert loop of the ingestion topic.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      VenueLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	batchSize   int
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, t Transformer, l VenueLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
	}
}

// CheckReadiness returns nil once the pipeline has stored at least one batch.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("ingestion pipeline has not stored any cafes yet")
	}
	return nil
}

// Run consumes batches until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("ingestion pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	backoff := initialBackoff
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("ingestion pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.processBatch(ctx, &backoff) {
			return nil
		}
	}
}

// processBatch runs one cycle. It returns false when the pipeline should stop.
func (p *Pipeline) processBatch(ctx context.Context, backoff *time.Duration) bool {
	start := time.Now()

	rawBatch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err)
		return p.backoffOrStop(ctx, backoff)
	}
	if len(rawBatch) == 0 {
		return ctx.Err() == nil
	}

	p.metrics.MessagesConsumed.Add(float64(len(rawBatch)))
	p.metrics.BatchSize.Observe(float64(len(rawBatch)))
	*backoff = initialBackoff

	stored, ok := p.deriveAndStore(ctx, rawBatch, backoff)
	if !ok {
		return false
	}
	if stored > 0 {
		p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
		p.ready.Store(true)
	}
	return true
}

// deriveAndStore transforms each message, upserts the successes and commits
// offsets. Undecodable messages are committed and skipped; a failed upsert
// commits nothing so the batch is redelivered.
func (p *Pipeline) deriveAndStore(ctx context.Context, rawBatch []domain.RawMessage, backoff *time.Duration) (int, bool) {
	venues := make([]domain.Venue, 0, len(rawBatch))
	index := make(map[string]int, len(rawBatch))
	derived := make([]domain.RawMessage, 0, len(rawBatch))

	for _, raw := range rawBatch {
		v, err := p.transformer.Transform(ctx, raw)
		if err != nil {
			p.logger.Warn("transform failed, skipping message",
				"error", err,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.metrics.TransformErrors.Inc()
			p.commitOffset(ctx, raw)
			continue
		}
		// Later messages for the same cafe replace earlier ones.
		if i, dup := index[v.ID]; dup {
			venues[i] = v
		} else {
			index[v.ID] = len(venues)
			venues = append(venues, v)
		}
		derived = append(derived, raw)
	}

	if len(venues) == 0 {
		return 0, true
	}

	if err := p.loader.UpsertVenues(ctx, venues); err != nil {
		p.logger.Error("upsert batch failed", "error", err, "batch_size", len(venues))
		return 0, p.backoffOrStop(ctx, backoff)
	}
	p.metrics.VenuesUpserted.Add(float64(len(venues)))

	for _, raw := range derived {
		p.commitOffset(ctx, raw)
	}
	return len(venues), true
}

// backoffOrStop sleeps for the current backoff and doubles it. It returns
// false if the context ended first.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff)
	return true
}

func (p *Pipeline) commitOffset(ctx context.Context, raw domain.RawMessage) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

func nextBackoff(current time.Duration) time.Duration {
	return min(current*2, maxBackoff)
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
