package analytics

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nulzo/gateway-analytics-api/internal/store"
	"github.com/nulzo/gateway-analytics-api/internal/store/model"
	"go.uber.org/zap"
)

// Ingestor handles the asynchronous persistence of request events.
type Ingestor interface {
	// Record queues event without blocking. The event is dropped when the
	// buffer is full or the ingestor has been stopped.
	Record(event *model.RequestEvent)
	// Enqueue queues event, waiting for buffer space until ctx is done.
	// It returns ErrIngestorStopped after Stop.
	Enqueue(ctx context.Context, event *model.RequestEvent) error
	Start(ctx context.Context)
	// Stop flushes buffered events and waits for the worker to exit. It is
	// safe to call more than once.
	Stop()
}

type ingestor struct {
	logger    *zap.Logger
	repo      store.Repository
	events    chan *model.RequestEvent
	quit      chan struct{}
	done      chan struct{}
	started   atomic.Bool
	stopOnce  sync.Once
	batchSize int
	flushTime time.Duration
}

func NewIngestor(logger *zap.Logger, repo store.Repository, batchSize int, flushTime time.Duration) Ingestor {
	if batchSize <= 0 {
		batchSize = 50
	}
	if flushTime <= 0 {
		flushTime = 5 * time.Second
	}
	return &ingestor{
		logger:    logger,
		repo:      repo,
		events:    make(chan *model.RequestEvent, 10000),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
		batchSize: batchSize,
		flushTime: flushTime,
	}
}

func (i *ingestor) Record(event *model.RequestEvent) {
	if i.stopped() {
		i.logger.Warn("Ingestor stopped, dropping event", zap.String("id", event.ID))
		return
	}
	select {
	case i.events <- event:
	default:
		i.logger.Warn("Event buffer full, dropping event", zap.String("id", event.ID))
	}
}

func (i *ingestor) Enqueue(ctx context.Context, event *model.RequestEvent) error {
	if i.stopped() {
		return ErrIngestorStopped
	}
	select {
	case i.events <- event:
		return nil
	case <-i.quit:
		return ErrIngestorStopped
	case <-i.done:
		return ErrIngestorStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (i *ingestor) Start(ctx context.Context) {
	if i.started.CompareAndSwap(false, true) {
		go i.worker(ctx)
	}
}

// events is never closed, so late producers cannot panic on a closed channel
func (i *ingestor) Stop() {
	i.stopOnce.Do(func() { close(i.quit) })
	if i.started.Load() {
		<-i.done
	}
}

func (i *ingestor) stopped() bool {
	select {
	case <-i.quit:
		return true
	default:
		return false
	}
}

func (i *ingestor) worker(ctx context.Context) {
	defer close(i.done)

	batch := make([]*model.RequestEvent, 0, i.batchSize)
	ticker := time.NewTicker(i.flushTime)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}

		// one transaction per batch; a failed batch is dropped as a whole
		err := i.repo.WithTx(context.Background(), func(tx store.Repository) error {
			for _, e := range batch {
				if err := tx.Events().Record(context.Background(), e); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			i.logger.Error("Failed to persist event batch", zap.Int("size", len(batch)), zap.Error(err))
		}
		batch = batch[:0]
	}

	for {
		select {
		case e := <-i.events:
			batch = append(batch, e)
			if len(batch) >= i.batchSize {
				flush()
			}
		case <-i.quit:
			// drain what was queued before Stop
			for {
				select {
				case e := <-i.events:
					batch = append(batch, e)
					if len(batch) >= i.batchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		case <-ticker.C:
			flush()
		case <-ctx.Done():
			flush()
			return
		}
	}
}
