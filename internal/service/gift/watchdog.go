package gift

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/pointsbot/internal/apperrors"
	"github.com/nkiryanov/pointsbot/internal/logger"
	"github.com/nkiryanov/pointsbot/internal/models"
	"github.com/nkiryanov/pointsbot/internal/repository"
)

const (
	defaultCountWorkers  = 4                // Number of workers resolving expired gifts
	defaultSweepInterval = 30 * time.Second // Interval between expiry sweeps
	defaultSweepBatch    = 100
)

// Watchdog periodically sweeps overdue pending gifts and expires them.
// The sweep reads from storage, so gifts that went overdue while the
// process was down are picked up on the first tick after restart.
type Watchdog struct {
	countWorkers  int
	sweepInterval time.Duration
	sweepBatch    int

	storage repository.Storage
	gifts   *GiftService
	logger  logger.Logger
}

type WatchdogOption func(*Watchdog)

func WithSweepInterval(interval time.Duration) WatchdogOption {
	return func(w *Watchdog) {
		w.sweepInterval = interval
	}
}

func WithCountWorkers(count int) WatchdogOption {
	return func(w *Watchdog) {
		w.countWorkers = count
	}
}

func NewWatchdog(storage repository.Storage, gifts *GiftService, logger logger.Logger, opts ...WatchdogOption) *Watchdog {
	w := &Watchdog{
		countWorkers:  defaultCountWorkers,
		sweepInterval: defaultSweepInterval,
		sweepBatch:    defaultSweepBatch,
		storage:       storage,
		gifts:         gifts,
		logger:        logger,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Run starts the sweeper and the expiring workers. Returns a channel
// that is closed when everything stopped after context cancellation.
func (w *Watchdog) Run(ctx context.Context) <-chan struct{} {
	idleStopped := make(chan struct{})

	giftChan := make(chan models.Transaction)

	sweeperStopped := w.sweep(ctx, giftChan)
	workersStopped := w.expire(ctx, giftChan)

	go func() {
		defer close(idleStopped)
		defer close(giftChan)
		<-sweeperStopped
		<-workersStopped
		w.logger.Debug("Gift watchdog stopped")
	}()

	return idleStopped
}

func (w *Watchdog) sweep(ctx context.Context, out chan<- models.Transaction) <-chan struct{} {
	idleStopped := make(chan struct{})
	w.logger.Debug("Starting gift expiry sweeper", "interval", w.sweepInterval, "batch_size", w.sweepBatch)

	go func() {
		defer close(idleStopped)

		ticker := time.NewTicker(w.sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				w.logger.Debug("Sweeper stopped by context")
				return

			case <-ticker.C:
				gifts, err := w.storage.Transaction().ListExpired(ctx, time.Now(), w.sweepBatch)
				if err != nil {
					w.logger.Error("Failed to list expired gifts", "error", err)
					continue
				}

				for _, gift := range gifts {
					select {
					case <-ctx.Done():
						w.logger.Debug("Sweeper stopped by context while sending gifts")
						return
					case out <- gift:
					}
				}
			}
		}
	}()

	return idleStopped
}

func (w *Watchdog) expire(ctx context.Context, in <-chan models.Transaction) <-chan struct{} {
	idleStopped := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < w.countWorkers; i++ {
		wg.Add(1)
		go func() {
			w.worker(ctx, in)
			wg.Done()
		}()
	}

	go func() {
		defer close(idleStopped)
		wg.Wait()
		w.logger.Debug("Expiry workers stopped")
	}()

	return idleStopped
}

func (w *Watchdog) worker(ctx context.Context, in <-chan models.Transaction) {
	for {
		select {
		case <-ctx.Done():
			return

		case gift, ok := <-in:
			if !ok {
				return
			}

			w.expireOne(ctx, gift.ID)
		}
	}
}

func (w *Watchdog) expireOne(ctx context.Context, id uuid.UUID) {
	_, err := w.gifts.Expire(ctx, id)

	switch {
	case err == nil:
		w.logger.Info("Gift expired", "gift_id", id)

	case errors.Is(err, apperrors.ErrInvalidStateTransition):
		// Another resolver settled the gift between the sweep and now
		w.logger.Debug("Gift already resolved", "gift_id", id)

	default:
		w.logger.Error("Failed to expire gift", "error", err, "gift_id", id)
	}
}
