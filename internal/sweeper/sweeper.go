package sweeper

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mixmint/mixmint-downloads/internal/logger"
)

// Sweeper is a periodic maintenance task over the download tables
//
//go:generate mockgen -source=sweeper.go -destination=../mocks/sweeper.go -package=mocks -mock_names=Sweeper=MockSweeper
type Sweeper interface {
	// Start blocks running sweep cycles until the context is canceled or Stop is called
	Start(ctx context.Context) error

	// Stop waits for the in-flight cycle to finish
	Stop(ctx context.Context) error

	// RunOnce performs a single cycle and returns the number of rows removed
	RunOnce(ctx context.Context) (int64, error)

	Name() string
}

// Run starts every sweeper and blocks until ctx is canceled or one of them fails.
// All sweepers are then stopped and awaited within stopTimeout.
func Run(ctx context.Context, stopTimeout time.Duration, sweepers ...Sweeper) error {
	errCh := make(chan error, len(sweepers))
	var wg sync.WaitGroup
	for _, s := range sweepers {
		wg.Add(1)
		go func(s Sweeper) {
			defer wg.Done()
			if err := s.Start(ctx); err != nil {
				errCh <- err
			}
		}(s)
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	var stopErrs []error
	for _, s := range sweepers {
		if err := s.Stop(stopCtx); err != nil {
			logger.WarnCtx(stopCtx, "Sweeper did not stop cleanly", zap.String("sweeper", s.Name()), zap.Error(err))
			stopErrs = append(stopErrs, err)
		}
	}

	select {
	case <-done:
	case <-stopCtx.Done():
		stopErrs = append(stopErrs, stopCtx.Err())
	}

	return errors.Join(append([]error{runErr}, stopErrs...)...)
}

// RunOnce runs a single cycle of every sweeper in order
func RunOnce(ctx context.Context, sweepers ...Sweeper) error {
	for _, s := range sweepers {
		n, err := s.RunOnce(ctx)
		if err != nil {
			return err
		}
		logger.InfoCtx(ctx, "Sweeper cycle finished", zap.String("sweeper", s.Name()), zap.Int64("deleted", n))
	}
	return nil
}
