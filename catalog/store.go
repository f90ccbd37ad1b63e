package catalog

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("qconsole.catalog")

// Store holds the latest snapshot. Readers never block on a refresh.
type Store struct {
	current atomic.Pointer[Snapshot]
}

// NewStore creates a store holding an empty snapshot.
func NewStore() *Store {
	s := &Store{}
	s.current.Store(NewSnapshot(nil))
	return s
}

// Snapshot returns the latest snapshot.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Set replaces the current snapshot.
func (s *Store) Set(snap *Snapshot) {
	if snap != nil {
		s.current.Store(snap)
	}
}

// Refresh fetches from src once. On failure the previous snapshot stays.
func (s *Store) Refresh(ctx context.Context, src Source) error {
	snap, err := src.Fetch(ctx)
	if err != nil {
		return err
	}
	s.Set(snap)
	return nil
}

// Start refreshes from src immediately and then on every interval tick
// until ctx is done or stop is called.
func (s *Store) Start(ctx context.Context, src Source, interval time.Duration) (stop func()) {
	if err := s.Refresh(ctx, src); err != nil {
		log.Warningf("catalog refresh failed: %s", err)
	}
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := s.Refresh(ctx, src); err != nil {
					log.Warningf("catalog refresh failed: %s", err)
				}
			case <-ctx.Done():
				return
			case <-done:
				return
			}
		}
	}()
	var closed atomic.Bool
	return func() {
		if closed.CompareAndSwap(false, true) {
			close(done)
		}
	}
}
