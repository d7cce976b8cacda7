package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/ankitaduttagupta/ticketing-service/internal/repository"
)

// Sweeper returns expired reservations to the available set.  One goroutine
// runs per configured class, each looping reclaim-then-sleep until the
// context is cancelled.  Classes it does not cover stay correct; their
// abandoned leases just wait for a manual /reclaim.
type Sweeper struct {
	repo     *repository.TicketRepo
	classes  []int
	interval time.Duration
	batch    int
}

// NewSweeper constructs a Sweeper over the given classes.
func NewSweeper(repo *repository.TicketRepo, classes []int, interval time.Duration, batch int) *Sweeper {
	if repo == nil {
		panic("nil repository passed to NewSweeper")
	}
	if interval <= 0 {
		interval = time.Second
	}
	if batch < 1 {
		batch = 1
	}
	return &Sweeper{repo: repo, classes: classes, interval: interval, batch: batch}
}

// Run starts one sweep loop per class and blocks until all of them have
// observed the context cancellation and exited, which takes at most one
// interval.
func (s *Sweeper) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, class := range s.classes {
		wg.Add(1)
		go func(class int) {
			defer wg.Done()
			s.sweepClass(ctx, class)
		}(class)
	}
	wg.Wait()
}

// sweepClass is the per-class loop.  Errors other than cancellation are
// logged and followed by a normal sleep; they must never kill the loop,
// because a dead sweeper silently strands abandoned leases.
func (s *Sweeper) sweepClass(ctx context.Context, class int) {
	for {
		ids, err := s.repo.Reclaim(ctx, class, s.batch)
		switch {
		case ctx.Err() != nil:
			return
		case err != nil:
			log.Printf("sweeper: reclaim class %d failed: %v", class, err)
		case len(ids) > 0:
			log.Printf("sweeper: reclaimed %d expired leases in class %d", len(ids), class)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.interval):
		}
	}
}
