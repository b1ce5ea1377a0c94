package sink

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"cowin-slots/model"

	"github.com/gofrs/flock"
)

// Sink persists the matches found by one worker in one round.
type Sink interface {
	Write(matches []model.Match, foundAt time.Time) error
}

// Locked serialises writes to the wrapped sinks. The mutex orders goroutines of
// this process; the file lock keeps a second instance from interleaving.
type Locked struct {
	mu    sync.Mutex
	flock *flock.Flock
	sinks []Sink
}

func NewLocked(lockPath string, sinks ...Sink) *Locked {
	return &Locked{
		flock: flock.New(lockPath),
		sinks: sinks,
	}
}

func (l *Locked) Write(matches []model.Match, foundAt time.Time) error {
	if len(matches) == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.flock.Lock(); err != nil {
		return fmt.Errorf("acquire %s: %w", l.flock.Path(), err)
	}
	defer l.flock.Unlock()

	var errs []error
	for _, s := range l.sinks {
		if err := s.Write(matches, foundAt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
