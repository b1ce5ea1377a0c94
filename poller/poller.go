package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"cowin-slots/dedupe"
	"cowin-slots/fetcher"
	"cowin-slots/matcher"
	"cowin-slots/model"
	"cowin-slots/notifier"
	"cowin-slots/sink"

	"github.com/go-co-op/gocron"
	"github.com/sourcegraph/conc/pool"
)

type Fetcher interface {
	Fetch(ctx context.Context, dp model.DataPoint) ([]model.SlotRecord, error)
}

type Options struct {
	Logger            *slog.Logger
	Fetcher           Fetcher
	Notifier          notifier.Notifier
	Sink              sink.Sink
	Seen              *dedupe.Cache
	DataPoints        []model.DataPoint
	Criteria          model.SearchCriteria
	RequestsPerMinute int
	Workers           int
}

type Stats struct {
	State     string    `json:"state"`
	Rounds    int64     `json:"rounds"`
	Requests  int64     `json:"requests"`
	Matches   int64     `json:"matches"`
	StartedAt time.Time `json:"startedAt"`
}

// Driver runs fetch, match and alert rounds over every data point, sleeping
// between rounds to stay inside the request budget.
type Driver struct {
	log      *slog.Logger
	fetcher  Fetcher
	notifier notifier.Notifier
	sink     sink.Sink
	seen     *dedupe.Cache
	points   []model.DataPoint
	criteria model.SearchCriteria
	workers  int
	interval time.Duration

	state     atomic.Int32
	rounds    atomic.Int64
	requests  atomic.Int64
	matches   atomic.Int64
	startedAt time.Time
	now       func() time.Time
}

// SleepInterval spreads points requests over the per-minute budget.
func SleepInterval(points, requestsPerMinute int) time.Duration {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 1
	}
	return time.Duration(points) * time.Minute / time.Duration(requestsPerMinute)
}

func New(opts Options) *Driver {
	workers := opts.Workers
	if workers <= 0 || workers > len(opts.DataPoints) {
		workers = len(opts.DataPoints)
	}
	if workers < 1 {
		workers = 1
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	n := opts.Notifier
	if n == nil {
		n = notifier.Noop{}
	}
	seen := opts.Seen
	if seen == nil {
		seen = dedupe.NewCache(10000, 30*time.Minute)
	}

	return &Driver{
		log:       log,
		fetcher:   opts.Fetcher,
		notifier:  n,
		sink:      opts.Sink,
		seen:      seen,
		points:    opts.DataPoints,
		criteria:  opts.Criteria,
		workers:   workers,
		interval:  SleepInterval(len(opts.DataPoints), opts.RequestsPerMinute),
		startedAt: time.Now(),
		now:       time.Now,
	}
}

func (d *Driver) State() State {
	return State(d.state.Load())
}

func (d *Driver) setState(s State) {
	d.state.Store(int32(s))
	d.log.Debug("poller state", slog.String("state", s.String()))
}

func (d *Driver) Stats() Stats {
	return Stats{
		State:     d.State().String(),
		Rounds:    d.rounds.Load(),
		Requests:  d.requests.Load(),
		Matches:   d.matches.Load(),
		StartedAt: d.startedAt,
	}
}

// Run polls until ctx is cancelled.
func (d *Driver) Run(ctx context.Context) error {
	scheduler := gocron.NewScheduler(time.Local)
	if _, err := scheduler.Every(1).Minute().Do(d.logStats); err != nil {
		return fmt.Errorf("schedule stats job: %w", err)
	}
	scheduler.StartAsync()
	defer scheduler.Stop()

	d.log.Info("poller started",
		slog.Int("dataPoints", len(d.points)),
		slog.Int("workers", d.workers),
		slog.Duration("sleep", d.interval))

	for {
		d.RunRound(ctx)
		if ctx.Err() != nil {
			break
		}

		d.setState(StateSleeping)
		d.log.Info(fmt.Sprintf("sleeping for %v", d.interval))
		select {
		case <-ctx.Done():
		case <-time.After(d.interval):
		}
		if ctx.Err() != nil {
			break
		}
	}

	d.setState(StateIdle)
	d.log.Info("poller stopped", slog.Int64("rounds", d.rounds.Load()), slog.Int64("requests", d.requests.Load()))
	return nil
}

// RunRound polls every data point concurrently and returns once all are done.
func (d *Driver) RunRound(ctx context.Context) {
	d.setState(StateDispatching)
	p := pool.New().WithMaxGoroutines(d.workers)
	for _, dp := range d.points {
		dp := dp
		p.Go(func() {
			d.poll(ctx, dp)
		})
	}

	d.setState(StateAwaitingCompletion)
	p.Wait()
	d.rounds.Add(1)
}

func (d *Driver) poll(ctx context.Context, dp model.DataPoint) {
	log := d.log.With(slog.String("dataPoint", dp.Key()))
	d.requests.Add(1)

	slots, err := d.fetcher.Fetch(ctx, dp)
	if err != nil {
		var statusErr *fetcher.StatusError
		switch {
		case errors.As(err, &statusErr):
			log.Warn("upstream rejected request", slog.Int("status", statusErr.Code), slog.String("body", statusErr.Body))
		case ctx.Err() != nil:
			log.Debug("request cancelled", slog.Any("error", err))
		default:
			log.Warn("can't fetch slots", slog.Any("error", err))
		}
		return
	}

	matches := matcher.Filter(slots, d.criteria)
	fresh := matches[:0:0]
	for _, m := range matches {
		if d.seen.FirstSeen(m.Key()) {
			fresh = append(fresh, m)
		}
	}
	log.Debug("response evaluated", slog.Int("slots", len(slots)), slog.Int("matches", len(matches)), slog.Int("new", len(fresh)))
	if len(fresh) == 0 {
		return
	}

	d.matches.Add(int64(len(fresh)))
	for _, m := range fresh {
		log.Info("found slot",
			slog.String("center", m.Slot.Name),
			slog.Int("pincode", m.Slot.Pincode),
			slog.String("date", m.Slot.Date),
			slog.String("vaccine", m.Slot.Vaccine),
			slog.Int("dose", int(m.Dose)),
			slog.Int("capacity", m.Capacity))
	}

	if d.sink != nil {
		if err := d.sink.Write(fresh, d.now()); err != nil {
			log.Error("can't persist matched slots", slog.Any("error", err))
		}
	}
	d.notify(ctx, log, fresh)
}

func (d *Driver) notify(ctx context.Context, log *slog.Logger, matches []model.Match) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn("notifier panicked", slog.Any("panic", r))
		}
	}()
	d.notifier.Notify(ctx, matches)
}

func (d *Driver) logStats() {
	minutes := int(time.Since(d.startedAt).Minutes())
	d.log.Info(fmt.Sprintf("number of sent requests %d in %d min(s)", d.requests.Load(), minutes))
}
