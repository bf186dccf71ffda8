package usage

import (
	"context"
	"sync"
	"time"

	"jokefeed/internal/analytics"
	"jokefeed/internal/ledger"
	"jokefeed/internal/models"
	"jokefeed/internal/prefs"
	"jokefeed/pkg/logger"
)

// DateLayout is the calendar-date format stored in prefs. Day boundaries
// are the device's local calendar, not the backend's.
const DateLayout = "2006-01-02"

// Backend is the remote usage endpoint the coordinator pushes snapshots to.
type Backend interface {
	TrackUsage(ctx context.Context, snap models.UsageSnapshot) error
}

// Identity answers the admin and subscription questions the coordinator and
// gate need. Read-only.
type Identity interface {
	IsAdmin() bool
	IsDigestSubscribed() bool
}

// Event identifies what changed in a usage-change notification.
type Event string

const (
	EventDayIncremented Event = "day_incremented"
	EventCounterChanged Event = "counter_changed"
)

// Observer receives usage-change events synchronously after persist.
type Observer func(Event)

// Coordinator owns every mutation of the counter store and the interaction
// ledger. All UI-observed events funnel through it so the day-boundary and
// floor invariants hold.
type Coordinator struct {
	prefs    *prefs.Store
	ledger   *ledger.Store
	backend  Backend
	sink     analytics.Sink
	identity Identity
	debug    bool
	timeout  time.Duration

	now func() time.Time

	mu        sync.Mutex
	observers []Observer

	// tracks in-flight deferred tasks so shutdown (and tests) can drain them
	tasks sync.WaitGroup
}

func NewCoordinator(p *prefs.Store, l *ledger.Store, b Backend, sink analytics.Sink, id Identity, debug bool) *Coordinator {
	if sink == nil {
		sink = analytics.Noop{}
	}
	return &Coordinator{
		prefs:    p,
		ledger:   l,
		backend:  b,
		sink:     sink,
		identity: id,
		debug:    debug,
		timeout:  15 * time.Second,
		now:      time.Now,
	}
}

// WithClock overrides the coordinator's time source. Tests only.
func (c *Coordinator) WithClock(now func() time.Time) *Coordinator {
	c.now = now
	return c
}

// Subscribe registers an observer for usage-change events.
func (c *Coordinator) Subscribe(o Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, o)
}

func (c *Coordinator) notify(e Event) {
	c.mu.Lock()
	observers := make([]Observer, len(c.observers))
	copy(observers, c.observers)
	c.mu.Unlock()

	for _, o := range observers {
		o(e)
	}
}

// Drain blocks until all deferred ledger writes and snapshot pushes have
// finished. Called on shutdown and from tests.
func (c *Coordinator) Drain() {
	c.tasks.Wait()
}

// LogAppUsage records one app foreground. firstUsedDate is set once,
// lastUsedDate always becomes today, and numDaysUsed increments only when
// today differs from the stored lastUsedDate — at most one increment per
// calendar day no matter how often the app comes to the foreground.
func (c *Coordinator) LogAppUsage() {
	today := c.now().Format(DateLayout)

	if _, ok := c.prefs.GetString(prefs.KeyFirstUsedDate); !ok {
		if err := c.prefs.SetString(prefs.KeyFirstUsedDate, today); err != nil {
			logger.Error("Failed to persist first-used date", logger.Err(err))
		}
	}

	last, hadLast := c.prefs.GetString(prefs.KeyLastUsedDate)

	if err := c.prefs.SetString(prefs.KeyLastUsedDate, today); err != nil {
		logger.Error("Failed to persist last-used date", logger.Err(err))
	}

	if hadLast && last == today {
		return
	}

	days, _ := c.prefs.GetInt(prefs.KeyNumDaysUsed)
	days++
	if err := c.prefs.SetInt(prefs.KeyNumDaysUsed, days); err != nil {
		logger.Error("Failed to persist day count", logger.Err(err))
		return
	}

	c.sink.DayIncremented(days)
	c.notify(EventDayIncremented)
	c.pushUsageSnapshot()
}

// LogJokeNavigated records that the feed scrolled to the joke. Ledger only;
// counters are untouched.
func (c *Coordinator) LogJokeNavigated(joke models.Joke) {
	now := c.now()
	c.deferred(func() {
		upd := snapshotUpdate(joke)
		upd.Navigated = &now
		c.upsertJoke(joke.ID, upd)
	})
}

// LogJokeViewed records a completed view: the ledger row gains a viewed
// timestamp and the viewed counter increments.
func (c *Coordinator) LogJokeViewed(joke models.Joke) {
	now := c.now()
	c.deferred(func() {
		upd := snapshotUpdate(joke)
		upd.Viewed = &now
		c.upsertJoke(joke.ID, upd)
	})

	c.bump(prefs.KeyNumJokesViewed, 1)
}

// IncrementSavedJokesCount records a save: ledger saved timestamp plus the
// saved counter.
func (c *Coordinator) IncrementSavedJokesCount(joke models.Joke) {
	now := c.now()
	c.deferred(func() {
		upd := snapshotUpdate(joke)
		upd.Saved = &now
		c.upsertJoke(joke.ID, upd)
	})

	c.bump(prefs.KeyNumSavedJokes, 1)
}

// DecrementSavedJokesCount records an unsave. The counter never goes below
// zero; rapid double-taps are an accepted race bounded by the floor.
func (c *Coordinator) DecrementSavedJokesCount() {
	c.bump(prefs.KeyNumSavedJokes, -1)
}

// IncrementSharedJokesCount records a share.
func (c *Coordinator) IncrementSharedJokesCount(joke models.Joke) {
	now := c.now()
	c.deferred(func() {
		upd := snapshotUpdate(joke)
		upd.Shared = &now
		c.upsertJoke(joke.ID, upd)
	})

	c.bump(prefs.KeyNumSharedJokes, 1)
}

// LogCategoryViewed records a category visit as a deferred task so UI
// callers never wait on storage.
func (c *Coordinator) LogCategoryViewed(categoryID string) {
	now := c.now()
	c.deferred(func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()

		if err := c.ledger.UpsertCategoryInteraction(ctx, categoryID, &now); err != nil {
			logger.Error("Failed to record category interaction",
				logger.String("category_id", categoryID),
				logger.Err(err),
			)
		}
		c.sink.CategoryViewed(categoryID)
	})
}

// Snapshot gathers the current counters. Missing keys read as zero/false.
func (c *Coordinator) Snapshot() models.UsageSnapshot {
	days, _ := c.prefs.GetInt(prefs.KeyNumDaysUsed)
	saved, _ := c.prefs.GetInt(prefs.KeyNumSavedJokes)
	viewed, _ := c.prefs.GetInt(prefs.KeyNumJokesViewed)
	shared, _ := c.prefs.GetInt(prefs.KeyNumSharedJokes)
	requested, _ := c.prefs.GetBool(prefs.KeyReviewRequested)

	return models.UsageSnapshot{
		NumDaysUsed:     days,
		NumSavedJokes:   saved,
		NumJokesViewed:  viewed,
		NumSharedJokes:  shared,
		RequestedReview: requested,
	}
}

// bump applies a read-compute-persist-notify-push cycle to one counter,
// flooring at zero.
func (c *Coordinator) bump(key string, delta int) {
	current, _ := c.prefs.GetInt(key)
	next := current + delta
	if next < 0 {
		next = 0
	}

	if err := c.prefs.SetInt(key, next); err != nil {
		logger.Error("Failed to persist counter",
			logger.String("key", key),
			logger.Err(err),
		)
		return
	}

	c.notify(EventCounterChanged)
	c.pushUsageSnapshot()
}

// pushUsageSnapshot fires a detached best-effort push of the current
// counters. Debug builds and administrator accounts are skipped so they
// never pollute production telemetry. Failures are logged and dropped;
// there is no retry.
func (c *Coordinator) pushUsageSnapshot() {
	if c.backend == nil {
		return
	}

	c.deferred(func() {
		if c.debug || (c.identity != nil && c.identity.IsAdmin()) {
			logger.Debug("Skipping usage snapshot push",
				logger.Bool("debug", c.debug),
			)
			return
		}

		snap := c.Snapshot()

		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()

		if err := c.backend.TrackUsage(ctx, snap); err != nil {
			logger.Warn("Usage snapshot push failed", logger.Err(err))
		}
	})
}

func (c *Coordinator) deferred(fn func()) {
	c.tasks.Add(1)
	go func() {
		defer c.tasks.Done()
		fn()
	}()
}

func (c *Coordinator) upsertJoke(jokeID string, upd ledger.JokeUpdate) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	if err := c.ledger.UpsertJokeInteraction(ctx, jokeID, upd); err != nil {
		logger.Error("Failed to record joke interaction",
			logger.String("joke_id", jokeID),
			logger.Err(err),
		)
	}
}

// snapshotUpdate denormalizes the joke content into the ledger row so the
// history survives remote content edits.
func snapshotUpdate(joke models.Joke) ledger.JokeUpdate {
	upd := ledger.JokeUpdate{}
	if joke.SetupText != "" {
		upd.SetupText = &joke.SetupText
	}
	if joke.PunchlineText != "" {
		upd.PunchlineText = &joke.PunchlineText
	}
	if joke.SetupImageURL != "" {
		upd.SetupImageURL = &joke.SetupImageURL
	}
	if joke.PunchlineImageURL != "" {
		upd.PunchlineImageURL = &joke.PunchlineImageURL
	}
	idx := joke.FeedIndex
	upd.FeedIndex = &idx
	return upd
}
