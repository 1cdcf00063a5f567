// Package service implements the station: the shared registry of trains,
// their rosters and the countdown workers that send them off.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Shivanand-hulikatti/trainbot/internal/model"
	"github.com/Shivanand-hulikatti/trainbot/internal/observability"
	"github.com/samber/lo"
)

const (
	DefaultTickInterval = time.Second
	DefaultMaxMinutes   = 24 * 60
)

type Option func(*Station)

// WithTickInterval sets how long one countdown second lasts.
func WithTickInterval(d time.Duration) Option {
	return func(s *Station) { s.tick = d }
}

// WithMaxMinutes caps how far in the future a train may leave.
func WithMaxMinutes(n int) Option {
	return func(s *Station) { s.maxMinutes = n }
}

func WithClock(now func() time.Time) Option {
	return func(s *Station) { s.now = now }
}

// Station owns every active train.
//
// Lock order is always Station.mu before any Departure lock. The notifier and
// the journal are only ever called with no lock held.
type Station struct {
	log        *slog.Logger
	notifier   Notifier
	journal    Journal
	tick       time.Duration
	maxMinutes int
	now        func() time.Time

	mu     sync.Mutex
	table  map[string]*model.Departure // key -> train
	riders map[string]string           // passenger -> key
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewStation constructs an empty station. journal may be nil.
func NewStation(log *slog.Logger, notifier Notifier, journal Journal, opts ...Option) *Station {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Station{
		log:        log,
		notifier:   notifier,
		journal:    journal,
		tick:       DefaultTickInterval,
		maxMinutes: DefaultMaxMinutes,
		now:        time.Now,
		table:      make(map[string]*model.Departure),
		riders:     make(map[string]string),
		ctx:        ctx,
		cancel:     cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens a new train to destination with creator aboard and spawns its
// countdown. A creator already aboard another train leaves it first.
func (s *Station) Start(ctx context.Context, creator, destination, category string, minutesUntil int) (string, error) {
	creator = strings.TrimSpace(creator)
	display := model.DisplayName(destination)
	category = strings.TrimSpace(category)
	switch {
	case creator == "":
		return "", fail(ErrInvalidInput, "Please say who is starting the train")
	case display == "":
		return "", fail(ErrInvalidInput, "Please say where the train is going")
	case minutesUntil <= 0:
		return "", fail(ErrInvalidInput, "Please specify a time greater than 0 mins")
	case minutesUntil > s.maxMinutes:
		return "", fail(ErrInvalidInput, "Trains can't leave more than %s from now", mins(s.maxMinutes))
	}
	if category == "" {
		category = model.DefaultCategory
	}
	key := model.NormalizeKey(display)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", fail(ErrClosed, "The station is closed")
	}
	if existing, ok := s.table[key]; ok {
		s.mu.Unlock()
		return "", fail(ErrConflict, "There's already a train to %s", existing.Destination)
	}

	var lines []string
	var abandoned *model.HistoryRecord
	if oldKey, aboard := s.riders[creator]; aboard {
		old, rec := s.disembarkLocked(creator, oldKey)
		abandoned = rec
		lines = append(lines, fmt.Sprintf("%s disembarked from their train to %s in favour of one to %s",
			creator, old.Destination, display))
	}

	train := model.NewDeparture(creator, display, category, minutesUntil, s.now())
	s.table[key] = train
	s.riders[creator] = key
	active := len(s.table)
	s.wg.Add(1)
	s.mu.Unlock()

	go s.countdown(train.Key, train.ID, train.Destination, minutesUntil*60)

	observability.SetActiveDepartures(active)
	s.archive(ctx, abandoned)
	s.log.Info("Train started", "destination", train.Destination, "conductor", creator,
		"minutes", minutesUntil, "departure_id", train.ID)

	lines = append(lines, fmt.Sprintf("%s has started a train to %s that leaves in %s!",
		creator, train.Destination, minutes(minutesUntil)))
	return strings.Join(lines, "\n"), nil
}

// Join boards participant on the train to destination. A participant aboard
// another train is moved, atomically, in the same critical section.
func (s *Station) Join(ctx context.Context, participant, destination string) (string, error) {
	participant = strings.TrimSpace(participant)
	key := model.NormalizeKey(destination)
	if participant == "" || key == "" {
		return "", fail(ErrInvalidInput, "Please say who is joining and which train")
	}

	s.mu.Lock()
	train, ok := s.table[key]
	if !ok {
		s.mu.Unlock()
		return "", fail(ErrNotFound, "That train doesn't exist, please try again or find a new train to join")
	}
	oldKey, aboard := s.riders[participant]
	if aboard && oldKey == key {
		s.mu.Unlock()
		return "", fail(ErrAlreadyMember, "%s is already on the train to %s", participant, train.Destination)
	}

	var lines []string
	var abandoned *model.HistoryRecord
	if aboard {
		old, rec := s.disembarkLocked(participant, oldKey)
		abandoned = rec
		lines = append(lines, fmt.Sprintf("%s left the train to %s in favour of the one to %s",
			participant, old.Destination, train.Destination))
	}
	if !train.Board(participant) {
		panic(fmt.Sprintf("station: %q aboard %q but missing from the rider index", participant, key))
	}
	s.riders[participant] = key
	active := len(s.table)
	s.mu.Unlock()

	observability.SetActiveDepartures(active)
	s.archive(ctx, abandoned)
	s.log.Info("Passenger boarded", "destination", train.Destination, "participant", participant)

	lines = append(lines, fmt.Sprintf("%s jumped on the train to %s", participant, train.Destination))
	return strings.Join(lines, "\n"), nil
}

// Leave takes participant off their train. A train left empty is retired
// before the station lock is released.
func (s *Station) Leave(ctx context.Context, participant string) (string, error) {
	participant = strings.TrimSpace(participant)

	s.mu.Lock()
	key, aboard := s.riders[participant]
	if !aboard {
		s.mu.Unlock()
		return "", fail(ErrNotBoarded, "%s isn't on a train", participant)
	}
	train, abandoned := s.disembarkLocked(participant, key)
	active := len(s.table)
	s.mu.Unlock()

	observability.SetActiveDepartures(active)
	s.archive(ctx, abandoned)
	s.log.Info("Passenger disembarked", "destination", train.Destination, "participant", participant)

	return fmt.Sprintf("%s disembarked from their train to %s", participant, train.Destination), nil
}

// Whereabouts reports which train participant is on.
func (s *Station) Whereabouts(_ context.Context, participant string) (string, error) {
	participant = strings.TrimSpace(participant)

	s.mu.Lock()
	defer s.mu.Unlock()
	key, aboard := s.riders[participant]
	if !aboard {
		return "", fail(ErrNotBoarded, "%s isn't on a train", participant)
	}
	train := s.lookupLocked(key)
	return fmt.Sprintf("%s is on the train to %s, leaving in %s",
		participant, train.Destination, mins(train.RemainingMinutes())), nil
}

// List renders every active train.
func (s *Station) List(_ context.Context) string {
	return RenderListing(s.Snapshot())
}

// Snapshot returns the active trains sorted by key. Each roster is copied
// under its own lock, one train at a time.
func (s *Station) Snapshot() []model.DepartureView {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := lo.Keys(s.table)
	slices.Sort(keys)
	return lo.Map(keys, func(key string, _ int) model.DepartureView {
		return s.table[key].View()
	})
}

// Close stops every countdown and waits for the workers to return.
// Trains still waiting are dropped without notification.
func (s *Station) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}

// disembarkLocked removes participant from the train at key, retiring the
// train if it is left empty. The caller holds s.mu.
func (s *Station) disembarkLocked(participant, key string) (*model.Departure, *model.HistoryRecord) {
	train := s.lookupLocked(key)
	left, ok := train.Disembark(participant)
	if !ok {
		panic(fmt.Sprintf("station: rider index has %q on %q but the roster does not", participant, key))
	}
	delete(s.riders, participant)
	if left > 0 {
		return train, nil
	}
	delete(s.table, key)
	rec := train.Record(model.OutcomeAbandoned, s.now())
	return train, &rec
}

func (s *Station) lookupLocked(key string) *model.Departure {
	train, ok := s.table[key]
	if !ok {
		panic(fmt.Sprintf("station: rider index points at missing train %q", key))
	}
	return train
}

// checkIn mirrors the countdown into the train and reports whether the
// worker's train is still the live one for key.
func (s *Station) checkIn(key, id string, remaining int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	train, ok := s.table[key]
	if !ok || train.ID != id {
		return false
	}
	if train.Size() == 0 {
		panic(fmt.Sprintf("station: empty train %q still listed", key))
	}
	train.SetRemaining(remaining)
	return true
}

// retire removes the worker's train, if it is still the live one for key,
// and returns its final state. Retiring an absent train is a no-op.
func (s *Station) retire(key, id string) (*model.HistoryRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	train, ok := s.table[key]
	if !ok || train.ID != id {
		return nil, false
	}
	rec := train.Record(model.OutcomeDeparted, s.now())
	delete(s.table, key)
	for _, p := range rec.Passengers {
		delete(s.riders, p)
	}
	observability.SetActiveDepartures(len(s.table))
	return &rec, true
}

// archive journals a train that has left the station. Called with no lock held.
func (s *Station) archive(ctx context.Context, rec *model.HistoryRecord) {
	if rec == nil {
		return
	}
	observability.RecordDeparture(rec.Outcome)
	s.log.Info("Train closed", "destination", rec.Destination, "outcome", rec.Outcome)
	if s.journal == nil {
		return
	}
	if err := s.journal.Record(ctx, *rec); err != nil {
		s.log.Warn("Failed to journal train", "destination", rec.Destination, "error", err)
	}
}
