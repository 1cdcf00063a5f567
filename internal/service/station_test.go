package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/trainbot/internal/mocks"
	"github.com/Shivanand-hulikatti/trainbot/internal/model"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// newIdleStation returns a station whose countdowns never tick during a test.
func newIdleStation(t *testing.T, journal Journal) *Station {
	t.Helper()
	ctrl := gomock.NewController(t)
	s := NewStation(slog.Default(), mocks.NewMockNotifier(ctrl), journal, WithTickInterval(time.Hour))
	t.Cleanup(s.Close)
	return s
}

// requireConsistent checks the station invariants: no empty train is listed
// and the rider index matches the rosters exactly.
func requireConsistent(t *testing.T, s *Station) {
	t.Helper()
	req := require.New(t)
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]string)
	for key, train := range s.table {
		passengers := train.Passengers()
		req.NotEmpty(passengers, "train %q listed with an empty roster", key)
		req.Equal(key, train.Key)
		for _, p := range passengers {
			other, dup := seen[p]
			req.False(dup, "%q aboard both %q and %q", p, other, key)
			seen[p] = key
			req.Equal(key, s.riders[p])
		}
	}
	req.Len(s.riders, len(seen))
}

func TestStation_Start_One_Minute(t *testing.T) {
	req := require.New(t)
	s := newIdleStation(t, nil)

	msg, err := s.Start(context.Background(), "alice", "Lunch", "", 1)

	req.NoError(err)
	req.Equal("alice has started a train to Lunch that leaves in 1 minute!", msg)
	req.Len(s.Snapshot(), 1)
	req.Equal(model.DefaultCategory, s.Snapshot()[0].Category)
}

func TestStation_Start_Several_Minutes(t *testing.T) {
	req := require.New(t)
	s := newIdleStation(t, nil)

	msg, err := s.Start(context.Background(), "alice", "  Pizza   Place ", "lunch", 5)

	req.NoError(err)
	req.Equal("alice has started a train to Pizza Place that leaves in 5 minutes!", msg)
	view := s.Snapshot()[0]
	req.Equal("lunch", view.Category)
	req.Equal([]string{"alice"}, view.Passengers)
	req.Equal(5, view.MinutesRemaining)
}

func TestStation_Start_Conflict(t *testing.T) {
	req := require.New(t)
	s := newIdleStation(t, nil)
	ctx := context.Background()

	// Given a train to Lunch
	_, err := s.Start(ctx, "alice", "Lunch", "", 5)
	req.NoError(err)

	// When bob starts a train to lunch
	msg, err := s.Start(ctx, "bob", "lunch", "", 3)

	// Then it conflicts and the first train is untouched
	req.ErrorIs(err, ErrConflict)
	req.Empty(msg)
	req.Equal("There's already a train to Lunch", err.Error())
	views := s.Snapshot()
	req.Len(views, 1)
	req.Equal([]string{"alice"}, views[0].Passengers)
	req.Equal(5, views[0].MinutesRemaining)
	_, err = s.Whereabouts(ctx, "bob")
	req.ErrorIs(err, ErrNotBoarded)
	requireConsistent(t, s)
}

func TestStation_Start_Invalid_Input(t *testing.T) {
	s := newIdleStation(t, nil)
	ctx := context.Background()

	cases := []struct {
		name        string
		creator     string
		destination string
		minutes     int
	}{
		{"zero minutes", "alice", "Lunch", 0},
		{"negative minutes", "alice", "Lunch", -3},
		{"blank destination", "alice", "   ", 5},
		{"blank creator", " ", "Lunch", 5},
		{"too far ahead", "alice", "Lunch", DefaultMaxMinutes + 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := require.New(t)
			_, err := s.Start(ctx, tc.creator, tc.destination, "", tc.minutes)
			req.ErrorIs(err, ErrInvalidInput)
			req.Empty(s.Snapshot())
		})
	}
}

func TestStation_Start_Transfers_Creator(t *testing.T) {
	req := require.New(t)
	s := newIdleStation(t, nil)
	ctx := context.Background()

	// Given alice and bob on the train to Lunch
	_, err := s.Start(ctx, "alice", "Lunch", "", 5)
	req.NoError(err)
	_, err = s.Join(ctx, "bob", "lunch")
	req.NoError(err)

	// When alice starts a train to Drinks
	msg, err := s.Start(ctx, "alice", "Drinks", "", 10)

	// Then she moved and Lunch keeps bob
	req.NoError(err)
	lines := strings.Split(msg, "\n")
	req.Len(lines, 2)
	req.Equal("alice disembarked from their train to Lunch in favour of one to Drinks", lines[0])
	req.Equal("alice has started a train to Drinks that leaves in 10 minutes!", lines[1])

	views := s.Snapshot()
	req.Len(views, 2)
	req.Equal("Drinks", views[0].Destination)
	req.Equal([]string{"alice"}, views[0].Passengers)
	req.Equal("Lunch", views[1].Destination)
	req.Equal([]string{"bob"}, views[1].Passengers)
	requireConsistent(t, s)
}

func TestStation_Start_Conflict_Keeps_Old_Membership(t *testing.T) {
	req := require.New(t)
	s := newIdleStation(t, nil)
	ctx := context.Background()

	_, err := s.Start(ctx, "alice", "Lunch", "", 5)
	req.NoError(err)
	_, err = s.Start(ctx, "bob", "Drinks", "", 5)
	req.NoError(err)

	_, err = s.Start(ctx, "alice", "DRINKS", "", 5)

	req.ErrorIs(err, ErrConflict)
	msg, err := s.Whereabouts(ctx, "alice")
	req.NoError(err)
	req.Equal("alice is on the train to Lunch, leaving in 5 mins", msg)
	requireConsistent(t, s)
}

func TestStation_Start_Transfer_Abandons_Old_Train(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	journal := mocks.NewMockJournal(ctrl)
	s := newIdleStation(t, journal)
	ctx := context.Background()

	var rec model.HistoryRecord
	journal.EXPECT().Record(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, r model.HistoryRecord) error {
			rec = r
			return nil
		}).
		Times(1)

	_, err := s.Start(ctx, "alice", "Lunch", "food", 5)
	req.NoError(err)
	_, err = s.Start(ctx, "alice", "Drinks", "", 5)
	req.NoError(err)

	req.Equal(model.OutcomeAbandoned, rec.Outcome)
	req.Equal("Lunch", rec.Destination)
	req.Equal("food", rec.Category)
	req.Empty(rec.Passengers)
	req.Len(s.Snapshot(), 1)
	requireConsistent(t, s)
}

func TestStation_Join_Case_Insensitive(t *testing.T) {
	req := require.New(t)
	s := newIdleStation(t, nil)
	ctx := context.Background()

	// Given a train to Lunch
	_, err := s.Start(ctx, "alice", "Lunch", "", 5)
	req.NoError(err)

	// When bob joins lunch
	msg, err := s.Join(ctx, "bob", "lunch")

	// Then he is aboard
	req.NoError(err)
	req.Equal("bob jumped on the train to Lunch", msg)
	req.Equal("There is currently a train to Lunch in 5 mins (with alice and bob on it)", s.List(ctx))
	requireConsistent(t, s)
}

func TestStation_Join_Not_Found(t *testing.T) {
	req := require.New(t)
	s := newIdleStation(t, nil)

	_, err := s.Join(context.Background(), "carol", "Unknown")

	req.ErrorIs(err, ErrNotFound)
	req.Empty(s.Snapshot())
	req.Empty(s.riders)
}

func TestStation_Join_Already_Member(t *testing.T) {
	req := require.New(t)
	s := newIdleStation(t, nil)
	ctx := context.Background()

	_, err := s.Start(ctx, "alice", "Lunch", "", 5)
	req.NoError(err)

	_, err = s.Join(ctx, "alice", "LUNCH")

	req.ErrorIs(err, ErrAlreadyMember)
	req.Equal("alice is already on the train to Lunch", err.Error())
	req.Equal([]string{"alice"}, s.Snapshot()[0].Passengers)
}

func TestStation_Join_Invalid_Input(t *testing.T) {
	req := require.New(t)
	s := newIdleStation(t, nil)

	_, err := s.Join(context.Background(), "", "Lunch")
	req.ErrorIs(err, ErrInvalidInput)

	_, err = s.Join(context.Background(), "bob", " ")
	req.ErrorIs(err, ErrInvalidInput)
}

func TestStation_Join_Transfers_Participant(t *testing.T) {
	req := require.New(t)
	s := newIdleStation(t, nil)
	ctx := context.Background()

	// Given carol on the train to Lunch, next to alice
	_, err := s.Start(ctx, "alice", "Lunch", "", 5)
	req.NoError(err)
	_, err = s.Start(ctx, "bob", "Drinks", "", 5)
	req.NoError(err)
	_, err = s.Join(ctx, "carol", "Lunch")
	req.NoError(err)

	// When carol joins Drinks
	msg, err := s.Join(ctx, "carol", "drinks")

	// Then both facts are reported and she is only on Drinks
	req.NoError(err)
	req.Equal("carol left the train to Lunch in favour of the one to Drinks\ncarol jumped on the train to Drinks", msg)
	views := s.Snapshot()
	req.Equal([]string{"bob", "carol"}, views[0].Passengers)
	req.Equal([]string{"alice"}, views[1].Passengers)
	requireConsistent(t, s)
}

func TestStation_Join_Transfer_Retires_Emptied_Train(t *testing.T) {
	req := require.New(t)
	s := newIdleStation(t, nil)
	ctx := context.Background()

	_, err := s.Start(ctx, "alice", "Lunch", "", 5)
	req.NoError(err)
	_, err = s.Start(ctx, "bob", "Drinks", "", 5)
	req.NoError(err)

	_, err = s.Join(ctx, "bob", "Lunch")

	req.NoError(err)
	views := s.Snapshot()
	req.Len(views, 1)
	req.Equal([]string{"alice", "bob"}, views[0].Passengers)
	_, err = s.Join(ctx, "carol", "Drinks")
	req.ErrorIs(err, ErrNotFound)
	requireConsistent(t, s)
}

func TestStation_Leave(t *testing.T) {
	req := require.New(t)
	s := newIdleStation(t, nil)
	ctx := context.Background()

	// Given nobody aboard
	_, err := s.Leave(ctx, "alice")
	req.ErrorIs(err, ErrNotBoarded)
	req.Equal("alice isn't on a train", err.Error())

	// Given alice and bob on Lunch
	_, err = s.Start(ctx, "alice", "Lunch", "", 5)
	req.NoError(err)
	_, err = s.Join(ctx, "bob", "Lunch")
	req.NoError(err)

	// When alice leaves, the train stays for bob
	msg, err := s.Leave(ctx, "alice")
	req.NoError(err)
	req.Equal("alice disembarked from their train to Lunch", msg)
	req.Equal([]string{"bob"}, s.Snapshot()[0].Passengers)

	// When bob leaves, the train is retired
	_, err = s.Leave(ctx, "bob")
	req.NoError(err)
	req.Empty(s.Snapshot())
	req.Equal("There are currently no active trains", s.List(ctx))
	requireConsistent(t, s)
}

func TestStation_Leave_Journals_Abandoned_Train(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	journal := mocks.NewMockJournal(ctrl)
	s := newIdleStation(t, journal)
	ctx := context.Background()

	journal.EXPECT().Record(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, r model.HistoryRecord) error {
			req.Equal(model.OutcomeAbandoned, r.Outcome)
			req.Equal("alice", r.Conductor)
			return fmt.Errorf("database down")
		}).
		Times(1)

	_, err := s.Start(ctx, "alice", "Lunch", "", 5)
	req.NoError(err)

	// A failing journal never fails the command
	_, err = s.Leave(ctx, "alice")
	req.NoError(err)
}

func TestStation_Whereabouts(t *testing.T) {
	req := require.New(t)
	s := newIdleStation(t, nil)
	ctx := context.Background()

	_, err := s.Start(ctx, "alice", "Lunch", "", 1)
	req.NoError(err)

	msg, err := s.Whereabouts(ctx, "alice")
	req.NoError(err)
	req.Equal("alice is on the train to Lunch, leaving in 1 min", msg)

	_, err = s.Whereabouts(ctx, "bob")
	req.ErrorIs(err, ErrNotBoarded)
}

func TestStation_List_Many(t *testing.T) {
	req := require.New(t)
	s := newIdleStation(t, nil)
	ctx := context.Background()

	_, err := s.Start(ctx, "alice", "Lunch", "", 5)
	req.NoError(err)
	_, err = s.Start(ctx, "bob", "Drinks", "", 1)
	req.NoError(err)
	_, err = s.Join(ctx, "carol", "drinks")
	req.NoError(err)
	_, err = s.Join(ctx, "dave", "drinks")
	req.NoError(err)

	req.Equal("There are trains to: Drinks in 1 min (with bob, carol, and dave on it) and Lunch in 5 mins (with alice on it)",
		s.List(ctx))

	_, err = s.Start(ctx, "erin", "Coffee", "", 2)
	req.NoError(err)
	req.Equal("There are trains to: Coffee in 2 mins (with erin on it), "+
		"Drinks in 1 min (with bob, carol, and dave on it), and Lunch in 5 mins (with alice on it)",
		s.List(ctx))
}

func TestStation_Closed(t *testing.T) {
	req := require.New(t)
	s := newIdleStation(t, nil)
	ctx := context.Background()

	_, err := s.Start(ctx, "alice", "Lunch", "", 5)
	req.NoError(err)

	s.Close()

	_, err = s.Start(ctx, "bob", "Drinks", "", 5)
	req.ErrorIs(err, ErrClosed)
}

func TestStation_Concurrent_Starts_Are_Unique(t *testing.T) {
	req := require.New(t)
	s := newIdleStation(t, nil)
	ctx := context.Background()

	const starters = 50
	var wg sync.WaitGroup
	errs := make(chan error, starters)
	for i := range starters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			destination := "lunch"
			if i%2 == 0 {
				destination = "LUNCH"
			}
			_, err := s.Start(ctx, fmt.Sprintf("p%d", i), destination, "", 5)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, conflicts int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrConflict):
			conflicts++
		}
	}
	req.Equal(1, ok)
	req.Equal(starters-1, conflicts)
	req.Len(s.Snapshot(), 1)
	requireConsistent(t, s)
}

func TestStation_Concurrent_Boarding_Keeps_Single_Membership(t *testing.T) {
	req := require.New(t)
	s := newIdleStation(t, nil)
	ctx := context.Background()

	destinations := []string{"Lunch", "Drinks", "Coffee"}
	for i, d := range destinations {
		_, err := s.Start(ctx, fmt.Sprintf("conductor%d", i), d, "", 30)
		req.NoError(err)
	}

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rng := rand.New(rand.NewSource(int64(i)))
			participant := fmt.Sprintf("p%d", i%8)
			for range 200 {
				switch rng.Intn(4) {
				case 0:
					_, _ = s.Leave(ctx, participant)
				case 1:
					_, _ = s.Start(ctx, participant, destinations[rng.Intn(len(destinations))], "", 30)
				default:
					_, _ = s.Join(ctx, participant, strings.ToLower(destinations[rng.Intn(len(destinations))]))
				}
				_ = s.List(ctx)
			}
		}()
	}
	wg.Wait()

	requireConsistent(t, s)
	for i := range 8 {
		participant := fmt.Sprintf("p%d", i)
		count := 0
		for _, v := range s.Snapshot() {
			for _, p := range v.Passengers {
				if p == participant {
					count++
				}
			}
		}
		req.LessOrEqual(count, 1)
	}
}

func TestStation_Concurrent_Transfer_Is_Atomic(t *testing.T) {
	req := require.New(t)
	s := newIdleStation(t, nil)
	ctx := context.Background()

	_, err := s.Start(ctx, "alice", "A", "", 30)
	req.NoError(err)
	_, err = s.Start(ctx, "bob", "B", "", 30)
	req.NoError(err)
	_, err = s.Join(ctx, "carol", "A")
	req.NoError(err)

	// While carol bounces between A and B, an observer never sees her on
	// both trains or on neither.
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			target := "b"
			if i%2 == 1 {
				target = "a"
			}
			_, _ = s.Join(ctx, "carol", target)
		}
	}()

	for range 500 {
		count := 0
		for _, v := range s.Snapshot() {
			for _, p := range v.Passengers {
				if p == "carol" {
					count++
				}
			}
		}
		req.Equal(1, count)
	}
	close(stop)
	wg.Wait()
	requireConsistent(t, s)
}
