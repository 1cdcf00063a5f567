// Package model defines the core domain types for the train station.
package model

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// DefaultCategory labels a train started without an explicit category.
const DefaultCategory = "train"

// Outcomes recorded in the departure history.
const (
	OutcomeDeparted  = "departed"
	OutcomeAbandoned = "abandoned"
)

// Departure is a train: a named group of passengers counting down to an
// automatic, one-shot departure. The roster and the remaining-time mirror are
// guarded by the train's own lock, which is never exposed.
type Departure struct {
	ID          string
	Key         string
	Destination string
	Category    string
	Conductor   string
	CreatedAt   time.Time
	DepartsAt   time.Time

	mu        sync.Mutex
	roster    map[string]struct{}
	remaining int // seconds
}

// NewDeparture creates a train with the conductor as its only passenger.
func NewDeparture(conductor, destination, category string, minutes int, now time.Time) *Departure {
	destination = DisplayName(destination)
	return &Departure{
		ID:          uuid.New().String(),
		Key:         NormalizeKey(destination),
		Destination: destination,
		Category:    category,
		Conductor:   conductor,
		CreatedAt:   now.UTC(),
		DepartsAt:   now.UTC().Add(time.Duration(minutes) * time.Minute),
		roster:      map[string]struct{}{conductor: {}},
		remaining:   minutes * 60,
	}
}

// DisplayName trims a destination and collapses its inner whitespace,
// keeping the case as submitted.
func DisplayName(destination string) string {
	return strings.Join(strings.Fields(destination), " ")
}

// NormalizeKey case-folds a destination into its station key.
func NormalizeKey(destination string) string {
	return strings.ToLower(DisplayName(destination))
}

// Board adds a passenger. It returns false if they were already aboard.
func (d *Departure) Board(passenger string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.roster[passenger]; ok {
		return false
	}
	d.roster[passenger] = struct{}{}
	return true
}

// Disembark removes a passenger and returns how many remain aboard.
// ok is false if the passenger was not aboard.
func (d *Departure) Disembark(passenger string) (left int, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok = d.roster[passenger]; !ok {
		return len(d.roster), false
	}
	delete(d.roster, passenger)
	return len(d.roster), true
}

// Aboard reports whether the passenger is on this train.
func (d *Departure) Aboard(passenger string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.roster[passenger]
	return ok
}

// Size returns the number of passengers aboard.
func (d *Departure) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.roster)
}

// Passengers returns a sorted copy of the roster.
func (d *Departure) Passengers() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.passengersLocked()
}

func (d *Departure) passengersLocked() []string {
	passengers := lo.Keys(d.roster)
	slices.Sort(passengers)
	return passengers
}

// SetRemaining mirrors the countdown worker's counter for display.
func (d *Departure) SetRemaining(seconds int) {
	d.mu.Lock()
	d.remaining = seconds
	d.mu.Unlock()
}

// Remaining returns the last mirrored countdown, in seconds.
func (d *Departure) Remaining() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.remaining
}

// RemainingMinutes rounds the remaining seconds up to whole minutes.
func (d *Departure) RemainingMinutes() int {
	return (d.Remaining() + 59) / 60
}

// View takes a consistent snapshot of the train for presentation.
func (d *Departure) View() DepartureView {
	d.mu.Lock()
	defer d.mu.Unlock()
	return DepartureView{
		ID:               d.ID,
		Destination:      d.Destination,
		Category:         d.Category,
		Conductor:        d.Conductor,
		Passengers:       d.passengersLocked(),
		MinutesRemaining: (d.remaining + 59) / 60,
		DepartsAt:        d.DepartsAt,
	}
}

// Record snapshots the train into a history entry with the given outcome.
func (d *Departure) Record(outcome string, closedAt time.Time) HistoryRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	return HistoryRecord{
		ID:          uuid.New().String(),
		DepartureID: d.ID,
		Destination: d.Destination,
		Category:    d.Category,
		Conductor:   d.Conductor,
		Passengers:  d.passengersLocked(),
		Outcome:     outcome,
		CreatedAt:   d.CreatedAt,
		ClosedAt:    closedAt.UTC(),
	}
}

// DepartureView is the read-only snapshot of a train returned by the API.
type DepartureView struct {
	ID               string    `json:"id"`
	Destination      string    `json:"destination"`
	Category         string    `json:"category"`
	Conductor        string    `json:"conductor"`
	Passengers       []string  `json:"passengers"`
	MinutesRemaining int       `json:"minutes_remaining"`
	DepartsAt        time.Time `json:"departs_at"`
}

// HistoryRecord is one closed train in the departure journal.
type HistoryRecord struct {
	ID          string    `json:"id"`
	DepartureID string    `json:"departure_id"`
	Destination string    `json:"destination"`
	Category    string    `json:"category"`
	Conductor   string    `json:"conductor"`
	Passengers  []string  `json:"passengers"`
	Outcome     string    `json:"outcome"`
	CreatedAt   time.Time `json:"created_at"`
	ClosedAt    time.Time `json:"closed_at"`
}

// StartRequest is the payload for starting a new train.
type StartRequest struct {
	Conductor   string `json:"conductor" validate:"required"`
	Destination string `json:"destination" validate:"required"`
	Category    string `json:"category"`
	Minutes     int    `json:"minutes" validate:"required,gt=0"`
}

// JoinRequest is the payload for boarding an existing train.
type JoinRequest struct {
	Passenger string `json:"passenger" validate:"required"`
}

// MessageResponse carries the human-readable outcome of a station operation.
type MessageResponse struct {
	Message string `json:"message"`
}

// SlashResponse is the reply body for a chat slash command.
type SlashResponse struct {
	ResponseType string `json:"response_type"`
	Text         string `json:"text"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
