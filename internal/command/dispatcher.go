// Package command turns "/train" chat commands into station operations.
package command

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Shivanand-hulikatti/trainbot/internal/observability"
	"github.com/Shivanand-hulikatti/trainbot/internal/service"
)

const (
	msgMalformed = "Your command could not be found or was malformed, please view the help message (/train help) for more details"
	msgNotFound  = "Your train/destination could not be found, please try again"
	msgBadTime   = "Couldn't parse your time to departure. Please make sure it's an int >= 1"
	msgLowTime   = "Please specify a time greater than 0 mins"
	msgFailure   = "Something went wrong at the station, please try again"
)

const Help = ":steam_locomotive: Need some help with `/train`?\n" +
	"To start a new train:\n" +
	"`/train start [#category] <destination> <departure_time>`\n\n" +
	"To join an existing train:\n" +
	"`/train join <destination>`\n\n" +
	"To leave your train:\n" +
	"`/train leave`\n\n" +
	"To see which train you are on:\n" +
	"`/train where`\n\n" +
	"To list all active trains:\n" +
	"`/train active`"

// Station is the set of station operations the dispatcher drives.
type Station interface {
	Start(ctx context.Context, creator, destination, category string, minutes int) (string, error)
	Join(ctx context.Context, participant, destination string) (string, error)
	Leave(ctx context.Context, participant string) (string, error)
	Whereabouts(ctx context.Context, participant string) (string, error)
	List(ctx context.Context) string
}

type Dispatcher struct {
	station Station
	log     *slog.Logger
}

func NewDispatcher(station Station, log *slog.Logger) *Dispatcher {
	return &Dispatcher{station: station, log: log}
}

// Dispatch runs one command on behalf of user and returns the reply text.
// Expected failures (unknown train, already aboard...) come back as replies.
func (d *Dispatcher) Dispatch(ctx context.Context, user, text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		observability.RecordCommand("none", "malformed")
		return msgMalformed
	}
	verb, args := strings.ToLower(fields[0]), fields[1:]

	var (
		reply string
		err   error
	)
	switch {
	case verb == "help":
		reply = Help
	case verb == "active" && len(args) == 0:
		reply = d.station.List(ctx)
	case verb == "join" && len(args) >= 1:
		reply, err = d.station.Join(ctx, user, strings.Join(args, " "))
	case verb == "leave" && len(args) == 0:
		reply, err = d.station.Leave(ctx, user)
	case verb == "where" && len(args) == 0:
		reply, err = d.station.Whereabouts(ctx, user)
	case verb == "start" && len(args) >= 2:
		reply, err = d.start(ctx, user, args)
	default:
		observability.RecordCommand("unknown", "malformed")
		return msgMalformed
	}

	observability.RecordCommand(verb, service.Kind(err))
	if err != nil {
		return d.failure(verb, user, err)
	}
	return reply
}

func (d *Dispatcher) start(ctx context.Context, user string, args []string) (string, error) {
	minutes, err := parseMinutes(args[len(args)-1])
	if err != nil {
		return "", err
	}
	category, destination := splitCategory(args[:len(args)-1])
	if destination == "" {
		return "", rejection(msgNotFound)
	}
	return d.station.Start(ctx, user, destination, category, minutes)
}

func (d *Dispatcher) failure(verb, user string, err error) string {
	kind := service.Kind(err)
	if kind == "error" {
		d.log.Error("Command failed", "verb", verb, "user", user, "error", err)
		return msgFailure
	}
	d.log.Debug("Command rejected", "verb", verb, "user", user, "reason", kind)
	return err.Error()
}

// rejection is malformed user input caught before it reaches the station.
type rejection string

func (r rejection) Error() string { return string(r) }

func (r rejection) Unwrap() error { return service.ErrInvalidInput }

// parseMinutes reads the departure time, the last word of a start command.
func parseMinutes(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, rejection(msgBadTime)
	}
	if n <= 0 {
		return 0, rejection(msgLowTime)
	}
	return n, nil
}

// splitCategory pulls an optional "#category" word out of the destination.
func splitCategory(words []string) (category, destination string) {
	rest := make([]string, 0, len(words))
	for _, w := range words {
		if category == "" && len(w) > 1 && strings.HasPrefix(w, "#") {
			category = strings.TrimPrefix(w, "#")
			continue
		}
		rest = append(rest, w)
	}
	return category, strings.Join(rest, " ")
}
