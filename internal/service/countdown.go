package service

import (
	"fmt"
	"log/slog"
	"time"
)

// reminderAt is the countdown value, in seconds, at which passengers are
// told their train leaves in a minute.
const reminderAt = 60

// countdown runs one train's timer. It checks in with the station on every
// tick and exits as soon as its train is gone, emptied or replaced.
func (s *Station) countdown(key, id, destination string, seconds int) {
	defer s.wg.Done()
	log := s.log.With("destination", destination, "departure_id", id)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for remaining := seconds; remaining > 0; {
		select {
		case <-s.ctx.Done():
			log.Debug("Countdown stopped")
			return
		case <-ticker.C:
		}

		remaining--
		if !s.checkIn(key, id, remaining) {
			log.Debug("Train abandoned, stopping countdown")
			return
		}

		switch remaining {
		case reminderAt:
			s.notify(log, fmt.Sprintf("Reminder, the next train to %s leaves in one minute", destination))
		case 0:
			rec, ok := s.retire(key, id)
			if !ok {
				log.Debug("Train retired before departure")
				return
			}
			s.notify(log, fmt.Sprintf("The train to %s has left the station with %s on it!",
				destination, JoinWithAnd(rec.Passengers)))
			s.archive(s.ctx, rec)
		}
	}
}

func (s *Station) notify(log *slog.Logger, text string) {
	if err := s.notifier.Notify(s.ctx, text); err != nil {
		log.Warn("Failed to deliver notification", "error", err)
	}
}
