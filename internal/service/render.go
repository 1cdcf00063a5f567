package service

import (
	"fmt"
	"strings"

	"github.com/Shivanand-hulikatti/trainbot/internal/model"
	"github.com/samber/lo"
)

// JoinWithAnd renders items as "a", "a and b" or "a, b, and c".
func JoinWithAnd(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	}
	return strings.Join(items[:len(items)-1], ", ") + ", and " + items[len(items)-1]
}

func minutes(n int) string {
	if n == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", n)
}

func mins(n int) string {
	if n == 1 {
		return "1 min"
	}
	return fmt.Sprintf("%d mins", n)
}

func describe(v model.DepartureView) string {
	return fmt.Sprintf("%s in %s (with %s on it)", v.Destination, mins(v.MinutesRemaining), JoinWithAnd(v.Passengers))
}

// RenderListing renders the active trains the way the chat command reports them.
func RenderListing(views []model.DepartureView) string {
	switch len(views) {
	case 0:
		return "There are currently no active trains"
	case 1:
		return "There is currently a train to " + describe(views[0])
	}
	return "There are trains to: " + JoinWithAnd(lo.Map(views, func(v model.DepartureView, _ int) string {
		return describe(v)
	}))
}
