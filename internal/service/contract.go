//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package service

import (
	"context"

	"github.com/Shivanand-hulikatti/trainbot/internal/model"
)

// Notifier delivers a message to the channel the station announces in.
// Delivery is fire-and-forget: the station logs a returned error and moves on.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Journal keeps an append-only record of closed trains.
type Journal interface {
	Record(ctx context.Context, rec model.HistoryRecord) error
}
