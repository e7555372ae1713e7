package ports

import (
	"context"

	"github.com/bft-labs/queueship/internal/domain"
)

// StatusRepository persists the last reported queue status for observers.
type StatusRepository interface {
	// Load retrieves the last saved snapshot.
	// Returns an empty snapshot and nil error if none exists.
	Load(ctx context.Context) (domain.StatusSnapshot, error)

	// Save persists the snapshot atomically.
	Save(ctx context.Context, snapshot domain.StatusSnapshot) error
}
