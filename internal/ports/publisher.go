package ports

import (
	"context"

	"github.com/cpro-iot/scaleship/pkg/frame"
)

// Publisher forwards a decoded reading to a message broker.
// A returned error is logged by the caller and never stops polling.
type Publisher interface {
	Publish(ctx context.Context, topic string, rec frame.Record) error
}
