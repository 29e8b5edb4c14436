package bus

import (
	"context"

	"github.com/campusfront/campusfront/internal/realtime"
)

// Bus delivers push messages from the platform into the running shell.
type Bus interface {
	Publish(ctx context.Context, msg realtime.Message) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.Message)) error
	Close() error
}
