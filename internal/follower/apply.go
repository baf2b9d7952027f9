// Package follower implements FollowerApply: the receiving side of
// replication, which applies an inbound ReplicationCommand to the
// local Store under the monotone rule and never propagates further.
package follower

import (
	"context"
	"log/slog"

	"github.com/kvlab/leaderfollower/internal/store"
	"github.com/kvlab/leaderfollower/internal/types"
)

// Applier is the FollowerApply component.
type Applier struct {
	store *store.Store
	log   *slog.Logger
}

// New creates an Applier backed by the given Store.
func New(s *store.Store, log *slog.Logger) *Applier {
	if log == nil {
		log = slog.Default()
	}
	return &Applier{store: s, log: log.With("component", "follower")}
}

// Apply invokes Store.Set with the monotone rule and acknowledges only
// after the local commit. Set itself never fails, so the only error
// Apply returns is ctx.Err() when ctx is already cancelled on entry, in
// which case nothing is applied.
func (a *Applier) Apply(ctx context.Context, cmd types.ReplicationCommand) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.store.Set(cmd.Key, cmd.Value, uint64(cmd.Version))
	a.log.Debug("applied replication command", "key", cmd.Key, "version", cmd.Version)
	return nil
}
