// Package node wires Store, VersionSource, ReplicationClient,
// LeaderWriter/FollowerApply, and the HTTP surface into one running
// process per the startup configuration, then serves until the
// process receives a termination signal.
package node

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kvlab/leaderfollower/internal/config"
	"github.com/kvlab/leaderfollower/internal/follower"
	"github.com/kvlab/leaderfollower/internal/httpapi"
	"github.com/kvlab/leaderfollower/internal/leader"
	"github.com/kvlab/leaderfollower/internal/replication"
	"github.com/kvlab/leaderfollower/internal/store"
	"github.com/kvlab/leaderfollower/internal/types"
	"github.com/kvlab/leaderfollower/internal/version"
)

// Run builds the process described by cfg and serves until ctx is
// cancelled (by the caller, typically via signal.NotifyContext).
func Run(ctx context.Context, cfg *config.Startup) error {
	log := slog.Default().With("node_id", cfg.NodeID, "role", cfg.Role.String())

	policy := store.Monotone
	if !cfg.UseVersioning {
		policy = store.Naive
		log.Warn("USE_VERSIONING is false: running the naive non-monotone policy, which is never safe for production")
	}
	st := store.New(policy)
	runtime := config.NewRuntime(cfg)

	var writer *leader.Writer
	var applier *follower.Applier

	switch cfg.Role {
	case types.RoleLeader:
		client := replication.New(runtime)
		writer = leader.New(leader.Config{
			Store:           st,
			Versions:        versionSourceFor(cfg),
			Sender:          client,
			Quorum:          runtime,
			Followers:       cfg.Followers,
			FollowerTimeout: time.Duration(cfg.FollowerTimeoutMs) * time.Millisecond,
			Ctx:             ctx,
			Logger:          log,
		})
	case types.RoleFollower:
		applier = follower.New(st, log)
	}

	api := httpapi.New(cfg.Role, st, writer, applier, runtime, log)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: api.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// versionSourceFor picks the VersionSource policy to match
// USE_VERSIONING: the monotone Store is paired with the counter
// VersionSource, and the naive Store is paired with the deliberately
// non-monotone-safe timestamp source so the reordering hazard naive
// replacement creates is actually observable end to end, rather than
// masked by versions that happen to arrive in order anyway.
func versionSourceFor(cfg *config.Startup) leader.VersionSource {
	if !cfg.UseVersioning {
		return version.NewTimestamp()
	}
	return version.NewCounter()
}

// WithSignalContext wraps ctx with SIGINT/SIGTERM cancellation so the
// process can drain in-flight requests and shut down cleanly.
func WithSignalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}
