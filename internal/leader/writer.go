// Package leader implements LeaderWriter: local apply followed by a
// quorum-gated parallel fan-out to every follower — one goroutine per
// peer feeding a buffered result channel, a quorum threshold counted
// as results arrive, and completion as soon as that threshold is met
// rather than after every goroutine finishes.
package leader

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kvlab/leaderfollower/internal/kverrors"
	"github.com/kvlab/leaderfollower/internal/store"
	"github.com/kvlab/leaderfollower/internal/types"
)

// Sender is the ReplicationClient contract LeaderWriter fans out
// through; satisfied by *replication.Client.
type Sender interface {
	Send(ctx context.Context, follower types.Follower, cmd types.ReplicationCommand) types.ReplicationResponse
}

// VersionSource is the VersionSource contract; satisfied by
// *version.Counter and *version.Timestamp.
type VersionSource interface {
	Next() types.Version
}

// QuorumSource exposes the runtime-mutable write quorum; satisfied by
// *config.Runtime.
type QuorumSource interface {
	WriteQuorum() int
}

// Writer is the LeaderWriter: it owns the leader's local Store, issues
// versions, and fans a ReplicationCommand out to every follower. Its
// background sends run under bgCtx, a context tied to the process's
// own lifetime rather than to any one caller's request — per-request
// contexts are cancelled the instant the HTTP handler that created
// them returns, which would otherwise kill every still-in-flight send
// the moment quorum is reached and the response is written.
type Writer struct {
	store           *store.Store
	versions        VersionSource
	sender          Sender
	quorum          QuorumSource
	followers       []types.Follower
	followerTimeout time.Duration
	bgCtx           context.Context
	log             *slog.Logger
}

// Config configures a Writer. FollowerTimeout <= 0 means "no added
// per-follower timeout beyond bgCtx". Ctx should be the process's own
// lifetime context (e.g. the one node.Run was given), not a per-request
// context — it outlives any single Write call and is what backs sends
// that are still in flight once a caller stops waiting.
type Config struct {
	Store           *store.Store
	Versions        VersionSource
	Sender          Sender
	Quorum          QuorumSource
	Followers       []types.Follower
	FollowerTimeout time.Duration
	Ctx             context.Context
	Logger          *slog.Logger
}

// New creates a Writer.
func New(cfg Config) *Writer {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	bgCtx := cfg.Ctx
	if bgCtx == nil {
		bgCtx = context.Background()
	}
	return &Writer{
		store:           cfg.Store,
		versions:        cfg.Versions,
		sender:          cfg.Sender,
		quorum:          cfg.Quorum,
		followers:       cfg.Followers,
		followerTimeout: cfg.FollowerTimeout,
		bgCtx:           bgCtx,
		log:             log.With("component", "leader"),
	}
}

// peerResult is one completed Send, tagged with the follower it came
// from.
type peerResult struct {
	resp types.ReplicationResponse
}

// Write applies (key, value) locally under a freshly issued version,
// then fans the resulting ReplicationCommand out to every follower in
// parallel, returning as soon as successCount reaches the
// currently-configured write quorum. ctx only bounds how long Write
// itself waits for acks; it is never the context a Send runs under.
// In-flight sends that have not yet completed when quorum is reached
// are not cancelled: they run to completion in the background, under
// bgCtx, so followers still converge even after ctx (e.g. the request
// context of the caller that triggered this Write) is cancelled.
func (w *Writer) Write(ctx context.Context, key, value string) (types.WriteResult, error) {
	if key == "" {
		return types.WriteResult{}, kverrors.ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return types.WriteResult{WasCancelled: true}, kverrors.ErrCancelled
	}

	followers := w.followers
	quorum := w.quorum.WriteQuorum()
	if quorum < 0 || quorum > len(followers) {
		return types.WriteResult{}, fmt.Errorf("%w: write quorum %d out of range [0, %d]", kverrors.ErrInvalidConfiguration, quorum, len(followers))
	}

	ver := w.versions.Next()
	w.store.Set(key, value, uint64(ver))

	if quorum == 0 || len(followers) == 0 {
		return types.WriteResult{
			IsSuccess:           true,
			RequiredQuorum:      quorum,
			SuccessfulFollowers: 0,
			Version:             ver,
		}, nil
	}

	cmd := types.ReplicationCommand{Key: key, Value: value, Version: ver}
	results := make(chan peerResult, len(followers))

	for _, f := range followers {
		go func(follower types.Follower) {
			sendCtx := w.bgCtx
			var cancel context.CancelFunc
			if w.followerTimeout > 0 {
				sendCtx, cancel = context.WithTimeout(w.bgCtx, w.followerTimeout)
				defer cancel()
			}
			resp := w.sender.Send(sendCtx, follower, cmd)
			results <- peerResult{resp: resp}
		}(f)
	}

	successCount := 0
	responses := make([]types.ReplicationResponse, 0, len(followers))
	wasCancelled := false

collect:
	for i := 0; i < len(followers); i++ {
		if successCount >= quorum {
			break collect
		}
		select {
		case pr := <-results:
			responses = append(responses, pr.resp)
			if pr.resp.Kind == types.ResponseSuccess {
				successCount++
			} else {
				w.logOutcome(pr.resp)
			}
		case <-ctx.Done():
			wasCancelled = true
			break collect
		}
	}

	return types.WriteResult{
		IsSuccess:           successCount >= quorum,
		RequiredQuorum:      quorum,
		SuccessfulFollowers: successCount,
		Responses:           responses,
		WasCancelled:        wasCancelled,
		Version:             ver,
	}, nil
}

func (w *Writer) logOutcome(resp types.ReplicationResponse) {
	w.log.Warn("replication attempt did not succeed",
		"follower", resp.Follower,
		"outcome", resp.Kind.String(),
		"reason", resp.Reason,
	)
}
