package leader

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kvlab/leaderfollower/internal/store"
	"github.com/kvlab/leaderfollower/internal/types"
	"github.com/kvlab/leaderfollower/internal/version"
)

type fixedQuorum struct{ n int }

func (f fixedQuorum) WriteQuorum() int { return f.n }

type scriptedSender struct {
	mu        sync.Mutex
	outcome   map[string]types.ResponseKind
	delay     map[string]time.Duration
	calls     []string
	completed []string
}

func (s *scriptedSender) Send(ctx context.Context, follower types.Follower, cmd types.ReplicationCommand) types.ReplicationResponse {
	s.mu.Lock()
	s.calls = append(s.calls, follower.ID)
	s.mu.Unlock()

	if d, ok := s.delay[follower.ID]; ok {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return types.ReplicationResponse{Follower: follower.ID, Kind: types.ResponseTimeout}
		}
	}
	kind := s.outcome[follower.ID]

	s.mu.Lock()
	s.completed = append(s.completed, follower.ID)
	s.mu.Unlock()
	return types.ReplicationResponse{Follower: follower.ID, Kind: kind}
}

func (s *scriptedSender) hasCompleted(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.completed {
		if c == id {
			return true
		}
	}
	return false
}

func TestWriteAppliesLocallyBeforeReturning(t *testing.T) {
	st := store.New(store.Monotone)
	w := New(Config{
		Store:     st,
		Versions:  version.NewCounter(),
		Sender:    &scriptedSender{outcome: map[string]types.ResponseKind{}},
		Quorum:    fixedQuorum{0},
		Followers: nil,
	})

	_, err := w.Write(context.Background(), "alpha", "one")
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	v, ok := st.Get("alpha")
	if !ok || v != "one" {
		t.Fatalf("local store not updated before Write returned: (%q, %v)", v, ok)
	}
}

func TestWriteZeroQuorumSucceedsWithZeroAcks(t *testing.T) {
	st := store.New(store.Monotone)
	w := New(Config{
		Store:     st,
		Versions:  version.NewCounter(),
		Sender:    &scriptedSender{outcome: map[string]types.ResponseKind{}},
		Quorum:    fixedQuorum{0},
		Followers: []types.Follower{{ID: "f1"}, {ID: "f2"}},
	})

	res, err := w.Write(context.Background(), "k", "v")
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if !res.IsSuccess || res.SuccessfulFollowers != 0 {
		t.Fatalf("Write() = %+v, want success with zero acks", res)
	}
}

func TestWriteQuorumExceedsFollowersRejectedSynchronously(t *testing.T) {
	st := store.New(store.Monotone)
	sender := &scriptedSender{outcome: map[string]types.ResponseKind{}}
	w := New(Config{
		Store:     st,
		Versions:  version.NewCounter(),
		Sender:    sender,
		Quorum:    fixedQuorum{5},
		Followers: []types.Follower{{ID: "f1"}},
	})

	_, err := w.Write(context.Background(), "k", "v")
	if err == nil {
		t.Fatalf("Write() with quorum > |F| should fail")
	}
	if len(sender.calls) != 0 {
		t.Fatalf("Write() fanned out despite synchronous rejection: calls=%v", sender.calls)
	}
}

func TestWriteReturnsAsSoonAsQuorumReached(t *testing.T) {
	st := store.New(store.Monotone)
	sender := &scriptedSender{
		outcome: map[string]types.ResponseKind{"f1": types.ResponseSuccess, "f2": types.ResponseSuccess, "slow": types.ResponseSuccess},
		delay:   map[string]time.Duration{"slow": 300 * time.Millisecond},
	}
	w := New(Config{
		Store:     st,
		Versions:  version.NewCounter(),
		Sender:    sender,
		Quorum:    fixedQuorum{2},
		Followers: []types.Follower{{ID: "f1"}, {ID: "f2"}, {ID: "slow"}},
	})

	start := time.Now()
	res, err := w.Write(context.Background(), "k", "v")
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if !res.IsSuccess || res.SuccessfulFollowers < 2 {
		t.Fatalf("Write() = %+v, want success with >=2 acks", res)
	}
	if elapsed > 250*time.Millisecond {
		t.Fatalf("Write() took %v, should have returned before the slow follower completed", elapsed)
	}
}

func TestWritePartialFailureReportsShortfall(t *testing.T) {
	st := store.New(store.Monotone)
	sender := &scriptedSender{
		outcome: map[string]types.ResponseKind{"f1": types.ResponseFailure, "f2": types.ResponseFailure, "f3": types.ResponseSuccess},
	}
	w := New(Config{
		Store:     st,
		Versions:  version.NewCounter(),
		Sender:    sender,
		Quorum:    fixedQuorum{3},
		Followers: []types.Follower{{ID: "f1"}, {ID: "f2"}, {ID: "f3"}},
	})

	res, err := w.Write(context.Background(), "k", "v")
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if res.IsSuccess {
		t.Fatalf("Write() = %+v, want failure when only 1/3 acked against quorum 3", res)
	}
	if res.SuccessfulFollowers != 1 {
		t.Fatalf("SuccessfulFollowers = %d, want 1", res.SuccessfulFollowers)
	}
}

// TestWriteBackgroundSendUnaffectedByCallerContextCancellation pins down
// the case a per-request ctx handles wrong: net/http cancels a request's
// context the instant its handler returns, which happens as soon as
// quorum is reached. A follower still in flight at that point must keep
// sending under the Writer's own background context, not get cancelled
// along with the caller's ctx.
func TestWriteBackgroundSendUnaffectedByCallerContextCancellation(t *testing.T) {
	st := store.New(store.Monotone)
	sender := &scriptedSender{
		outcome: map[string]types.ResponseKind{"fast": types.ResponseSuccess, "slow": types.ResponseSuccess},
		delay:   map[string]time.Duration{"slow": 150 * time.Millisecond},
	}
	w := New(Config{
		Store:     st,
		Versions:  version.NewCounter(),
		Sender:    sender,
		Quorum:    fixedQuorum{1},
		Followers: []types.Follower{{ID: "fast"}, {ID: "slow"}},
	})

	callerCtx, cancel := context.WithCancel(context.Background())
	res, err := w.Write(callerCtx, "k", "v")
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if !res.IsSuccess {
		t.Fatalf("Write() = %+v, want success once the fast follower acks", res)
	}

	// Simulate net/http's server.go calling w.cancelCtx() the instant
	// the handler that owned callerCtx returns.
	cancel()

	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) && !sender.hasCompleted("slow") {
		time.Sleep(10 * time.Millisecond)
	}
	if !sender.hasCompleted("slow") {
		t.Fatalf("background send to %q never completed after the caller's ctx was cancelled", "slow")
	}
}

func TestWriteRejectsEmptyKey(t *testing.T) {
	st := store.New(store.Monotone)
	w := New(Config{
		Store:    st,
		Versions: version.NewCounter(),
		Sender:   &scriptedSender{outcome: map[string]types.ResponseKind{}},
		Quorum:   fixedQuorum{0},
	})
	if _, err := w.Write(context.Background(), "", "v"); err == nil {
		t.Fatalf("Write() with empty key should fail")
	}
}
