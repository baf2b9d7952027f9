package config

import (
	"testing"

	"github.com/kvlab/leaderfollower/internal/types"
)

func TestParseFollowers(t *testing.T) {
	followers, err := parseFollowers("http://localhost:8081;http://localhost:8082")
	if err != nil {
		t.Fatalf("parseFollowers() error = %v", err)
	}
	if len(followers) != 2 {
		t.Fatalf("parseFollowers() returned %d followers, want 2", len(followers))
	}
	if followers[0].Addr != "http://localhost:8081" || followers[1].Addr != "http://localhost:8082" {
		t.Fatalf("parseFollowers() = %+v, wrong addrs", followers)
	}
}

func TestParseFollowersEmpty(t *testing.T) {
	followers, err := parseFollowers("")
	if err != nil {
		t.Fatalf("parseFollowers() error = %v", err)
	}
	if len(followers) != 0 {
		t.Fatalf("parseFollowers(\"\") = %v, want empty", followers)
	}
}

func TestRuntimeSnapshotReflectsStartupDefaults(t *testing.T) {
	s := &Startup{
		Followers:          []types.Follower{{ID: "f1"}, {ID: "f2"}},
		InitialWriteQuorum: 1,
		InitialMinDelayMs:  0,
		InitialMaxDelayMs:  1000,
	}
	r := NewRuntime(s)
	got := r.Snapshot()
	want := types.EffectiveConfig{WriteQuorum: 1, MinDelayMs: 0, MaxDelayMs: 1000}
	if got != want {
		t.Fatalf("Snapshot() = %+v, want %+v", got, want)
	}
}

func TestRuntimeUpdateValidatesQuorumRange(t *testing.T) {
	s := &Startup{Followers: []types.Follower{{ID: "f1"}}, InitialWriteQuorum: 1}
	r := NewRuntime(s)

	tooHigh := 5
	if err := r.Update(&tooHigh, nil, nil); err == nil {
		t.Fatalf("Update() with quorum > |F| should fail")
	}
	if r.WriteQuorum() != 1 {
		t.Fatalf("WriteQuorum() = %d after rejected update, want unchanged 1", r.WriteQuorum())
	}

	zero := 0
	if err := r.Update(&zero, nil, nil); err == nil {
		t.Fatalf("Update() with quorum=0 should fail: /config requires 1 <= writeQuorum <= |F|")
	}
	if r.WriteQuorum() != 1 {
		t.Fatalf("WriteQuorum() = %d after rejected update, want unchanged 1", r.WriteQuorum())
	}

	good := 1
	if err := r.Update(&good, nil, nil); err != nil {
		t.Fatalf("Update() with valid quorum failed: %v", err)
	}
	if r.WriteQuorum() != 1 {
		t.Fatalf("WriteQuorum() = %d after update, want 1", r.WriteQuorum())
	}
}

func TestRuntimeUpdateRejectsNegativeDelay(t *testing.T) {
	s := &Startup{Followers: nil, InitialWriteQuorum: 0}
	r := NewRuntime(s)
	neg := int64(-1)
	if err := r.Update(nil, &neg, nil); err == nil {
		t.Fatalf("Update() with negative minDelayMs should fail")
	}
}

func TestRuntimeUpdatePartialLeavesOtherFieldsUnchanged(t *testing.T) {
	s := &Startup{Followers: []types.Follower{{ID: "f1"}}, InitialWriteQuorum: 1, InitialMinDelayMs: 10, InitialMaxDelayMs: 200}
	r := NewRuntime(s)

	newMax := int64(500)
	if err := r.Update(nil, nil, &newMax); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	got := r.Snapshot()
	if got.WriteQuorum != 1 || got.MinDelayMs != 10 || got.MaxDelayMs != 500 {
		t.Fatalf("Snapshot() = %+v, want quorum=1 min=10 max=500", got)
	}
}
