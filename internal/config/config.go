// Package config owns both halves of node configuration: the startup
// parameters parsed once from flags/environment via viper, and the
// runtime-mutable knobs (write quorum, delay bounds) that the HTTP
// surface can change for the life of the process without a restart.
package config

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kvlab/leaderfollower/internal/kverrors"
	"github.com/kvlab/leaderfollower/internal/types"
)

// Defaults mirror the env vars named in the external interface: NODE_ROLE,
// WRITE_QUORUM, FOLLOWER_TIMEOUT_MS, MIN_DELAY_MS, MAX_DELAY_MS,
// FOLLOWERS, USE_VERSIONING.
const (
	defaultRole              = "Leader"
	defaultWriteQuorum       = 1
	defaultFollowerTimeoutMs = 2000
	defaultMinDelayMs        = 0
	defaultMaxDelayMs        = 1000
	defaultUseVersioning     = true
	defaultPort              = 8080
)

// Startup holds the parameters fixed for the process lifetime: role,
// peer addresses, the versioning policy, and the port to listen on.
// WriteQuorum/MinDelayMs/MaxDelayMs are read here only as the initial
// values for Runtime — after startup they live exclusively in Runtime.
type Startup struct {
	NodeID            string
	Role              types.Role
	Port              int
	Followers         []types.Follower
	FollowerTimeoutMs int64
	UseVersioning     bool

	InitialWriteQuorum int
	InitialMinDelayMs  int64
	InitialMaxDelayMs  int64
}

// RegisterFlags adds the persistent flags viper binds against, named
// so that SetEnvKeyReplacer turns "follower-timeout-ms" into the
// FOLLOWER_TIMEOUT_MS environment variable.
func RegisterFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.String("node-id", "node1", "identifier for this node, used in log lines and replication responses")
	flags.String("node-role", defaultRole, "Leader or Follower")
	flags.Int("port", defaultPort, "HTTP listen port")
	flags.Int("write-quorum", defaultWriteQuorum, "number of follower acks required before a write reports success")
	flags.Int64("follower-timeout-ms", defaultFollowerTimeoutMs, "per-follower send timeout in milliseconds")
	flags.Int64("min-delay-ms", defaultMinDelayMs, "lower bound of injected replication delay in milliseconds")
	flags.Int64("max-delay-ms", defaultMaxDelayMs, "upper bound of injected replication delay in milliseconds")
	flags.String("followers", "", "semicolon-separated follower base addresses, e.g. http://localhost:8081;http://localhost:8082")
	flags.Bool("use-versioning", defaultUseVersioning, "false selects the non-monotone last-write-wins-by-arrival policy")
}

// Load merges an optional .env file, the environment, and bound flags
// into a validated Startup: parse everything first, then validate in
// one place before the caller ever wires a component.
func Load(cmd *cobra.Command) (*Startup, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.PersistentFlags()); err != nil {
		return nil, fmt.Errorf("%w: %s", kverrors.ErrInvalidConfiguration, err)
	}

	role, ok := types.ParseRole(v.GetString("node-role"))
	if !ok {
		return nil, fmt.Errorf("%w: NODE_ROLE must be Leader or Follower, got %q", kverrors.ErrInvalidConfiguration, v.GetString("node-role"))
	}

	followers, err := parseFollowers(v.GetString("followers"))
	if err != nil {
		return nil, err
	}

	quorum := v.GetInt("write-quorum")
	if quorum < 0 || quorum > len(followers) {
		return nil, fmt.Errorf("%w: WRITE_QUORUM=%d out of range [0, %d]", kverrors.ErrInvalidConfiguration, quorum, len(followers))
	}

	minDelay := v.GetInt64("min-delay-ms")
	maxDelay := v.GetInt64("max-delay-ms")
	if minDelay < 0 || maxDelay < 0 {
		return nil, fmt.Errorf("%w: MIN_DELAY_MS and MAX_DELAY_MS must be non-negative", kverrors.ErrInvalidConfiguration)
	}

	return &Startup{
		NodeID:             v.GetString("node-id"),
		Role:               role,
		Port:               v.GetInt("port"),
		Followers:          followers,
		FollowerTimeoutMs:  v.GetInt64("follower-timeout-ms"),
		UseVersioning:      v.GetBool("use-versioning"),
		InitialWriteQuorum: quorum,
		InitialMinDelayMs:  minDelay,
		InitialMaxDelayMs:  maxDelay,
	}, nil
}

func parseFollowers(raw string) ([]types.Follower, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ";")
	followers := make([]types.Follower, 0, len(parts))
	for i, p := range parts {
		addr := strings.TrimSpace(p)
		if addr == "" {
			continue
		}
		followers = append(followers, types.Follower{
			ID:   fmt.Sprintf("follower-%d", i+1),
			Addr: addr,
		})
	}
	return followers, nil
}

// Runtime holds the knobs POST /config can change without a restart:
// WriteQuorum, MinDelayMs, MaxDelayMs. Per the design notes these are
// independent atomic scalars, never snapshotted together for a write —
// Snapshot exists only for reporting the effective config back to a
// caller, not for internal coordination.
type Runtime struct {
	writeQuorum atomic.Int64
	minDelayMs  atomic.Int64
	maxDelayMs  atomic.Int64

	maxFollowers int
}

// NewRuntime seeds the runtime knobs from a validated Startup.
func NewRuntime(s *Startup) *Runtime {
	r := &Runtime{maxFollowers: len(s.Followers)}
	r.writeQuorum.Store(int64(s.InitialWriteQuorum))
	r.minDelayMs.Store(s.InitialMinDelayMs)
	r.maxDelayMs.Store(s.InitialMaxDelayMs)
	return r
}

// WriteQuorum implements leader.QuorumSource.
func (r *Runtime) WriteQuorum() int {
	return int(r.writeQuorum.Load())
}

// MinDelayMs implements replication.DelayBounds.
func (r *Runtime) MinDelayMs() int64 {
	return r.minDelayMs.Load()
}

// MaxDelayMs implements replication.DelayBounds.
func (r *Runtime) MaxDelayMs() int64 {
	return r.maxDelayMs.Load()
}

// Snapshot returns the current effective config for a status response.
func (r *Runtime) Snapshot() types.EffectiveConfig {
	return types.EffectiveConfig{
		WriteQuorum: r.WriteQuorum(),
		MinDelayMs:  r.MinDelayMs(),
		MaxDelayMs:  r.MaxDelayMs(),
	}
}

// Update validates and applies a partial reconfiguration request. Only
// the fields present (non-nil) are changed; absent fields retain their
// current atomic value. Validates 1 <= writeQuorum <= |F| — a stricter
// floor than the 0 <= Q <= |F| Write itself accepts, since /config
// reconfiguring the quorum down to zero would silently turn off
// replication acknowledgement for every future write — and
// minDelayMs, maxDelayMs >= 0 before applying any field.
func (r *Runtime) Update(writeQuorum *int, minDelayMs, maxDelayMs *int64) error {
	if writeQuorum != nil {
		if *writeQuorum < 1 || *writeQuorum > r.maxFollowers {
			return fmt.Errorf("%w: writeQuorum=%d out of range [1, %d]", kverrors.ErrInvalidConfiguration, *writeQuorum, r.maxFollowers)
		}
	}
	if minDelayMs != nil && *minDelayMs < 0 {
		return fmt.Errorf("%w: minDelayMs must be non-negative", kverrors.ErrInvalidConfiguration)
	}
	if maxDelayMs != nil && *maxDelayMs < 0 {
		return fmt.Errorf("%w: maxDelayMs must be non-negative", kverrors.ErrInvalidConfiguration)
	}

	if writeQuorum != nil {
		r.writeQuorum.Store(int64(*writeQuorum))
	}
	if minDelayMs != nil {
		r.minDelayMs.Store(*minDelayMs)
	}
	if maxDelayMs != nil {
		r.maxDelayMs.Store(*maxDelayMs)
	}
	return nil
}
