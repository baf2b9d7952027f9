// Package httpapi exposes the role-gated chi router described in the
// external interfaces: health and reads on every node, leader-only
// write/reconfiguration endpoints, follower-only replication intake.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kvlab/leaderfollower/internal/config"
	"github.com/kvlab/leaderfollower/internal/follower"
	"github.com/kvlab/leaderfollower/internal/leader"
	"github.com/kvlab/leaderfollower/internal/store"
	"github.com/kvlab/leaderfollower/internal/types"
)

// Server serves the HTTP surface for one node. Exactly one of writer
// or applier is non-nil, matching the node's fixed-at-startup role.
type Server struct {
	role    types.Role
	store   *store.Store
	writer  *leader.Writer
	applier *follower.Applier
	runtime *config.Runtime
	log     *slog.Logger
}

// New creates a Server. Pass writer for a Leader node, applier for a
// Follower node; the other must be nil.
func New(role types.Role, s *store.Store, writer *leader.Writer, applier *follower.Applier, runtime *config.Runtime, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		role:    role,
		store:   s,
		writer:  writer,
		applier: applier,
		runtime: runtime,
		log:     log.With("component", "httpapi"),
	}
}

// Handler builds the chi router. Only the routes valid for this node's
// role are ever registered, so a write sent to a follower 404s because
// the route does not exist, not because a guard rejected it.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	r.Get("/health", s.handleHealth)
	r.Get("/get/{key}", s.handleGet)
	r.Get("/dump", s.handleDump)
	r.Get("/dump-versions", s.handleDumpVersions)

	switch s.role {
	case types.RoleLeader:
		r.Post("/set", s.handleSet)
		r.Post("/config", s.handleConfig)
	case types.RoleFollower:
		r.Post("/replicate", s.handleReplicate)
	}

	r.Get("/ui", handleUI())

	return r
}
