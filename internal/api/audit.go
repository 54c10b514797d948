package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/shelfwise/inventory-core/internal/audit"
	"github.com/shelfwise/inventory-core/internal/infrastructure/logging"
)

// auditChanSize is the buffer size for the async audit log channel.
// Entries beyond this are dropped (best-effort) to avoid back-pressure on requests.
const auditChanSize = 256

// auditEntry is the request-side view of an audit record.
type auditEntry struct {
	Action     string
	EntityType string
	EntityID   string
	UserID     string
	Details    map[string]any
}

// auditRecorder buffers audit entries and writes them serially off the
// request path. Serial writes are kinder to SQLite's single-writer model.
type auditRecorder struct {
	repo   audit.Repository
	logger *logging.Logger
	ch     chan *audit.AuditLog
}

func newAuditRecorder(repo audit.Repository, logger *logging.Logger) *auditRecorder {
	return &auditRecorder{
		repo:   repo,
		logger: logger,
		ch:     make(chan *audit.AuditLog, auditChanSize),
	}
}

// record enqueues an audit entry for asynchronous write (best-effort).
// If the channel is full the entry is dropped and a warning is logged.
func (a *auditRecorder) record(entry auditEntry) {
	log := &audit.AuditLog{
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		UserID:     entry.UserID,
		Source:     "api",
		Details:    entry.Details,
	}

	select {
	case a.ch <- log:
	default:
		a.logger.Warn("audit log channel full, dropping entry",
			"action", entry.Action,
			"entity_type", entry.EntityType,
		)
	}
}

// run reads entries from the channel and writes them serially.
// It runs until the context is cancelled, then drains remaining entries.
func (a *auditRecorder) run(ctx context.Context) {
	for {
		select {
		case entry := <-a.ch:
			if err := a.repo.Create(context.Background(), entry); err != nil {
				a.logger.Error("audit log write failed",
					"action", entry.Action,
					"entity_type", entry.EntityType,
					"error", err,
				)
			}
		case <-ctx.Done():
			// Drain remaining entries before exiting
			for {
				select {
				case entry := <-a.ch:
					if err := a.repo.Create(context.Background(), entry); err != nil {
						a.logger.Error("audit log write failed during shutdown",
							"action", entry.Action,
							"error", err,
						)
					}
				default:
					return
				}
			}
		}
	}
}

// handleListAuditLogs returns paginated audit log entries with optional filters.
//
// Query parameters:
//   - action: filter by action type (login, logout, refresh, create, update, delete)
//   - entity_type: filter by entity type (session, user)
//   - entity_id: filter by specific entity ID
//   - limit: max results (default 50, max 200)
//   - offset: pagination offset
func (s *Server) handleListAuditLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := audit.Filter{
		Action:     q.Get("action"),
		EntityType: q.Get("entity_type"),
		EntityID:   q.Get("entity_id"),
	}

	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	result, err := s.recorder.repo.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list audit logs", "error", err)
		writeInternalError(w, "failed to list audit logs")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
