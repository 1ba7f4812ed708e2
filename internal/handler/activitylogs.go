package handler

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/prefabmart/api/internal/database"
)

// ActivityLogStore defines the database methods needed by the audit trail
// handler. Satisfied by *database.Queries.
type ActivityLogStore interface {
	ListActivityLogs(ctx context.Context, arg database.ListActivityLogsParams) ([]database.ActivityLog, error)
}

// ActivityLogHandler serves the audit trail (staff only).
type ActivityLogHandler struct {
	store ActivityLogStore
}

// NewActivityLogHandler creates a new ActivityLogHandler.
func NewActivityLogHandler(store ActivityLogStore) *ActivityLogHandler {
	return &ActivityLogHandler{store: store}
}

// RegisterRoutes registers the audit trail endpoint. Expected to run
// behind Authenticate + RequireRole(admin, personnel).
func (h *ActivityLogHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
}

type activityLogListResponse struct {
	Logs   []database.ActivityLog `json:"logs"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
}

// List handles GET /activity-logs.
func (h *ActivityLogHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	params := database.ListActivityLogsParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	}
	if c := r.URL.Query().Get("category"); c != "" {
		params.Category = pgtype.Text{String: c, Valid: true}
	}

	logs, err := h.store.ListActivityLogs(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list activity logs: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if logs == nil {
		logs = []database.ActivityLog{}
	}

	writeJSON(w, http.StatusOK, activityLogListResponse{Logs: logs, Limit: limit, Offset: offset})
}
