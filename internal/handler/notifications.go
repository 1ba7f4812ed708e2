package handler

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/prefabmart/api/internal/database"
	"github.com/prefabmart/api/internal/middleware"
)

// NotificationStore defines the database methods needed by notification
// handlers. Satisfied by *database.Queries; narrow interface for testability.
type NotificationStore interface {
	ListNotificationsByUser(ctx context.Context, arg database.ListNotificationsByUserParams) ([]database.Notification, error)
	MarkNotificationRead(ctx context.Context, arg database.MarkNotificationReadParams) (database.Notification, error)
	MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) (int64, error)
	CountUnreadNotifications(ctx context.Context, userID uuid.UUID) (int64, error)
}

// NotificationHandler handles a user's own notification feed.
type NotificationHandler struct {
	store NotificationStore
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(store NotificationStore) *NotificationHandler {
	return &NotificationHandler{store: store}
}

// RegisterRoutes registers notification endpoints on the given Chi router.
// Expected to run behind the Authenticate middleware; every endpoint is
// implicitly scoped to the caller.
func (h *NotificationHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/unread-count", h.UnreadCount)
	r.Patch("/{id}/read", h.MarkRead)
	r.Post("/read-all", h.MarkAllRead)
}

type notificationListResponse struct {
	Notifications []database.Notification `json:"notifications"`
	UnreadCount   int64                   `json:"unread_count"`
	Limit         int                     `json:"limit"`
	Offset        int                     `json:"offset"`
}

// List handles GET /notifications.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	limit, offset := parsePagination(r)

	notifications, err := h.store.ListNotificationsByUser(r.Context(), database.ListNotificationsByUserParams{
		UserID: claims.UserID,
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		log.Printf("ERROR: list notifications: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if notifications == nil {
		notifications = []database.Notification{}
	}

	unread, err := h.store.CountUnreadNotifications(r.Context(), claims.UserID)
	if err != nil {
		log.Printf("ERROR: count unread notifications: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, notificationListResponse{
		Notifications: notifications,
		UnreadCount:   unread,
		Limit:         limit,
		Offset:        offset,
	})
}

// UnreadCount handles GET /notifications/unread-count, for the badge poll.
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	unread, err := h.store.CountUnreadNotifications(r.Context(), claims.UserID)
	if err != nil {
		log.Printf("ERROR: count unread notifications: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"unread_count": unread})
}

// MarkRead handles PATCH /notifications/{id}/read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid notification ID"})
		return
	}

	notification, err := h.store.MarkNotificationRead(r.Context(), database.MarkNotificationReadParams{
		ID:     id,
		UserID: claims.UserID,
	})
	if err != nil {
		// A missing row and another user's row look the same on purpose.
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "notification not found"})
			return
		}
		log.Printf("ERROR: mark notification read: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, notification)
}

// MarkAllRead handles POST /notifications/read-all.
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	updated, err := h.store.MarkAllNotificationsRead(r.Context(), claims.UserID)
	if err != nil {
		log.Printf("ERROR: mark all notifications read: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"updated": updated})
}
