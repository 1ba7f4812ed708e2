package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type CreateNotificationParams struct {
	UserID  uuid.UUID
	OrderID pgtype.UUID
	Type    string
	Title   string
	Message string
}

const createNotification = `INSERT INTO notifications (user_id, order_id, type, title, message)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, user_id, order_id, type, title, message, is_read, created_at`

func (q *Queries) CreateNotification(ctx context.Context, arg CreateNotificationParams) (Notification, error) {
	var n Notification
	err := q.db.QueryRow(ctx, createNotification, arg.UserID, arg.OrderID, arg.Type, arg.Title, arg.Message).
		Scan(&n.ID, &n.UserID, &n.OrderID, &n.Type, &n.Title, &n.Message, &n.IsRead, &n.CreatedAt)
	return n, err
}

type ListNotificationsByUserParams struct {
	UserID uuid.UUID
	Limit  int32
	Offset int32
}

const listNotificationsByUser = `SELECT id, user_id, order_id, type, title, message, is_read, created_at
FROM notifications WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

func (q *Queries) ListNotificationsByUser(ctx context.Context, arg ListNotificationsByUserParams) ([]Notification, error) {
	rows, err := q.db.Query(ctx, listNotificationsByUser, arg.UserID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.OrderID, &n.Type, &n.Title, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

type MarkNotificationReadParams struct {
	ID     uuid.UUID
	UserID uuid.UUID
}

const markNotificationRead = `UPDATE notifications
SET is_read = TRUE
WHERE id = $1 AND user_id = $2
RETURNING id, user_id, order_id, type, title, message, is_read, created_at`

// MarkNotificationRead scopes the update by user_id so one user cannot
// mark another user's notification.
func (q *Queries) MarkNotificationRead(ctx context.Context, arg MarkNotificationReadParams) (Notification, error) {
	var n Notification
	err := q.db.QueryRow(ctx, markNotificationRead, arg.ID, arg.UserID).
		Scan(&n.ID, &n.UserID, &n.OrderID, &n.Type, &n.Title, &n.Message, &n.IsRead, &n.CreatedAt)
	return n, err
}

const markAllNotificationsRead = `UPDATE notifications
SET is_read = TRUE
WHERE user_id = $1 AND is_read = FALSE`

func (q *Queries) MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, markAllNotificationsRead, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const countUnreadNotifications = `SELECT count(*) FROM notifications
WHERE user_id = $1 AND is_read = FALSE`

func (q *Queries) CountUnreadNotifications(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countUnreadNotifications, userID).Scan(&count)
	return count, err
}
