package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

type CreateActivityLogParams struct {
	UserID   pgtype.UUID
	UserName string
	Action   string
	Details  string
	Category string
}

const createActivityLog = `INSERT INTO activity_logs (user_id, user_name, action, details, category)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, user_id, user_name, action, details, category, created_at`

func (q *Queries) CreateActivityLog(ctx context.Context, arg CreateActivityLogParams) (ActivityLog, error) {
	var al ActivityLog
	err := q.db.QueryRow(ctx, createActivityLog,
		arg.UserID, arg.UserName, arg.Action, arg.Details, arg.Category,
	).Scan(&al.ID, &al.UserID, &al.UserName, &al.Action, &al.Details, &al.Category, &al.CreatedAt)
	return al, err
}

type ListActivityLogsParams struct {
	Category pgtype.Text
	Limit    int32
	Offset   int32
}

const listActivityLogs = `SELECT id, user_id, user_name, action, details, category, created_at
FROM activity_logs
WHERE ($1::text IS NULL OR category = $1)
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

func (q *Queries) ListActivityLogs(ctx context.Context, arg ListActivityLogsParams) ([]ActivityLog, error) {
	rows, err := q.db.Query(ctx, listActivityLogs, arg.Category, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []ActivityLog
	for rows.Next() {
		var al ActivityLog
		if err := rows.Scan(&al.ID, &al.UserID, &al.UserName, &al.Action, &al.Details, &al.Category, &al.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, al)
	}
	return logs, rows.Err()
}
