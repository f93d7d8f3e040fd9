package repository

import (
	"context"
	"errors"

	"vagasbot/internal/database"

	"github.com/google/uuid"
)

var ErrNotificationNotFound = errors.New("notification not found")

// Notification records a digest message delivered to the discussion
// group so a later run can retract it.
type Notification struct {
	ID         uuid.UUID
	TelegramID int
	Body       string
}

type NotificationRepository interface {
	Create(ctx context.Context, n *Notification) error
	List(ctx context.Context) ([]Notification, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type PostgresNotificationRepository struct {
	db database.DB
}

func NewPostgresNotificationRepository(db database.DB) *PostgresNotificationRepository {
	return &PostgresNotificationRepository{db: db}
}

func (r *PostgresNotificationRepository) Create(ctx context.Context, n *Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO notifications (id, telegram_id, body) VALUES ($1,$2,$3)`,
		n.ID, int64(n.TelegramID), n.Body,
	)
	return err
}

func (r *PostgresNotificationRepository) List(ctx context.Context) ([]Notification, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, telegram_id, body FROM notifications ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Notification, 0)
	for rows.Next() {
		var n Notification
		var telegramID int64
		if err := rows.Scan(&n.ID, &telegramID, &n.Body); err != nil {
			return nil, err
		}
		n.TelegramID = int(telegramID)
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresNotificationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	n, err := r.db.Exec(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotificationNotFound
	}
	return nil
}
