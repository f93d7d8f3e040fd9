package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"vagasbot/internal/database"
	"vagasbot/internal/opportunity"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrOpportunityNotFound = errors.New("opportunity not found")

type OpportunityRepository interface {
	Create(ctx context.Context, o *opportunity.Opportunity) error
	FindByID(ctx context.Context, id uuid.UUID) (opportunity.Opportunity, error)
	Update(ctx context.Context, o *opportunity.Opportunity) error
	Delete(ctx context.Context, id uuid.UUID) error

	// ListPublished returns every opportunity with a non-null publish
	// reference, oldest first.
	ListPublished(ctx context.Context) ([]opportunity.Opportunity, error)
	DeletePublished(ctx context.Context) error
}

type PostgresOpportunityRepository struct {
	db database.DB
}

func NewPostgresOpportunityRepository(db database.DB) *PostgresOpportunityRepository {
	return &PostgresOpportunityRepository{db: db}
}

func (r *PostgresOpportunityRepository) Create(ctx context.Context, o *opportunity.Opportunity) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.Status == "" {
		o.Status = opportunity.StatusInactive
	}
	files, err := filesJSON(o.Files)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO opportunities (
			id, title, description, company, location, salary, files, status,
			telegram_id, telegram_user_id
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		o.ID, o.Title, o.Description,
		nullableText(o.Company), nullableText(o.Location), nullableText(o.Salary),
		files, string(o.Status),
		nullableInt(int64(o.TelegramID)), nullableInt(o.TelegramUserID),
	)
	return err
}

func (r *PostgresOpportunityRepository) FindByID(ctx context.Context, id uuid.UUID) (opportunity.Opportunity, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, title, description, COALESCE(company, ''), COALESCE(location, ''),
			COALESCE(salary, ''), files, status, COALESCE(telegram_id, 0),
			COALESCE(telegram_user_id, 0)
		 FROM opportunities WHERE id = $1`,
		id,
	)
	return scanOpportunity(row)
}

func (r *PostgresOpportunityRepository) Update(ctx context.Context, o *opportunity.Opportunity) error {
	files, err := filesJSON(o.Files)
	if err != nil {
		return err
	}
	n, err := r.db.Exec(ctx,
		`UPDATE opportunities SET
			title = $2, description = $3, company = $4, location = $5, salary = $6,
			files = $7, status = $8, telegram_id = $9, telegram_user_id = $10,
			updated_at = now()
		 WHERE id = $1`,
		o.ID, o.Title, o.Description,
		nullableText(o.Company), nullableText(o.Location), nullableText(o.Salary),
		files, string(o.Status),
		nullableInt(int64(o.TelegramID)), nullableInt(o.TelegramUserID),
	)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrOpportunityNotFound
	}
	return nil
}

func (r *PostgresOpportunityRepository) Delete(ctx context.Context, id uuid.UUID) error {
	n, err := r.db.Exec(ctx, `DELETE FROM opportunities WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrOpportunityNotFound
	}
	return nil
}

func (r *PostgresOpportunityRepository) ListPublished(ctx context.Context) ([]opportunity.Opportunity, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, title, description, COALESCE(company, ''), COALESCE(location, ''),
			COALESCE(salary, ''), files, status, COALESCE(telegram_id, 0),
			COALESCE(telegram_user_id, 0)
		 FROM opportunities
		 WHERE telegram_id IS NOT NULL
		 ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]opportunity.Opportunity, 0)
	for rows.Next() {
		o, err := scanOpportunity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresOpportunityRepository) DeletePublished(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `DELETE FROM opportunities WHERE telegram_id IS NOT NULL`)
	return err
}

func scanOpportunity(row database.Row) (opportunity.Opportunity, error) {
	var o opportunity.Opportunity
	var files []byte
	var status string
	var telegramID int64
	err := row.Scan(
		&o.ID, &o.Title, &o.Description, &o.Company, &o.Location, &o.Salary,
		&files, &status, &telegramID, &o.TelegramUserID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows) {
			return opportunity.Opportunity{}, ErrOpportunityNotFound
		}
		return opportunity.Opportunity{}, err
	}
	o.TelegramID = int(telegramID)
	st, err := opportunity.ParseStatus(status)
	if err != nil {
		return opportunity.Opportunity{}, err
	}
	o.Status = st
	if len(files) > 0 {
		if err := json.Unmarshal(files, &o.Files); err != nil {
			return opportunity.Opportunity{}, err
		}
	}
	return o, nil
}

func filesJSON(files []string) ([]byte, error) {
	if files == nil {
		files = []string{}
	}
	return json.Marshal(files)
}

func nullableText(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableInt(n int64) any {
	if n == 0 {
		return nil
	}
	return n
}
