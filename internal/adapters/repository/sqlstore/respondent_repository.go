package sqlstore

import (
	"context"
	"fmt"

	"github.com/vncsmyrnk/livepoll/internal/core/domain"
)

type respondentRepository struct {
	t *tx
}

func (r *respondentRepository) Upsert(ctx context.Context, respondent *domain.Respondent) error {
	query := `
		INSERT INTO respondents (id, name, joined_at)
		VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, joined_at = excluded.joined_at
	`
	if _, err := r.t.exec(ctx, query, respondent.ID, respondent.Name, r.t.dialect.Time(respondent.JoinedAt)); err != nil {
		return fmt.Errorf("failed to upsert respondent: %w", err)
	}
	return nil
}

func (r *respondentRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.t.exec(ctx, `DELETE FROM respondents WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete respondent: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete respondent: %w", err)
	}
	return n > 0, nil
}

func (r *respondentRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.t.queryRow(ctx, `SELECT COUNT(*) FROM respondents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count respondents: %w", err)
	}
	return n, nil
}

func (r *respondentRepository) List(ctx context.Context) ([]*domain.Respondent, error) {
	rows, err := r.t.query(ctx, `SELECT id, name, joined_at FROM respondents ORDER BY joined_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list respondents: %w", err)
	}
	defer rows.Close()

	var respondents []*domain.Respondent
	for rows.Next() {
		var resp domain.Respondent
		if err := rows.Scan(&resp.ID, &resp.Name, scanTime(&resp.JoinedAt)); err != nil {
			return nil, fmt.Errorf("failed to scan respondent: %w", err)
		}
		respondents = append(respondents, &resp)
	}
	return respondents, rows.Err()
}
