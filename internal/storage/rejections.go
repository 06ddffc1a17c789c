package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/insightdelivered/tradeline-extractor/internal/models"
)

// RejectionRecord is a stored rejected block.
type RejectionRecord struct {
	models.Rejection
	ID        int64     `json:"id"`
	UserID    string    `json:"userId"`
	ReportID  string    `json:"reportId"`
	CreatedAt time.Time `json:"createdAt"`
}

// SaveRejections stores rejected blocks in one transaction.
func (s *SQLiteStorage) SaveRejections(ctx context.Context, userID, reportID string, rejections []models.Rejection) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(userID, "userID"); err != nil {
		return err
	}
	if len(rejections) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO rejections
		(user_id, report_id, section, reason, block_text, created_at) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().UTC()
	for _, r := range rejections {
		if _, err := stmt.ExecContext(ctx, userID, reportID, string(r.Section), r.Reason, r.BlockText, now); err != nil {
			return fmt.Errorf("failed to insert rejection: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rejections: %w", err)
	}
	return nil
}

// GetRejections lists a user's rejected blocks, oldest first.
func (s *SQLiteStorage) GetRejections(ctx context.Context, userID string) ([]RejectionRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, user_id, report_id, section, reason, block_text, created_at
		FROM rejections WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rejections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []RejectionRecord
	for rows.Next() {
		var (
			r       RejectionRecord
			section string
		)
		if err := rows.Scan(&r.ID, &r.UserID, &r.ReportID, &section, &r.Reason, &r.BlockText, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rejection: %w", err)
		}
		r.Section = models.SectionKind(section)
		out = append(out, r)
	}
	return out, rows.Err()
}
