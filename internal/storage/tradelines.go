package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/insightdelivered/tradeline-extractor/internal/models"
)

const tradelineColumns = `id, user_id, creditor_name, account_number, credit_bureau,
	account_balance, credit_limit, monthly_payment, date_opened, date_closed,
	account_status, account_type, is_negative, negative_type, negative_reason,
	payment_history, created_at, updated_at`

// GetTradelines returns a user's tradelines in insertion order, which is
// the order the matcher walks when several records qualify.
func (s *SQLiteStorage) GetTradelines(ctx context.Context, userID string) ([]models.StoredTradeline, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+tradelineColumns+` FROM tradelines WHERE user_id = ? ORDER BY rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tradelines: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.StoredTradeline
	for rows.Next() {
		t, err := scanTradeline(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tradelines: %w", err)
	}
	return out, nil
}

// GetTradeline loads one tradeline by id.
func (s *SQLiteStorage) GetTradeline(ctx context.Context, id string) (*models.StoredTradeline, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+tradelineColumns+` FROM tradelines WHERE id = ?`, id)
	t, err := scanTradeline(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// InsertTradeline stores a candidate under its own id, minting one if the
// candidate has none.
func (s *SQLiteStorage) InsertTradeline(ctx context.Context, c models.TradelineCandidate) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}
	if err := validateString(c.UserID, "userID"); err != nil {
		return "", err
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if c.CreditBureau == "" {
		c.CreditBureau = models.BureauUnknown
	}
	history, err := encodeHistory(c.PaymentHistory)
	if err != nil {
		return "", err
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO tradelines (`+tradelineColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.CreditorName, c.AccountNumber, string(c.CreditBureau),
		c.AccountBalance, c.CreditLimit, c.MonthlyPayment, c.DateOpened, c.DateClosed,
		c.AccountStatus, string(c.AccountType), c.IsNegative, string(c.NegativeType), c.NegativeReason,
		history, c.CreatedAt, c.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert tradeline: %w", err)
	}
	return c.ID, nil
}

// PatchTradeline writes only the fields the patch sets. An empty patch is
// a no-op.
func (s *SQLiteStorage) PatchTradeline(ctx context.Context, id string, patch models.FieldPatch) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	if patch.IsEmpty() {
		return nil
	}

	var (
		sets []string
		args []any
	)
	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if patch.AccountBalance != nil {
		add("account_balance", *patch.AccountBalance)
	}
	if patch.AccountStatus != nil {
		add("account_status", *patch.AccountStatus)
	}
	if patch.CreditLimit != nil {
		add("credit_limit", *patch.CreditLimit)
	}
	if patch.MonthlyPayment != nil {
		add("monthly_payment", *patch.MonthlyPayment)
	}
	if patch.AccountType != nil {
		add("account_type", string(*patch.AccountType))
	}
	if patch.CreditBureau != nil {
		add("credit_bureau", string(*patch.CreditBureau))
	}
	if patch.IsNegative != nil {
		add("is_negative", *patch.IsNegative)
	}
	if patch.NegativeType != nil {
		add("negative_type", string(*patch.NegativeType))
	}
	if patch.NegativeReason != nil {
		add("negative_reason", *patch.NegativeReason)
	}
	if len(patch.PaymentHistory) > 0 {
		history, err := encodeHistory(patch.PaymentHistory)
		if err != nil {
			return err
		}
		add("payment_history", history)
	}
	add("updated_at", time.Now().UTC())
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		`UPDATE tradelines SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("failed to patch tradeline: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTradeline(row rowScanner) (models.StoredTradeline, error) {
	var (
		t                                        models.StoredTradeline
		bureau, accountType, negType, historyRaw string
	)
	err := row.Scan(
		&t.ID, &t.UserID, &t.CreditorName, &t.AccountNumber, &bureau,
		&t.AccountBalance, &t.CreditLimit, &t.MonthlyPayment, &t.DateOpened, &t.DateClosed,
		&t.AccountStatus, &accountType, &t.IsNegative, &negType, &t.NegativeReason,
		&historyRaw, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return t, err
		}
		return t, fmt.Errorf("failed to scan tradeline: %w", err)
	}
	t.CreditBureau = models.Bureau(bureau)
	t.AccountType = models.AccountType(accountType)
	t.NegativeType = models.NegativeType(negType)
	if err := json.Unmarshal([]byte(historyRaw), &t.PaymentHistory); err != nil {
		return t, fmt.Errorf("failed to decode payment history for %s: %w", t.ID, err)
	}
	return t, nil
}

func encodeHistory(h []models.PaymentEntry) (string, error) {
	if h == nil {
		h = []models.PaymentEntry{}
	}
	b, err := json.Marshal(h)
	if err != nil {
		return "", fmt.Errorf("failed to encode payment history: %w", err)
	}
	return string(b), nil
}
