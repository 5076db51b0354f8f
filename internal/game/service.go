package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Service is the transactional economy engine. Every exported operation
// runs as one all-or-nothing store transaction: lock the rows it will
// touch, validate, mutate, commit. Notifications fire only after commit.
type Service struct {
	db     *pgxpool.Pool
	log    *slog.Logger
	rules  Rules
	notify Notifier
}

func NewService(db *pgxpool.Pool, logger *slog.Logger, rules Rules, notifier Notifier) (*Service, error) {
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("game rules: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Service{db: db, log: logger, rules: rules, notify: notifier}, nil
}

func (s *Service) Rules() Rules { return s.rules }

// withTx runs fn inside one transaction with a bounded statement timeout.
// Domain errors pass through unchanged; store-level failures are classified
// so callers can tell retryable lock contention from hard faults.
func (s *Service) withTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return storeError(err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SET LOCAL statement_timeout = '10s'`); err != nil {
		return storeError(err)
	}
	if err := fn(tx); err != nil {
		var domain *Error
		if errors.As(err, &domain) {
			return err
		}
		return storeError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return storeError(err)
	}
	return nil
}

// storeError wraps a store failure as transient when a blind retry of the
// identical request is safe: serialization failure (40001), deadlock abort
// (40P01), lock not available (55P03), statement timeout cancel (57014).
// All four roll the transaction back with nothing committed.
func storeError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03", "57014":
			return &Error{Kind: KindTransientStore, Code: "store_conflict", cause: err}
		}
	}
	return &Error{Kind: KindInternal, Code: "store_error", cause: err}
}

// ---- locked read-check-mutate primitives ----
//
// Each primitive assumes its enclosing transaction; the lock* variants take
// the row lock, the debit/credit variants require the caller to hold it.
// Fixed lock order across all operations: listing row, then coin balances
// (in ascending user id order when two are involved), then building rows,
// then resource rows in ascending name order.

func (s *Service) lockCoins(ctx context.Context, tx pgx.Tx, userID int64) (*big.Int, error) {
	var raw string
	err := tx.QueryRow(ctx, `
		SELECT coins::text
		FROM player_state
		WHERE user_id = $1
		FOR UPDATE
	`, userID).Scan(&raw)
	if err == pgx.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return parseAmount(raw)
}

func (s *Service) lockResource(ctx context.Context, tx pgx.Tx, userID int64, res ResourceType) (*big.Int, error) {
	var raw string
	err := tx.QueryRow(ctx, `
		SELECT amount::text
		FROM inventory
		WHERE user_id = $1 AND resource_type = $2
		FOR UPDATE
	`, userID, string(res)).Scan(&raw)
	if err == pgx.ErrNoRows {
		// Absent row is a zero balance.
		return new(big.Int), nil
	}
	if err != nil {
		return nil, err
	}
	return parseAmount(raw)
}

func (s *Service) debitCoins(ctx context.Context, tx pgx.Tx, userID int64, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	cmd, err := tx.Exec(ctx, `
		UPDATE player_state
		SET coins = coins - $2
		WHERE user_id = $1 AND coins >= $2
	`, userID, amount.String())
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotEnoughCoins
	}
	return nil
}

func (s *Service) creditCoins(ctx context.Context, tx pgx.Tx, userID int64, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `
		UPDATE player_state
		SET coins = coins + $2
		WHERE user_id = $1
	`, userID, amount.String())
	return err
}

func (s *Service) debitResource(ctx context.Context, tx pgx.Tx, userID int64, res ResourceType, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	cmd, err := tx.Exec(ctx, `
		UPDATE inventory
		SET amount = amount - $3
		WHERE user_id = $1 AND resource_type = $2 AND amount >= $3
	`, userID, string(res), amount.String())
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return notEnoughResource(res)
	}
	return nil
}

func (s *Service) creditResource(ctx context.Context, tx pgx.Tx, userID int64, res ResourceType, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO inventory (user_id, resource_type, amount)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, resource_type)
		DO UPDATE SET amount = inventory.amount + EXCLUDED.amount
	`, userID, string(res), amount.String())
	return err
}

// sortedResources returns map keys in the fixed enumeration order used for
// lock acquisition, so two transactions over the same user never deadlock
// on inventory rows.
func sortedResources[V any](m map[ResourceType]V) []ResourceType {
	out := make([]ResourceType, 0, len(m))
	for res := range m {
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
