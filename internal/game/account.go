package game

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// CreateAccount inserts the credential row and seeds the full starting
// state in one transaction: starting coins, zeroed starter inventory rows,
// and one level-1 building per starter type.
func (s *Service) CreateAccount(ctx context.Context, email, passwordHash string) (int64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || passwordHash == "" {
		return 0, invalidInput("email and password hash are required")
	}

	var userID int64
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO users (email, password_hash)
			VALUES ($1, $2)
			RETURNING id
		`, email, passwordHash).Scan(&userID)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return ErrEmailExists
			}
			return err
		}
		return s.seedPlayer(ctx, tx, userID)
	})
	if err != nil {
		return 0, err
	}
	s.log.Info("account created", "user_id", userID)
	return userID, nil
}

func (s *Service) seedPlayer(ctx context.Context, tx pgx.Tx, userID int64) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO player_state (user_id, coins, last_tick_at)
		VALUES ($1, $2, now())
	`, userID, s.rules.StartingCoins.String())
	if err != nil {
		return err
	}
	for _, res := range s.rules.StarterResources {
		if _, err := tx.Exec(ctx, `
			INSERT INTO inventory (user_id, resource_type, amount)
			VALUES ($1, $2, 0)
			ON CONFLICT DO NOTHING
		`, userID, string(res)); err != nil {
			return err
		}
	}
	for _, bt := range s.rules.StarterBuildings {
		if _, err := tx.Exec(ctx, `
			INSERT INTO buildings (user_id, building_type, level)
			VALUES ($1, $2, 1)
			ON CONFLICT (user_id, building_type) DO NOTHING
		`, userID, string(bt)); err != nil {
			return err
		}
	}
	return nil
}

// Credentials returns the stored hash for a login attempt. The caller owns
// password verification; the core never sees plaintext credentials.
func (s *Service) Credentials(ctx context.Context, email string) (int64, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var userID int64
	var hash string
	err := s.db.QueryRow(ctx, `
		SELECT id, password_hash
		FROM users
		WHERE email = $1
	`, email).Scan(&userID, &hash)
	if err == pgx.ErrNoRows {
		return 0, "", ErrInvalidCredentials
	}
	if err != nil {
		return 0, "", storeError(err)
	}
	return userID, hash, nil
}

// ResetAccount wipes and reseeds the caller's economic state atomically:
// starting coins, zeroed inventory, starter buildings, and all listings
// removed with active reservations returned first so nothing is lost or
// double-counted.
func (s *Service) ResetAccount(ctx context.Context, userID int64) error {
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := s.lockCoins(ctx, tx, userID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE player_state
			SET coins = $2, last_tick_at = now()
			WHERE user_id = $1
		`, userID, s.rules.StartingCoins.String()); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE inventory SET amount = 0 WHERE user_id = $1
		`, userID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			DELETE FROM buildings WHERE user_id = $1
		`, userID); err != nil {
			return err
		}
		for _, bt := range s.rules.StarterBuildings {
			if _, err := tx.Exec(ctx, `
				INSERT INTO buildings (user_id, building_type, level)
				VALUES ($1, $2, 1)
			`, userID, string(bt)); err != nil {
				return err
			}
		}

		// Return quantities still reserved by active listings, then drop
		// every listing the user ever created.
		rows, err := tx.Query(ctx, `
			SELECT resource_type, quantity::text
			FROM market_listings
			WHERE seller_id = $1 AND status = 'active'
			FOR UPDATE
		`, userID)
		if err != nil {
			return err
		}
		type refund struct {
			res ResourceType
			qty string
		}
		var refunds []refund
		for rows.Next() {
			var r refund
			var res string
			if err := rows.Scan(&res, &r.qty); err != nil {
				rows.Close()
				return err
			}
			r.res = ResourceType(res)
			refunds = append(refunds, r)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		for _, r := range refunds {
			qty, err := parseAmount(r.qty)
			if err != nil {
				return err
			}
			if err := s.creditResource(ctx, tx, userID, r.res, qty); err != nil {
				return err
			}
		}
		_, err = tx.Exec(ctx, `
			DELETE FROM market_listings WHERE seller_id = $1
		`, userID)
		return err
	})
	if err != nil {
		return err
	}
	s.log.Info("account reset", "user_id", userID)
	return nil
}
