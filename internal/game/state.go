package game

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// PlayerState returns the full snapshot for one player. Any production run
// that finished before this call is collected inside the same transaction,
// so the returned inventory already includes it and the building shows idle.
func (s *Service) PlayerState(ctx context.Context, userID int64) (StateView, error) {
	var view StateView
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		now := time.Now()

		coinsText := ""
		var lastTick time.Time
		err := tx.QueryRow(ctx, `
			SELECT coins::text, last_tick_at
			FROM player_state
			WHERE user_id = $1
			FOR UPDATE
		`, userID).Scan(&coinsText, &lastTick)
		if err == pgx.ErrNoRows {
			return ErrUserNotFound
		}
		if err != nil {
			return err
		}

		buildings, err := s.lockAllBuildings(ctx, tx, userID)
		if err != nil {
			return err
		}
		for _, b := range buildings {
			if _, err := s.collectIfReadyLocked(ctx, tx, userID, b, now); err != nil {
				return err
			}
		}

		inventory, err := s.readInventory(ctx, tx, userID)
		if err != nil {
			return err
		}

		view = StateView{
			ServerTime: now.UTC(),
			Coins:      coinsText,
			LastTickAt: lastTick.UTC(),
			Inventory:  inventory,
			Buildings:  make([]BuildingStatus, 0, len(buildings)),
		}
		for _, b := range buildings {
			view.Buildings = append(view.Buildings, buildingStatus(b))
		}
		return nil
	})
	if err != nil {
		return StateView{}, err
	}
	return view, nil
}

// lockAllBuildings takes row locks in building_type order so every caller
// traversing the same player's buildings agrees on acquisition order.
func (s *Service) lockAllBuildings(ctx context.Context, tx pgx.Tx, userID int64) ([]*buildingRow, error) {
	rows, err := tx.Query(ctx, `
		SELECT building_type, level, is_producing, ready_at, producing_qty::text
		FROM buildings
		WHERE user_id = $1
		ORDER BY building_type
		FOR UPDATE
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*buildingRow
	for rows.Next() {
		b := &buildingRow{}
		var bt string
		var qty *string
		if err := rows.Scan(&bt, &b.level, &b.producing, &b.readyAt, &qty); err != nil {
			return nil, err
		}
		b.buildingType = BuildingType(bt)
		if qty != nil {
			b.producingQty, err = parseAmount(*qty)
			if err != nil {
				return nil, err
			}
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Service) readInventory(ctx context.Context, tx pgx.Tx, userID int64) (map[string]string, error) {
	rows, err := tx.Query(ctx, `
		SELECT resource_type, amount::text
		FROM inventory
		WHERE user_id = $1
		ORDER BY resource_type
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	inv := map[string]string{}
	for rows.Next() {
		var res, amount string
		if err := rows.Scan(&res, &amount); err != nil {
			return nil, err
		}
		inv[res] = amount
	}
	return inv, rows.Err()
}

func buildingStatus(b *buildingRow) BuildingStatus {
	st := BuildingStatus{
		Type:        b.buildingType,
		Level:       b.level,
		IsProducing: b.producing,
	}
	if b.producing && b.readyAt != nil {
		ready := b.readyAt.UTC()
		unix := ready.Unix()
		st.ReadyAt = &ready
		st.ReadyAtUnix = &unix
	}
	if b.producing && b.producingQty != nil {
		qty := b.producingQty.String()
		st.ProducingQty = &qty
	}
	return st
}
