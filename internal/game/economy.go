package game

import (
	"context"
	"math/big"

	"github.com/jackc/pgx/v5"
)

// SellResource converts inventory into coins at the configured price table.
// The gain is floored to whole coins once; no fractional value accumulates.
func (s *Service) SellResource(ctx context.Context, userID int64, in SellInput) (SellResult, error) {
	var out SellResult
	if !s.rules.KnownResource(in.ResourceType) {
		return out, invalidInput("unknown resource type %q", in.ResourceType)
	}
	if in.Quantity <= 0 || in.Quantity > s.rules.MaxListQuantity {
		return out, invalidInput("quantity must be in [1, %d]", s.rules.MaxListQuantity)
	}

	qty := big.NewInt(in.Quantity)
	gain := sellGain(qty, s.rules.SellPriceTenths[in.ResourceType])

	err := s.withTx(ctx, func(tx pgx.Tx) error {
		// Coin balance before resource rows, per the fixed lock order.
		if _, err := s.lockCoins(ctx, tx, userID); err != nil {
			return err
		}
		have, err := s.lockResource(ctx, tx, userID, in.ResourceType)
		if err != nil {
			return err
		}
		if have.Cmp(qty) < 0 {
			return notEnoughResource(in.ResourceType)
		}
		if err := s.debitResource(ctx, tx, userID, in.ResourceType, qty); err != nil {
			return err
		}
		return s.creditCoins(ctx, tx, userID, gain)
	})
	if err != nil {
		return out, err
	}
	out = SellResult{ResourceType: in.ResourceType, Quantity: qty.String(), Gain: gain.String()}
	return out, nil
}

// ConstructBuilding performs the one-time build spend and inserts the new
// building at level 1, idle. Sufficiency of every required resource is
// verified before anything is deducted.
func (s *Service) ConstructBuilding(ctx context.Context, userID int64, bt BuildingType) error {
	cost, ok := s.rules.BuildCosts[bt]
	if !ok {
		return invalidInput("unknown building type %q", bt)
	}

	return s.withTx(ctx, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM buildings WHERE user_id = $1 AND building_type = $2
			)
		`, userID, string(bt)).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return ErrBuildingExists
		}

		balance, err := s.lockCoins(ctx, tx, userID)
		if err != nil {
			return err
		}
		if balance.Cmp(cost.Coins) < 0 {
			return ErrNotEnoughCoins
		}
		for _, res := range sortedResources(cost.Resources) {
			required := cost.Resources[res]
			if required.Sign() == 0 {
				continue
			}
			have, err := s.lockResource(ctx, tx, userID, res)
			if err != nil {
				return err
			}
			if have.Cmp(required) < 0 {
				return notEnoughResource(res)
			}
		}

		if err := s.debitCoins(ctx, tx, userID, cost.Coins); err != nil {
			return err
		}
		for _, res := range sortedResources(cost.Resources) {
			if err := s.debitResource(ctx, tx, userID, res, cost.Resources[res]); err != nil {
				return err
			}
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO buildings (user_id, building_type, level)
			VALUES ($1, $2, 1)
		`, userID, string(bt))
		return err
	})
}

// UpgradeBuilding bumps the level by exactly one at the geometric cost
// curve. Upgrading and production are independent axes: a producing
// building may be upgraded.
func (s *Service) UpgradeBuilding(ctx context.Context, userID int64, bt BuildingType) error {
	if !s.rules.KnownBuilding(bt) {
		return invalidInput("unknown building type %q", bt)
	}

	return s.withTx(ctx, func(tx pgx.Tx) error {
		// Coin balance before the building row, per the fixed lock order.
		balance, err := s.lockCoins(ctx, tx, userID)
		if err != nil {
			return err
		}

		var level int32
		err = tx.QueryRow(ctx, `
			SELECT level
			FROM buildings
			WHERE user_id = $1 AND building_type = $2
			FOR UPDATE
		`, userID, string(bt)).Scan(&level)
		if err == pgx.ErrNoRows {
			return ErrBuildingNotFound
		}
		if err != nil {
			return err
		}

		cost := upgradeCost(s.rules.UpgradeCostBase, s.rules.UpgradeCostFactor, level)
		if balance.Cmp(cost) < 0 {
			return ErrNotEnoughCoins
		}
		if err := s.debitCoins(ctx, tx, userID, cost); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			UPDATE buildings
			SET level = level + 1
			WHERE user_id = $1 AND building_type = $2
		`, userID, string(bt))
		return err
	})
}
