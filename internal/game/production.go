package game

import (
	"context"
	"math/big"
	"time"

	"github.com/jackc/pgx/v5"
)

// buildingRow mirrors one buildings row under lock. The production triple
// (producing, readyAt, producingQty) is either all idle or all active;
// anything else is corrupt state and gets healed, never propagated.
type buildingRow struct {
	buildingType BuildingType
	level        int32
	producing    bool
	readyAt      *time.Time
	producingQty *big.Int
}

func scanBuilding(row pgx.Row, bt BuildingType) (*buildingRow, error) {
	b := &buildingRow{buildingType: bt}
	var qty *string
	err := row.Scan(&b.level, &b.producing, &b.readyAt, &qty)
	if err == pgx.ErrNoRows {
		return nil, ErrBuildingNotFound
	}
	if err != nil {
		return nil, err
	}
	if qty != nil {
		b.producingQty, err = parseAmount(*qty)
		if err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (s *Service) lockBuilding(ctx context.Context, tx pgx.Tx, userID int64, bt BuildingType) (*buildingRow, error) {
	row := tx.QueryRow(ctx, `
		SELECT level, is_producing, ready_at, producing_qty::text
		FROM buildings
		WHERE user_id = $1 AND building_type = $2
		FOR UPDATE
	`, userID, string(bt))
	return scanBuilding(row, bt)
}

// StartProduction moves an idle building to in-progress. Costs for the whole
// run are computed up front, verified for every input, then deducted; the
// completion timestamp is server-computed so client clocks carry no
// authority.
func (s *Service) StartProduction(ctx context.Context, userID int64, in StartProductionInput) (StartProductionResult, error) {
	var out StartProductionResult
	recipe, ok := s.rules.Recipes[in.BuildingType]
	if !ok {
		return out, invalidInput("unknown building type %q", in.BuildingType)
	}
	if in.Quantity <= 0 || in.Quantity > s.rules.MaxProduceQuantity {
		return out, invalidInput("quantity must be in [1, %d]", s.rules.MaxProduceQuantity)
	}

	qty := big.NewInt(in.Quantity)
	coinCost := new(big.Int)
	if recipe.CoinCost != nil {
		coinCost.Mul(recipe.CoinCost, qty)
	}
	resourceCosts := make(map[ResourceType]*big.Int, len(recipe.ResourceCosts))
	for res, perUnit := range recipe.ResourceCosts {
		resourceCosts[res] = new(big.Int).Mul(perUnit, qty)
	}
	totalOutput := new(big.Int).Mul(recipe.OutputPerUnit, qty)
	totalSeconds := recipe.SecondsPerUnit * in.Quantity

	err := s.withTx(ctx, func(tx pgx.Tx) error {
		// Coin balance before the building row, per the fixed lock order.
		balance, err := s.lockCoins(ctx, tx, userID)
		if err != nil {
			return err
		}
		b, err := s.lockBuilding(ctx, tx, userID, in.BuildingType)
		if err != nil {
			return err
		}
		if b.producing {
			return ErrBuildingBusy
		}
		if balance.Cmp(coinCost) < 0 {
			return ErrNotEnoughCoins
		}
		for _, res := range sortedResources(resourceCosts) {
			have, err := s.lockResource(ctx, tx, userID, res)
			if err != nil {
				return err
			}
			if have.Cmp(resourceCosts[res]) < 0 {
				return notEnoughResource(res)
			}
		}

		if err := s.debitCoins(ctx, tx, userID, coinCost); err != nil {
			return err
		}
		for _, res := range sortedResources(resourceCosts) {
			if err := s.debitResource(ctx, tx, userID, res, resourceCosts[res]); err != nil {
				return err
			}
		}

		return tx.QueryRow(ctx, `
			UPDATE buildings
			SET is_producing = true,
			    producing_qty = $3,
			    ready_at = now() + make_interval(secs => $4)
			WHERE user_id = $1 AND building_type = $2
			RETURNING ready_at
		`, userID, string(in.BuildingType), totalOutput.String(), float64(totalSeconds)).Scan(&out.ReadyAt)
	})
	if err != nil {
		return StartProductionResult{}, err
	}
	out.BuildingType = in.BuildingType
	out.Quantity = in.Quantity
	return out, nil
}

// CollectProduction credits a finished run and resets the building to idle.
func (s *Service) CollectProduction(ctx context.Context, userID int64, bt BuildingType) (CollectResult, error) {
	var out CollectResult
	recipe, ok := s.rules.Recipes[bt]
	if !ok {
		return out, invalidInput("unknown building type %q", bt)
	}

	err := s.withTx(ctx, func(tx pgx.Tx) error {
		b, err := s.lockBuilding(ctx, tx, userID, bt)
		if err != nil {
			return err
		}
		if !b.producing {
			return ErrNothingToCollect
		}
		if b.readyAt != nil && b.readyAt.After(time.Now()) {
			return notReadyYet(*b.readyAt)
		}
		if b.producingQty == nil || b.producingQty.Sign() <= 0 || b.readyAt == nil {
			// Half-written production state. Heal to idle rather than
			// wedging the building, and report the corruption.
			s.log.Error("corrupt production state",
				"user_id", userID, "building", bt,
				"ready_at", b.readyAt, "producing_qty", b.producingQty)
			if err := s.resetBuildingLocked(ctx, tx, userID, bt); err != nil {
				return err
			}
			return ErrCorruptState
		}

		if err := s.creditResource(ctx, tx, userID, recipe.Output, b.producingQty); err != nil {
			return err
		}
		out = CollectResult{
			BuildingType: bt,
			ResourceType: recipe.Output,
			Quantity:     b.producingQty.String(),
		}
		return s.resetBuildingLocked(ctx, tx, userID, bt)
	})
	if err != nil {
		return CollectResult{}, err
	}
	return out, nil
}

// collectIfReadyLocked applies the identical credit-and-reset logic for the
// implicit collect-on-read path. The caller already holds the row lock.
// Corrupt rows are healed to idle and logged instead of failing the read.
func (s *Service) collectIfReadyLocked(ctx context.Context, tx pgx.Tx, userID int64, b *buildingRow, now time.Time) (bool, error) {
	if !b.producing || b.readyAt == nil || b.readyAt.After(now) {
		if b.producing && b.readyAt == nil {
			s.log.Warn("building producing without ready_at, resetting",
				"user_id", userID, "building", b.buildingType)
			if err := s.resetBuildingLocked(ctx, tx, userID, b.buildingType); err != nil {
				return false, err
			}
			b.markIdle()
		}
		return false, nil
	}

	recipe, ok := s.rules.Recipes[b.buildingType]
	if !ok || b.producingQty == nil || b.producingQty.Sign() <= 0 {
		s.log.Warn("cannot auto-collect finished production, resetting",
			"user_id", userID, "building", b.buildingType,
			"recipe_known", ok, "producing_qty", b.producingQty)
		if err := s.resetBuildingLocked(ctx, tx, userID, b.buildingType); err != nil {
			return false, err
		}
		b.markIdle()
		return false, nil
	}

	if err := s.creditResource(ctx, tx, userID, recipe.Output, b.producingQty); err != nil {
		return false, err
	}
	if err := s.resetBuildingLocked(ctx, tx, userID, b.buildingType); err != nil {
		return false, err
	}
	b.markIdle()
	return true, nil
}

// resetBuildingLocked clears the production triple as one write so the row
// never holds a mixed idle/active state.
func (s *Service) resetBuildingLocked(ctx context.Context, tx pgx.Tx, userID int64, bt BuildingType) error {
	_, err := tx.Exec(ctx, `
		UPDATE buildings
		SET is_producing = false, ready_at = NULL, producing_qty = NULL
		WHERE user_id = $1 AND building_type = $2
	`, userID, string(bt))
	return err
}

func (b *buildingRow) markIdle() {
	b.producing = false
	b.readyAt = nil
	b.producingQty = nil
}
