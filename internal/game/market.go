package game

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/jackc/pgx/v5"
)

const maxListingsPageSize = 200

type purchaseNotice struct {
	sellerID int64
	result   PurchaseResult
}

// ListListings returns active, unexpired listings, cheapest first. Expiry is
// evaluated against the clock here rather than eagerly flipped; the sweeper
// and the lazy check in BuyListing converge the rows themselves.
func (s *Service) ListListings(ctx context.Context, resource ResourceType, limit int) ([]ListingView, error) {
	if resource != "" && !s.rules.KnownResource(resource) {
		return nil, invalidInput("unknown resource type %q", resource)
	}
	if limit <= 0 || limit > maxListingsPageSize {
		limit = maxListingsPageSize
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, resource_type, quantity::text, price_per_unit::text,
		       fee_percent, created_at, expires_at
		FROM market_listings
		WHERE status = 'active'
		  AND expires_at > now()
		  AND ($1 = '' OR resource_type = $1)
		ORDER BY price_per_unit ASC, id ASC
		LIMIT $2
	`, string(resource), limit)
	if err != nil {
		return nil, storeError(err)
	}
	defer rows.Close()

	out := make([]ListingView, 0, limit)
	for rows.Next() {
		var v ListingView
		var res string
		if err := rows.Scan(&v.ID, &res, &v.Quantity, &v.PricePerUnit,
			&v.FeePercent, &v.CreatedAt, &v.ExpiresAt); err != nil {
			return nil, storeError(err)
		}
		v.ResourceType = ResourceType(res)
		v.CreatedAt = v.CreatedAt.UTC()
		v.ExpiresAt = v.ExpiresAt.UTC()
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(err)
	}
	return out, nil
}

// CreateListing escrows the seller's resources into a new active listing.
// The fee percentage is snapshotted on the row so later rule changes never
// reprice a listing that is already on the market.
func (s *Service) CreateListing(ctx context.Context, sellerID int64, in CreateListingInput) (ListingView, error) {
	var out ListingView
	if !s.rules.KnownResource(in.ResourceType) {
		return out, invalidInput("unknown resource type %q", in.ResourceType)
	}
	if in.Quantity <= 0 || in.Quantity > s.rules.MaxListQuantity {
		return out, invalidInput("quantity must be in [1, %d]", s.rules.MaxListQuantity)
	}
	if in.PricePerUnit <= 0 || in.PricePerUnit > s.rules.MaxPricePerUnit {
		return out, invalidInput("price_per_unit must be in [1, %d]", s.rules.MaxPricePerUnit)
	}

	qty := big.NewInt(in.Quantity)
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		// The seller's coin row serializes concurrent creates, so the
		// active-listing cap holds under racing requests.
		if _, err := s.lockCoins(ctx, tx, sellerID); err != nil {
			return err
		}

		var active int
		err := tx.QueryRow(ctx, `
			SELECT count(*)
			FROM market_listings
			WHERE seller_id = $1 AND status = 'active' AND expires_at > now()
		`, sellerID).Scan(&active)
		if err != nil {
			return err
		}
		if active >= s.rules.MaxActiveListings {
			return ErrTooManyActiveListings
		}

		have, err := s.lockResource(ctx, tx, sellerID, in.ResourceType)
		if err != nil {
			return err
		}
		if have.Cmp(qty) < 0 {
			return notEnoughResource(in.ResourceType)
		}
		if err := s.debitResource(ctx, tx, sellerID, in.ResourceType, qty); err != nil {
			return err
		}

		return tx.QueryRow(ctx, `
			INSERT INTO market_listings
				(seller_id, resource_type, quantity, price_per_unit,
				 fee_percent, status, expires_at)
			VALUES ($1, $2, $3, $4, $5, 'active', now() + make_interval(secs => $6))
			RETURNING id, fee_percent, created_at, expires_at
		`, sellerID, string(in.ResourceType), in.Quantity, in.PricePerUnit,
			s.rules.MarketFeePercent, s.rules.ListingLifetime.Seconds(),
		).Scan(&out.ID, &out.FeePercent, &out.CreatedAt, &out.ExpiresAt)
	})
	if err != nil {
		return ListingView{}, err
	}

	out.ResourceType = in.ResourceType
	out.Quantity = qty.String()
	out.PricePerUnit = big.NewInt(in.PricePerUnit).String()
	out.CreatedAt = out.CreatedAt.UTC()
	out.ExpiresAt = out.ExpiresAt.UTC()
	s.notify.Broadcast(EventNewListing, out)
	return out, nil
}

// listingRow mirrors one locked market_listings row.
type listingRow struct {
	id           int64
	sellerID     int64
	resourceType ResourceType
	quantity     *big.Int
	pricePerUnit *big.Int
	feePercent   int32
	status       string
	expiresAt    time.Time
}

func (s *Service) lockListing(ctx context.Context, tx pgx.Tx, id int64) (*listingRow, error) {
	l := &listingRow{id: id}
	var res, qty, price string
	err := tx.QueryRow(ctx, `
		SELECT seller_id, resource_type, quantity::text, price_per_unit::text,
		       fee_percent, status, expires_at
		FROM market_listings
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&l.sellerID, &res, &qty, &price, &l.feePercent, &l.status, &l.expiresAt)
	if err == pgx.ErrNoRows {
		return nil, ErrListingNotFound
	}
	if err != nil {
		return nil, err
	}
	l.resourceType = ResourceType(res)
	if l.quantity, err = parseAmount(qty); err != nil {
		return nil, err
	}
	if l.pricePerUnit, err = parseAmount(price); err != nil {
		return nil, err
	}
	return l, nil
}

// BuyListing atomically settles a purchase: buyer pays the full total, the
// seller receives total minus the snapshotted fee, the fee itself is burned,
// and the escrowed resources land in the buyer's inventory. Lock order is
// listing, then both coin rows in ascending user id order, then buyer
// inventory; two cross purchases therefore cannot deadlock on coin rows.
//
// A listing found past its deadline is flipped to expired and that flip is
// committed on its own; no purchase-side row has been touched at that point,
// so the buyer sees a clean listing_expired with zero transfer.
func (s *Service) BuyListing(ctx context.Context, buyerID int64, listingID int64) (PurchaseResult, error) {
	var out PurchaseResult
	var notice *purchaseNotice

	err := s.withTx(ctx, func(tx pgx.Tx) error {
		l, err := s.lockListing(ctx, tx, listingID)
		if err != nil {
			return err
		}
		if l.status != "active" {
			// An expired row reports the same code whether the sweeper
			// already flipped it or the deadline check below catches it;
			// the buyer's answer does not depend on sweep timing.
			if l.status == "expired" {
				return ErrListingExpired
			}
			return ErrListingNotActive
		}
		if !l.expiresAt.After(time.Now()) {
			return ErrListingExpired
		}
		if l.sellerID == buyerID {
			return ErrCannotBuyOwnListing
		}

		total := new(big.Int).Mul(l.quantity, l.pricePerUnit)
		if total.Cmp(maxCoinTotal) > 0 {
			return ErrAmountTooLarge
		}
		fee := feeOf(total, l.feePercent)
		payout := new(big.Int).Sub(total, fee)

		lockOrder := []int64{buyerID, l.sellerID}
		if l.sellerID < buyerID {
			lockOrder[0], lockOrder[1] = l.sellerID, buyerID
		}
		var buyerCoins *big.Int
		for _, id := range lockOrder {
			balance, err := s.lockCoins(ctx, tx, id)
			if err != nil {
				return err
			}
			if id == buyerID {
				buyerCoins = balance
			}
		}
		if buyerCoins.Cmp(total) < 0 {
			return ErrNotEnoughCoins
		}

		if err := s.debitCoins(ctx, tx, buyerID, total); err != nil {
			return err
		}
		if err := s.creditCoins(ctx, tx, l.sellerID, payout); err != nil {
			return err
		}
		if err := s.creditResource(ctx, tx, buyerID, l.resourceType, l.quantity); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE market_listings
			SET status = 'sold', buyer_id = $2, sold_at = now()
			WHERE id = $1
		`, l.id, buyerID); err != nil {
			return err
		}

		out = PurchaseResult{
			ListingID:    l.id,
			ResourceType: l.resourceType,
			Quantity:     l.quantity.String(),
			Total:        total.String(),
			Fee:          fee.String(),
		}
		notice = &purchaseNotice{sellerID: l.sellerID, result: out}
		return nil
	})
	if err != nil {
		// The purchase transaction rolled back with nothing mutated; flip
		// the overdue row separately so later readers see it expired.
		if errors.Is(err, ErrListingExpired) {
			s.expireListing(ctx, listingID)
		}
		return PurchaseResult{}, err
	}

	s.notify.Notify(notice.sellerID, EventListingSold, notice.result)
	s.notify.Notify(buyerID, EventStateUpdate, nil)
	return out, nil
}

// CancelListing returns the escrowed resources to the seller and retires the
// listing. Only the owning seller can cancel; anyone else sees not-found so
// listing ownership is not probeable.
func (s *Service) CancelListing(ctx context.Context, sellerID int64, listingID int64) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		l, err := s.lockListing(ctx, tx, listingID)
		if err != nil {
			return err
		}
		if l.sellerID != sellerID {
			return ErrListingNotFound
		}
		if l.status != "active" {
			return ErrListingNotActive
		}

		if err := s.creditResource(ctx, tx, sellerID, l.resourceType, l.quantity); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			UPDATE market_listings SET status = 'cancelled' WHERE id = $1
		`, l.id)
		return err
	})
}

// expireListing flips one overdue listing outside any caller transaction.
// The status guard keeps it a no-op when a concurrent buyer already settled
// or a sweep already flipped the row.
func (s *Service) expireListing(ctx context.Context, id int64) {
	_, err := s.db.Exec(ctx, `
		UPDATE market_listings
		SET status = 'expired'
		WHERE id = $1 AND status = 'active' AND expires_at <= now()
	`, id)
	if err != nil {
		s.log.Warn("listing expiry flip failed", "listing_id", id, "error", err)
	}
}

// ExpireDueListings flips every overdue active listing to expired. It is
// idempotent and safe to run concurrently with purchases; the status guard
// in the UPDATE makes racing sweeps no-ops.
func (s *Service) ExpireDueListings(ctx context.Context) (int64, error) {
	cmd, err := s.db.Exec(ctx, `
		UPDATE market_listings
		SET status = 'expired'
		WHERE status = 'active' AND expires_at <= now()
	`)
	if err != nil {
		return 0, storeError(err)
	}
	n := cmd.RowsAffected()
	if n > 0 {
		s.log.Info("expired overdue listings", "count", n)
	}
	return n, nil
}
