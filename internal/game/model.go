package game

import (
	"fmt"
	"math"
	"math/big"
	"time"
)

// ResourceType is a fungible countable good tracked per user.
type ResourceType string

// BuildingType identifies a per-user production facility. A user owns at
// most one building of each type.
type BuildingType string

const (
	ResourceWater       ResourceType = "water"
	ResourceWood        ResourceType = "wood"
	ResourceStone       ResourceType = "stone"
	ResourceSand        ResourceType = "sand"
	ResourceLimestone   ResourceType = "limestone"
	ResourceCement      ResourceType = "cement"
	ResourceConcrete    ResourceType = "concrete"
	ResourceStoneBlocks ResourceType = "stone_blocks"
	ResourceWoodPlanks  ResourceType = "wood_planks"
)

const (
	BuildingWell        BuildingType = "well"
	BuildingLumberjack  BuildingType = "lumberjack"
	BuildingSandgrube   BuildingType = "sandgrube"
	BuildingKalktagebau BuildingType = "kalktagebau"
	BuildingSteinfabrik BuildingType = "steinfabrik"
	BuildingSaegewerk   BuildingType = "saegewerk"
	BuildingZementwerk  BuildingType = "zementwerk"
	BuildingBetonfabrik BuildingType = "betonfabrik"
)

// Kind classifies a domain error for callers that need to decide on HTTP
// status, retry safety, or user messaging without parsing strings.
// KindTransientStore is the only kind for which blind retry of the identical
// request is safe: nothing committed.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindStateConflict
	KindInsufficient
	KindLimitExceeded
	KindTransientStore
	KindInternal
)

// Error is the domain error type. Code is stable and machine readable;
// Resource names the short resource for insufficiency errors and ReadyAt
// carries the production timer for not_ready_yet.
type Error struct {
	Kind     Kind
	Code     string
	Resource ResourceType
	ReadyAt  time.Time
	cause    error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.cause)
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches domain errors by Code so sentinel values compare equal to
// per-request instances that carry extra detail.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrInvalidInput          = &Error{Kind: KindValidation, Code: "invalid_input"}
	ErrInvalidCredentials    = &Error{Kind: KindValidation, Code: "invalid_credentials"}
	ErrEmailExists           = &Error{Kind: KindStateConflict, Code: "email_exists"}
	ErrUserNotFound          = &Error{Kind: KindNotFound, Code: "user_not_found"}
	ErrBuildingNotFound      = &Error{Kind: KindNotFound, Code: "building_not_found"}
	ErrBuildingExists        = &Error{Kind: KindStateConflict, Code: "building_already_exists"}
	ErrBuildingBusy          = &Error{Kind: KindStateConflict, Code: "building_busy"}
	ErrNothingToCollect      = &Error{Kind: KindStateConflict, Code: "nothing_to_collect"}
	ErrNotReadyYet           = &Error{Kind: KindStateConflict, Code: "not_ready_yet"}
	ErrListingNotFound       = &Error{Kind: KindNotFound, Code: "listing_not_found"}
	ErrListingNotActive      = &Error{Kind: KindStateConflict, Code: "listing_not_active"}
	ErrListingExpired        = &Error{Kind: KindStateConflict, Code: "listing_expired"}
	ErrCannotBuyOwnListing   = &Error{Kind: KindStateConflict, Code: "cannot_buy_own_listing"}
	ErrNotEnoughCoins        = &Error{Kind: KindInsufficient, Code: "not_enough_coins"}
	ErrTooManyActiveListings = &Error{Kind: KindLimitExceeded, Code: "too_many_active_listings"}
	ErrAmountTooLarge        = &Error{Kind: KindLimitExceeded, Code: "transaction_amount_too_large"}
	ErrStoreConflict         = &Error{Kind: KindTransientStore, Code: "store_conflict"}
	ErrCorruptState          = &Error{Kind: KindInternal, Code: "invalid_production_state"}
)

func invalidInput(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Code: "invalid_input", cause: fmt.Errorf(format, args...)}
}

func notEnoughResource(res ResourceType) *Error {
	return &Error{Kind: KindInsufficient, Code: "not_enough_" + string(res), Resource: res}
}

func notReadyYet(readyAt time.Time) *Error {
	return &Error{Kind: KindStateConflict, Code: "not_ready_yet", ReadyAt: readyAt}
}

// maxCoinTotal caps a single market transfer. Totals beyond int64 range are
// rejected rather than risking truncation in downstream consumers.
var maxCoinTotal = big.NewInt(math.MaxInt64)

var bigTen = big.NewInt(10)

// parseAmount decodes a NUMERIC column rendered as decimal text.
func parseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("malformed amount %q", s)
	}
	return v, nil
}

// sellGain converts a resource quantity into coins at a price expressed in
// tenths of a coin per unit, flooring once. No floating point ever touches
// a balance.
func sellGain(qty *big.Int, priceTenths int64) *big.Int {
	gain := new(big.Int).Mul(qty, big.NewInt(priceTenths))
	return gain.Quo(gain, bigTen)
}

// upgradeCost is the geometric level curve floor(base * multiplier^(level-1)),
// computed in big-float space because the curve passes int64 range near level
// 90 and a cost must never wrap negative.
func upgradeCost(base, multiplier float64, level int32) *big.Int {
	if level < 1 {
		level = 1
	}
	prec := uint(64 + level)
	cost := new(big.Float).SetPrec(prec).SetFloat64(base)
	mult := new(big.Float).SetPrec(prec).SetFloat64(multiplier)
	for i := int32(1); i < level; i++ {
		cost.Mul(cost, mult)
	}
	floor, _ := cost.Int(nil)
	return floor
}

// feeOf computes floor(total * percent / 100).
func feeOf(total *big.Int, percent int32) *big.Int {
	fee := new(big.Int).Mul(total, big.NewInt(int64(percent)))
	return fee.Quo(fee, big.NewInt(100))
}
