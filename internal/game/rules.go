package game

import (
	"fmt"
	"math/big"
	"time"
)

// Recipe describes one production run per unit: what it consumes, what it
// emits, and how long a unit takes.
type Recipe struct {
	CoinCost       *big.Int
	ResourceCosts  map[ResourceType]*big.Int
	Output         ResourceType
	OutputPerUnit  *big.Int
	SecondsPerUnit int64
}

// BuildCost is the one-time construction price of a building type.
type BuildCost struct {
	Coins     *big.Int
	Resources map[ResourceType]*big.Int
}

// Rules carries every configured game number. The tables are data, not
// algorithm: they are validated exhaustively once at load instead of
// per request.
type Rules struct {
	StartingCoins     *big.Int
	StarterBuildings  []BuildingType
	StarterResources  []ResourceType
	Recipes           map[BuildingType]Recipe
	BuildCosts        map[BuildingType]BuildCost
	SellPriceTenths   map[ResourceType]int64
	UpgradeCostBase   float64
	UpgradeCostFactor float64

	MarketFeePercent   int32
	MaxActiveListings  int
	ListingLifetime    time.Duration
	MaxListQuantity    int64
	MaxPricePerUnit    int64
	MaxProduceQuantity int64
}

func coins(v int64) *big.Int { return big.NewInt(v) }

func DefaultRules() Rules {
	return Rules{
		StartingCoins:    coins(100),
		StarterBuildings: []BuildingType{BuildingWell, BuildingLumberjack, BuildingSandgrube},
		StarterResources: []ResourceType{ResourceWater, ResourceWood, ResourceStone},
		Recipes: map[BuildingType]Recipe{
			BuildingWell: {
				CoinCost:      coins(1),
				Output:        ResourceWater,
				OutputPerUnit: coins(1), SecondsPerUnit: 3,
			},
			BuildingLumberjack: {
				CoinCost:      coins(1),
				ResourceCosts: map[ResourceType]*big.Int{ResourceWater: coins(1)},
				Output:        ResourceWood,
				OutputPerUnit: coins(10), SecondsPerUnit: 5,
			},
			BuildingSandgrube: {
				CoinCost:      coins(1),
				ResourceCosts: map[ResourceType]*big.Int{ResourceWater: coins(1)},
				Output:        ResourceSand,
				OutputPerUnit: coins(2), SecondsPerUnit: 5,
			},
			BuildingKalktagebau: {
				CoinCost:      coins(1),
				ResourceCosts: map[ResourceType]*big.Int{ResourceWater: coins(1)},
				Output:        ResourceLimestone,
				OutputPerUnit: coins(2), SecondsPerUnit: 6,
			},
			BuildingSteinfabrik: {
				CoinCost:      coins(2),
				ResourceCosts: map[ResourceType]*big.Int{ResourceSand: coins(2)},
				Output:        ResourceStoneBlocks,
				OutputPerUnit: coins(3), SecondsPerUnit: 8,
			},
			BuildingSaegewerk: {
				CoinCost:      coins(1),
				ResourceCosts: map[ResourceType]*big.Int{ResourceWood: coins(5)},
				Output:        ResourceWoodPlanks,
				OutputPerUnit: coins(8), SecondsPerUnit: 7,
			},
			BuildingZementwerk: {
				CoinCost:      coins(2),
				ResourceCosts: map[ResourceType]*big.Int{ResourceLimestone: coins(2), ResourceSand: coins(1)},
				Output:        ResourceCement,
				OutputPerUnit: coins(4), SecondsPerUnit: 10,
			},
			BuildingBetonfabrik: {
				CoinCost:      coins(2),
				ResourceCosts: map[ResourceType]*big.Int{ResourceCement: coins(3), ResourceSand: coins(2)},
				Output:        ResourceConcrete,
				OutputPerUnit: coins(5), SecondsPerUnit: 12,
			},
		},
		BuildCosts: map[BuildingType]BuildCost{
			BuildingWell:       {Coins: coins(20)},
			BuildingLumberjack: {Coins: coins(50)},
			BuildingSandgrube:  {Coins: coins(45)},
			BuildingKalktagebau: {Coins: coins(50), Resources: map[ResourceType]*big.Int{
				ResourceWood: coins(20), ResourceStone: coins(30),
			}},
			BuildingSteinfabrik: {Coins: coins(100), Resources: map[ResourceType]*big.Int{
				ResourceWood: coins(30), ResourceSand: coins(50),
			}},
			BuildingSaegewerk: {Coins: coins(75), Resources: map[ResourceType]*big.Int{
				ResourceWood: coins(40), ResourceStone: coins(20),
			}},
			BuildingZementwerk: {Coins: coins(150), Resources: map[ResourceType]*big.Int{
				ResourceWood: coins(30), ResourceSand: coins(40), ResourceLimestone: coins(40),
			}},
			BuildingBetonfabrik: {Coins: coins(200), Resources: map[ResourceType]*big.Int{
				ResourceWood: coins(40), ResourceCement: coins(30), ResourceSand: coins(60),
			}},
		},
		SellPriceTenths: map[ResourceType]int64{
			ResourceWater:       12,
			ResourceWood:        13,
			ResourceStone:       14,
			ResourceSand:        15,
			ResourceLimestone:   16,
			ResourceCement:      20,
			ResourceConcrete:    25,
			ResourceStoneBlocks: 22,
			ResourceWoodPlanks:  18,
		},
		UpgradeCostBase:   100,
		UpgradeCostFactor: 1.6,

		MarketFeePercent:   7,
		MaxActiveListings:  10,
		ListingLifetime:    24 * time.Hour,
		MaxListQuantity:    1_000_000,
		MaxPricePerUnit:    1_000_000_000,
		MaxProduceQuantity: 1000,
	}
}

// Validate rejects malformed rule tables at startup so per-request code can
// index them without re-checking shape.
func (r Rules) Validate() error {
	if r.StartingCoins == nil || r.StartingCoins.Sign() < 0 {
		return fmt.Errorf("starting coins must be >= 0")
	}
	if len(r.Recipes) == 0 {
		return fmt.Errorf("no production recipes configured")
	}
	for bt, rec := range r.Recipes {
		if rec.Output == "" {
			return fmt.Errorf("recipe %s: missing output resource", bt)
		}
		if _, ok := r.SellPriceTenths[rec.Output]; !ok {
			return fmt.Errorf("recipe %s: output %s has no sell price", bt, rec.Output)
		}
		if rec.OutputPerUnit == nil || rec.OutputPerUnit.Sign() <= 0 {
			return fmt.Errorf("recipe %s: output per unit must be > 0", bt)
		}
		if rec.SecondsPerUnit <= 0 {
			return fmt.Errorf("recipe %s: seconds per unit must be > 0", bt)
		}
		if rec.CoinCost != nil && rec.CoinCost.Sign() < 0 {
			return fmt.Errorf("recipe %s: negative coin cost", bt)
		}
		for res, amt := range rec.ResourceCosts {
			if amt == nil || amt.Sign() < 0 {
				return fmt.Errorf("recipe %s: negative cost for %s", bt, res)
			}
			if _, ok := r.SellPriceTenths[res]; !ok {
				return fmt.Errorf("recipe %s: unknown input resource %s", bt, res)
			}
		}
	}
	for bt, bc := range r.BuildCosts {
		if bc.Coins == nil || bc.Coins.Sign() < 0 {
			return fmt.Errorf("build cost %s: coins must be >= 0", bt)
		}
		if _, ok := r.Recipes[bt]; !ok {
			return fmt.Errorf("build cost %s: no recipe for building", bt)
		}
		for res, amt := range bc.Resources {
			if amt == nil || amt.Sign() < 0 {
				return fmt.Errorf("build cost %s: negative amount for %s", bt, res)
			}
			if _, ok := r.SellPriceTenths[res]; !ok {
				return fmt.Errorf("build cost %s: unknown resource %s", bt, res)
			}
		}
	}
	for _, bt := range r.StarterBuildings {
		if _, ok := r.Recipes[bt]; !ok {
			return fmt.Errorf("starter building %s has no recipe", bt)
		}
	}
	if r.UpgradeCostBase <= 0 || r.UpgradeCostFactor <= 1 {
		return fmt.Errorf("upgrade curve must grow (base > 0, factor > 1)")
	}
	if r.MarketFeePercent < 0 || r.MarketFeePercent > 100 {
		return fmt.Errorf("market fee percent out of range")
	}
	if r.MaxActiveListings <= 0 || r.ListingLifetime <= 0 {
		return fmt.Errorf("market listing limits must be positive")
	}
	if r.MaxListQuantity <= 0 || r.MaxPricePerUnit <= 0 || r.MaxProduceQuantity <= 0 {
		return fmt.Errorf("validation limits must be positive")
	}
	return nil
}

// KnownResource reports whether the resource appears in the price table,
// which doubles as the registry of valid resource types.
func (r Rules) KnownResource(res ResourceType) bool {
	_, ok := r.SellPriceTenths[res]
	return ok
}

// KnownBuilding reports whether the building type has a recipe.
func (r Rules) KnownBuilding(bt BuildingType) bool {
	_, ok := r.Recipes[bt]
	return ok
}
