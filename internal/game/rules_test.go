package game

import "testing"

func TestDefaultRulesValidate(t *testing.T) {
	if err := DefaultRules().Validate(); err != nil {
		t.Fatalf("default rules invalid: %v", err)
	}
}

func TestDefaultRulesChainIsClosed(t *testing.T) {
	r := DefaultRules()

	// Every recipe input must be producible or part of the starter kit,
	// otherwise a fresh account can wedge on an unobtainable resource.
	producible := map[ResourceType]bool{}
	for _, recipe := range r.Recipes {
		producible[recipe.Output] = true
	}
	for _, res := range r.StarterResources {
		producible[res] = true
	}
	for bt, recipe := range r.Recipes {
		for res := range recipe.ResourceCosts {
			if !producible[res] {
				t.Errorf("recipe %s consumes %s, which nothing produces", bt, res)
			}
		}
	}

	// Every sellable resource and every build cost resource must be known.
	for res := range r.SellPriceTenths {
		if !r.KnownResource(res) {
			t.Errorf("sell price for unknown resource %s", res)
		}
	}
	for bt, cost := range r.BuildCosts {
		for res := range cost.Resources {
			if !r.KnownResource(res) {
				t.Errorf("build cost of %s names unknown resource %s", bt, res)
			}
		}
	}
}

func TestDefaultRulesStarterKit(t *testing.T) {
	r := DefaultRules()
	if r.StartingCoins.String() != "100" {
		t.Fatalf("starting coins = %s, want 100", r.StartingCoins)
	}
	for _, bt := range r.StarterBuildings {
		if _, ok := r.Recipes[bt]; !ok {
			t.Errorf("starter building %s has no recipe", bt)
		}
	}
	// The well runs on coins alone, so a fresh account can always produce.
	well := r.Recipes[BuildingWell]
	if len(well.ResourceCosts) != 0 {
		t.Fatal("well recipe must not consume resources")
	}
}

func TestRulesValidateRejectsBadConfig(t *testing.T) {
	broken := func(mutate func(*Rules)) Rules {
		r := DefaultRules()
		mutate(&r)
		return r
	}

	cases := map[string]Rules{
		"fee over 100": broken(func(r *Rules) { r.MarketFeePercent = 101 }),
		"negative fee": broken(func(r *Rules) { r.MarketFeePercent = -1 }),
		"zero listing cap": broken(func(r *Rules) { r.MaxActiveListings = 0 }),
		"zero lifetime":    broken(func(r *Rules) { r.ListingLifetime = 0 }),
		"zero max quantity": broken(func(r *Rules) { r.MaxListQuantity = 0 }),
		"no recipes":        broken(func(r *Rules) { r.Recipes = nil }),
	}
	for name, r := range cases {
		if err := r.Validate(); err == nil {
			t.Errorf("%s: Validate accepted broken rules", name)
		}
	}
}

func TestKnownLookups(t *testing.T) {
	r := DefaultRules()
	if !r.KnownResource(ResourceWater) {
		t.Fatal("water unknown")
	}
	if r.KnownResource("plutonium") {
		t.Fatal("plutonium known")
	}
	if !r.KnownBuilding(BuildingBetonfabrik) {
		t.Fatal("betonfabrik unknown")
	}
	if r.KnownBuilding("casino") {
		t.Fatal("casino known")
	}
}
