package game

import "time"

// All quantity-bearing fields are decimal strings so large balances survive
// JSON consumers with native-number limits.

type StateView struct {
	ServerTime time.Time         `json:"server_time"`
	Coins      string            `json:"coins"`
	LastTickAt time.Time         `json:"last_tick_at"`
	Inventory  map[string]string `json:"inventory"`
	Buildings  []BuildingStatus  `json:"buildings"`
}

type BuildingStatus struct {
	Type         BuildingType `json:"type"`
	Level        int32        `json:"level"`
	IsProducing  bool         `json:"is_producing"`
	ReadyAt      *time.Time   `json:"ready_at"`
	ReadyAtUnix  *int64       `json:"ready_at_unix"`
	ProducingQty *string      `json:"producing_qty"`
}

type SellInput struct {
	ResourceType ResourceType `json:"resource_type"`
	Quantity     int64        `json:"quantity"`
}

type SellResult struct {
	ResourceType ResourceType `json:"resource_type"`
	Quantity     string       `json:"quantity"`
	Gain         string       `json:"gain"`
}

type StartProductionInput struct {
	BuildingType BuildingType `json:"building_type"`
	Quantity     int64        `json:"quantity"`
}

type StartProductionResult struct {
	BuildingType BuildingType `json:"building_type"`
	Quantity     int64        `json:"quantity"`
	ReadyAt      time.Time    `json:"ready_at"`
}

type CollectResult struct {
	BuildingType BuildingType `json:"building_type"`
	ResourceType ResourceType `json:"resource"`
	Quantity     string       `json:"quantity"`
}

type CreateListingInput struct {
	ResourceType ResourceType `json:"resource_type"`
	Quantity     int64        `json:"quantity"`
	PricePerUnit int64        `json:"price_per_unit"`
}

type ListingView struct {
	ID           int64        `json:"id"`
	ResourceType ResourceType `json:"resource_type"`
	Quantity     string       `json:"quantity"`
	PricePerUnit string       `json:"price_per_unit"`
	FeePercent   int32        `json:"fee_percent"`
	CreatedAt    time.Time    `json:"created_at"`
	ExpiresAt    time.Time    `json:"expires_at"`
}

type PurchaseResult struct {
	ListingID    int64        `json:"listing_id"`
	ResourceType ResourceType `json:"resource_type"`
	Quantity     string       `json:"quantity"`
	Total        string       `json:"total"`
	Fee          string       `json:"fee"`
}
