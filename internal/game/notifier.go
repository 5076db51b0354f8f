package game

// Notifier is the outbound notification sink. Delivery is best effort and
// always happens after commit; a failed push never affects a transaction
// outcome. Payloads carry string-encoded integers, never binary floats.
type Notifier interface {
	Notify(userID int64, event string, payload any)
	Broadcast(event string, payload any)
}

// NopNotifier drops every event. Used when no transport is attached.
type NopNotifier struct{}

func (NopNotifier) Notify(int64, string, any) {}
func (NopNotifier) Broadcast(string, any)     {}

const (
	EventNewListing  = "market:new-listing"
	EventListingSold = "market:listing-sold"
	EventStateUpdate = "state:update"
)
