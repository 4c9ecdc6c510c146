package domain

import "fmt"

type LoadLevel string

const (
	LoadLow      LoadLevel = "LOW"
	LoadMedium   LoadLevel = "MEDIUM"
	LoadHigh     LoadLevel = "HIGH"
	LoadVeryHigh LoadLevel = "VERY_HIGH"
)

// Load is the kitchen load classification shown to staff.
type Load struct {
	Level                LoadLevel `json:"level"`
	EstimatedWaitMinutes int       `json:"estimated_wait_minutes"`
	EstimatedWaitLabel   string    `json:"estimated_wait_label"`
}

// Classify maps the live active-order count and pending item quantity to a load level.
func Classify(activeOrders, pendingItems int) Load {
	switch {
	case activeOrders >= 10 || pendingItems >= 30:
		return newLoad(LoadVeryHigh, 45)
	case activeOrders >= 6 || pendingItems >= 20:
		return newLoad(LoadHigh, 30)
	case activeOrders >= 3 || pendingItems >= 10:
		return newLoad(LoadMedium, 15)
	default:
		return newLoad(LoadLow, 5)
	}
}

func newLoad(level LoadLevel, minutes int) Load {
	return Load{
		Level:                level,
		EstimatedWaitMinutes: minutes,
		EstimatedWaitLabel:   fmt.Sprintf("~%d min", minutes),
	}
}

// WaitBand is the coarser wait-time scale used on the admin overview and
// the customer status page.
type WaitBand struct {
	Level LoadLevel `json:"level"`
	Label string    `json:"label"`
}

// AdminWaitTime derives the wait band from the active order count alone.
// It is a separate scale from Classify and must stay that way.
func AdminWaitTime(activeOrders int) WaitBand {
	switch {
	case activeOrders >= 5:
		return WaitBand{Level: LoadHigh, Label: "25-30 min"}
	case activeOrders >= 3:
		return WaitBand{Level: LoadMedium, Label: "18-22 min"}
	default:
		return WaitBand{Level: LoadLow, Label: "12-15 min"}
	}
}

// PrepMinutesPerItem is the per-item preparation estimate used by VolumeLoad.
const PrepMinutesPerItem = 3

// Volume is the volume-metrics view of kitchen load.
type Volume struct {
	LoadState            LoadLevel `json:"load_state"`
	ActiveOrdersCount    int       `json:"active_orders_count"`
	PendingItemsCount    int       `json:"pending_items_count"`
	EstimatedWaitMinutes *int      `json:"estimated_wait_minutes"`
}

// VolumeLoad scores load as 2*orders + items and assumes two items per order
// for the wait estimate. The estimate is nil when nothing is active.
func VolumeLoad(activeOrders, pendingItems int) Volume {
	v := Volume{
		ActiveOrdersCount: activeOrders,
		PendingItemsCount: pendingItems,
	}

	score := activeOrders*2 + pendingItems
	switch {
	case score <= 5:
		v.LoadState = LoadLow
	case score <= 15:
		v.LoadState = LoadMedium
	case score <= 30:
		v.LoadState = LoadHigh
	default:
		v.LoadState = LoadVeryHigh
	}

	if activeOrders > 0 {
		wait := activeOrders * 2 * PrepMinutesPerItem
		v.EstimatedWaitMinutes = &wait
	}
	return v
}

// LoadInputs counts non-terminal orders and their item quantity.
// Completed orders kept around for display do not count as load.
func LoadInputs(orders []*Order) (activeOrders, pendingItems int) {
	for _, o := range orders {
		if o.Status.IsTerminal() {
			continue
		}
		activeOrders++
		pendingItems += o.ItemQuantity()
	}
	return activeOrders, pendingItems
}
