// internal/domain/inventory/availability.go
package inventory

import "github.com/your-org/marketplace-backend/internal/domain/product"

// Availability is the derived sellable position of a product
type Availability struct {
	AvailableStock int                  `json:"available_stock"`
	Status         product.Availability `json:"status"`
}

// ComputeAvailability derives available stock and status from on-hand stock
// and the reserved and in-flight demand. Delivered quantity has already left
// on-hand stock and is not subtracted. Demand above stock is a valid input.
func ComputeAvailability(totalStock, reserved, inFlight int) Availability {
	available := totalStock - reserved - inFlight
	if totalStock <= 0 || available < 0 {
		available = 0
	}

	status := product.AvailabilityUnavailable
	if available > 0 {
		status = product.AvailabilityAvailable
	}

	return Availability{AvailableStock: available, Status: status}
}

// IsLowStock reports whether available stock is at or below the threshold
func IsLowStock(availableStock, threshold int) bool {
	return availableStock <= threshold
}
