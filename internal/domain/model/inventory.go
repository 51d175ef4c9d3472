package model

import "time"

// UnitState describes the sale state of an inventory unit.
type UnitState string

const (
	UnitStateAvailable UnitState = "available"
	UnitStateReserved  UnitState = "reserved"
	UnitStateSold      UnitState = "sold"
)

// InventoryUnit is one sellable instance of a product.
type InventoryUnit struct {
	ID         int64
	ProductID  int64
	Kind       DeliveryKind
	Payload    string
	State      UnitState
	ReservedAt *time.Time
	SoldAt     *time.Time
}
