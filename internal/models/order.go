package models

import (
	"time"

	"github.com/google/uuid"
)

// Delivery types supported by the dispatch workflow.
const (
	DeliverySelf     = "self"
	DeliveryPartLoad = "part_load"
	DeliveryCompany  = "company"
	DeliveryFree     = "free"
)

// Order is created by the upstream sales process and mutated only
// through the dispatch state engine.
type Order struct {
	BaseModel
	OrderNumber     string          `gorm:"uniqueIndex" json:"order_number"`
	ProductName     string          `json:"product_name"`
	Quantity        int             `json:"quantity"`
	FinalAmount     float64         `json:"final_amount"`
	DeliveryType    string          `gorm:"index" json:"delivery_type"`
	CustomerName    string          `json:"customer_name"`
	CustomerContact string          `json:"customer_contact"`
	CustomerAddress string          `json:"customer_address"`
	CustomerEmail   string          `json:"customer_email"`
	Dispatch        *DispatchRecord `json:"dispatch,omitempty"`
}

// DispatchRecord tracks the dispatch lifecycle of one order. Status is
// the authoritative lifecycle field; presentation filters mirror it.
type DispatchRecord struct {
	BaseModel
	OrderID uuid.UUID `gorm:"type:uuid;uniqueIndex" json:"order_id"`
	Order   *Order    `json:"order,omitempty"`
	Status  string    `gorm:"index" json:"status"`
	Notes   string    `json:"notes"`

	// self / part_load
	CustomerVehicleNo string `json:"customer_vehicle_no"`
	DriverName        string `json:"driver_name"`

	// company / free
	TransporterName string `json:"transporter_name"`
	VehicleNo       string `json:"vehicle_no"`

	ProcessedAt     *time.Time `json:"processed_at"`
	LoadedAt        *time.Time `json:"loaded_at"`
	CompletedAt     *time.Time `json:"completed_at"`
	RejectedAt      *time.Time `json:"rejected_at"`
	RejectionReason string     `json:"rejection_reason"`
}
