package models

import (
	"time"

	"github.com/google/uuid"
)

// GatePass statuses.
const (
	PassPending  = "pending"
	PassEntered  = "entered_for_pickup"
	PassLoaded   = "loaded"
	PassVerified = "verified"
	PassRejected = "rejected"
)

// Gate notification types.
const (
	NotificationVehicleEntered = "vehicle_entered"
	NotificationGateRejected   = "gate_rejected"
)

// GatePass authorizes the physical release of one dispatch-ready order.
// Created exactly once per order; rejection terminates it.
type GatePass struct {
	BaseModel
	OrderID         uuid.UUID  `gorm:"type:uuid;uniqueIndex" json:"order_id"`
	Order           *Order     `json:"order,omitempty"`
	Status          string     `gorm:"index" json:"status"`
	CustomerVehicle string     `json:"customer_vehicle"`
	DriverName      string     `json:"driver_name"`
	DriverContact   string     `json:"driver_contact"`
	IssuedAt        time.Time  `json:"issued_at"`
	VerifiedAt      *time.Time `json:"verified_at"`
	RejectionReason string     `json:"rejection_reason"`

	// Consecutive failed identity checks. Three or more flags the pass
	// so that send-in requires a supervisor override.
	MismatchCount int  `json:"mismatch_count"`
	Overridden    bool `json:"overridden"`
}

// Flagged reports whether the pass has accumulated enough identity
// mismatches to require a supervisor override.
func (g *GatePass) Flagged() bool {
	return g.MismatchCount >= 3
}

// GateNotification surfaces a physical gate event to the dispatch desk.
// DeliveredAt is stamped when the feed first hands it out; the consumer
// sees is_new exactly once.
type GateNotification struct {
	BaseModel
	Type          string     `gorm:"index" json:"type"`
	OrderNumber   string     `json:"order_number"`
	VehicleNumber string     `json:"vehicle_number"`
	Message       string     `json:"message"`
	DeliveredAt   *time.Time `gorm:"index" json:"-"`
}
