package store

import (
	"context"
	"time"
)

// OrderRecord is the raw logistics order as stored, sensitive columns included.
// Never hand this to a prompt; project it through records.Redact first.
type OrderRecord struct {
	ID                   string     `json:"id"`
	OrderNumber          string     `json:"order_number"`
	Status               string     `json:"status"`
	CustomerID           string     `json:"customer_id,omitempty"`
	CustomerName         string     `json:"customer_name,omitempty"`
	CustomerTaxID        string     `json:"customer_tax_id,omitempty"`
	CarrierName          string     `json:"carrier_name,omitempty"`
	FreightType          string     `json:"freight_type,omitempty"`
	VehicleType          string     `json:"vehicle_type,omitempty"`
	OriginAddress        string     `json:"origin_address,omitempty"`
	OriginCity           string     `json:"origin_city,omitempty"`
	OriginState          string     `json:"origin_state,omitempty"`
	DestinationAddress   string     `json:"destination_address,omitempty"`
	DestinationCity      string     `json:"destination_city,omitempty"`
	DestinationState     string     `json:"destination_state,omitempty"`
	FreightValue         float64    `json:"freight_value,omitempty"`
	InvoiceValue         float64    `json:"invoice_value,omitempty"`
	TotalWeightKg        float64    `json:"total_weight_kg,omitempty"`
	TrackingCode         string     `json:"tracking_code,omitempty"`
	Notes                string     `json:"notes,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	PickupDate           *time.Time `json:"pickup_date,omitempty"`
	ExpectedDeliveryDate *time.Time `json:"expected_delivery_date,omitempty"`
	DeliveredAt          *time.Time `json:"delivered_at,omitempty"`
}

// OrderItem is one product line of an order.
type OrderItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit,omitempty"`
	UnitPrice   float64 `json:"unit_price,omitempty"`
}

// OrderVolume is one physical sub-unit (box, pallet) of an order.
type OrderVolume struct {
	Kind     string  `json:"kind"`
	Quantity int     `json:"quantity"`
	WeightKg float64 `json:"weight_kg,omitempty"`
	LengthCm float64 `json:"length_cm,omitempty"`
	WidthCm  float64 `json:"width_cm,omitempty"`
	HeightCm float64 `json:"height_cm,omitempty"`
}

// RecordStore looks up orders by the identifiers a conversation can reference.
// Lookups that match nothing return ErrNotFound.
type RecordStore interface {
	GetByID(ctx context.Context, id string) (*OrderRecord, error)
	GetByNumber(ctx context.Context, number string) (*OrderRecord, error)
	GetLatestForCustomer(ctx context.Context, customerID string) (*OrderRecord, error)
	ListItems(ctx context.Context, orderID string) ([]OrderItem, error)
	ListVolumes(ctx context.Context, orderID string) ([]OrderVolume, error)
}
