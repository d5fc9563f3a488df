package pg

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nextlevelbuilder/autoreply/internal/store"
)

// PGRecordStore implements store.RecordStore backed by Postgres.
type PGRecordStore struct {
	db *sql.DB
}

func NewPGRecordStore(db *sql.DB) *PGRecordStore {
	return &PGRecordStore{db: db}
}

const orderColumns = `id, order_number, status, customer_id, customer_name, customer_tax_id, carrier_name,
	 freight_type, vehicle_type, origin_address, origin_city, origin_state,
	 destination_address, destination_city, destination_state,
	 freight_value, invoice_value, total_weight_kg, tracking_code, notes,
	 created_at, pickup_date, expected_delivery_date, delivered_at`

func (s *PGRecordStore) GetByID(ctx context.Context, id string) (*store.OrderRecord, error) {
	return s.scanOrder(s.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id::text = $1`, id))
}

func (s *PGRecordStore) GetByNumber(ctx context.Context, number string) (*store.OrderRecord, error) {
	return s.scanOrder(s.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE order_number = $1`, number))
}

func (s *PGRecordStore) GetLatestForCustomer(ctx context.Context, customerID string) (*store.OrderRecord, error) {
	return s.scanOrder(s.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE customer_id = $1
		 ORDER BY created_at DESC LIMIT 1`, customerID))
}

func (s *PGRecordStore) scanOrder(row *sql.Row) (*store.OrderRecord, error) {
	var o store.OrderRecord
	var customerID, customerName, taxID, carrier, freightType, vehicleType *string
	var originAddr, originCity, originState, destAddr, destCity, destState *string
	var tracking, notes *string
	var freightValue, invoiceValue, weight sql.NullFloat64

	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.Status, &customerID, &customerName, &taxID, &carrier,
		&freightType, &vehicleType, &originAddr, &originCity, &originState,
		&destAddr, &destCity, &destState,
		&freightValue, &invoiceValue, &weight, &tracking, &notes,
		&o.CreatedAt, &o.PickupDate, &o.ExpectedDeliveryDate, &o.DeliveredAt,
	)
	if err != nil {
		return nil, notFound(err)
	}

	o.CustomerID = derefStr(customerID)
	o.CustomerName = derefStr(customerName)
	o.CustomerTaxID = derefStr(taxID)
	o.CarrierName = derefStr(carrier)
	o.FreightType = derefStr(freightType)
	o.VehicleType = derefStr(vehicleType)
	o.OriginAddress = derefStr(originAddr)
	o.OriginCity = derefStr(originCity)
	o.OriginState = derefStr(originState)
	o.DestinationAddress = derefStr(destAddr)
	o.DestinationCity = derefStr(destCity)
	o.DestinationState = derefStr(destState)
	o.FreightValue = freightValue.Float64
	o.InvoiceValue = invoiceValue.Float64
	o.TotalWeightKg = weight.Float64
	o.TrackingCode = derefStr(tracking)
	o.Notes = derefStr(notes)
	return &o, nil
}

func (s *PGRecordStore) ListItems(ctx context.Context, orderID string) ([]store.OrderItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT description, quantity, coalesce(unit, ''), coalesce(unit_price, 0)
		 FROM order_items WHERE order_id::text = $1 ORDER BY position, description`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []store.OrderItem
	for rows.Next() {
		var it store.OrderItem
		if err := rows.Scan(&it.Description, &it.Quantity, &it.Unit, &it.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		result = append(result, it)
	}
	return result, rows.Err()
}

func (s *PGRecordStore) ListVolumes(ctx context.Context, orderID string) ([]store.OrderVolume, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, quantity, coalesce(weight_kg, 0), coalesce(length_cm, 0), coalesce(width_cm, 0), coalesce(height_cm, 0)
		 FROM order_volumes WHERE order_id::text = $1 ORDER BY position, kind`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []store.OrderVolume
	for rows.Next() {
		var v store.OrderVolume
		if err := rows.Scan(&v.Kind, &v.Quantity, &v.WeightKg, &v.LengthCm, &v.WidthCm, &v.HeightCm); err != nil {
			return nil, fmt.Errorf("scan order volume: %w", err)
		}
		result = append(result, v)
	}
	return result, rows.Err()
}
