package records

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/nextlevelbuilder/autoreply/internal/store"
)

// Snapshot sources.
const (
	SourceReference      = "reference"
	SourceRecordID       = "record_id"
	SourceCustomerLatest = "customer_latest"
)

// Snapshot is the redacted, prompt-safe projection of an order. It has no
// field for monetary values, tax identifiers or street addresses.
type Snapshot struct {
	Source               string          `json:"source"`
	OrderNumber          string          `json:"order_number"`
	Status               string          `json:"status"`
	CreatedAt            time.Time       `json:"created_at"`
	PickupDate           *time.Time      `json:"pickup_date,omitempty"`
	ExpectedDeliveryDate *time.Time      `json:"expected_delivery_date,omitempty"`
	DeliveredAt          *time.Time      `json:"delivered_at,omitempty"`
	OriginCity           string          `json:"origin_city,omitempty"`
	OriginState          string          `json:"origin_state,omitempty"`
	DestinationCity      string          `json:"destination_city,omitempty"`
	DestinationState     string          `json:"destination_state,omitempty"`
	CarrierName          string          `json:"carrier_name,omitempty"`
	CustomerName         string          `json:"customer_name,omitempty"`
	Freight              string          `json:"freight,omitempty"`
	Vehicle              string          `json:"vehicle,omitempty"`
	WeightKg             float64         `json:"weight_kg,omitempty"`
	ItemCount            int             `json:"item_count"`
	TotalQuantity        float64         `json:"total_quantity"`
	VolumeCount          int             `json:"volume_count"`
	Volumes              []VolumeSummary `json:"volumes,omitempty"`
	TrackingCode         string          `json:"tracking_code,omitempty"`
	Notes                string          `json:"notes,omitempty"`
}

// VolumeSummary is one volume line without values.
type VolumeSummary struct {
	Label      string  `json:"label"`
	Quantity   int     `json:"quantity"`
	WeightKg   float64 `json:"weight_kg,omitempty"`
	Dimensions string  `json:"dimensions,omitempty"`
}

const scrubbed = "[removido]"

var sensitivePatterns = []*regexp.Regexp{
	// CNPJ, formatted or not
	regexp.MustCompile(`\b\d{2}\.?\d{3}\.?\d{3}/?\d{4}-?\d{2}\b`),
	// CPF, formatted or not
	regexp.MustCompile(`\b\d{3}\.?\d{3}\.?\d{3}-?\d{2}\b`),
	// R$ amounts
	regexp.MustCompile(`(?i)R\$\s*\d[\d.,]*`),
	// bare BRL-formatted amounts like 1.234,56
	regexp.MustCompile(`\b\d{1,3}(?:\.\d{3})*,\d{2}\b`),
}

// Scrub replaces tax-id-shaped and currency-shaped substrings in free text.
func Scrub(s string) string {
	for _, re := range sensitivePatterns {
		s = re.ReplaceAllString(s, scrubbed)
	}
	return strings.TrimSpace(s)
}

// Redact builds the snapshot of rec. Sensitive columns are never copied and
// every string field is scrubbed, labels included, since unknown codes pass
// through verbatim.
func Redact(rec *store.OrderRecord, items []store.OrderItem, volumes []store.OrderVolume, source string) *Snapshot {
	s := &Snapshot{
		Source:               source,
		OrderNumber:          Scrub(rec.OrderNumber),
		Status:               Scrub(StatusLabel(rec.Status)),
		CreatedAt:            rec.CreatedAt,
		PickupDate:           rec.PickupDate,
		ExpectedDeliveryDate: rec.ExpectedDeliveryDate,
		DeliveredAt:          rec.DeliveredAt,
		OriginCity:           Scrub(rec.OriginCity),
		OriginState:          Scrub(rec.OriginState),
		DestinationCity:      Scrub(rec.DestinationCity),
		DestinationState:     Scrub(rec.DestinationState),
		CarrierName:          Scrub(rec.CarrierName),
		CustomerName:         Scrub(rec.CustomerName),
		Freight:              Scrub(FreightLabel(rec.FreightType)),
		Vehicle:              Scrub(VehicleLabel(rec.VehicleType)),
		WeightKg:             rec.TotalWeightKg,
		ItemCount:            len(items),
		TrackingCode:         Scrub(rec.TrackingCode),
		Notes:                Scrub(rec.Notes),
	}

	for _, it := range items {
		s.TotalQuantity += it.Quantity
	}
	for _, v := range volumes {
		qty := v.Quantity
		if qty <= 0 {
			qty = 1
		}
		s.VolumeCount += qty
		s.Volumes = append(s.Volumes, VolumeSummary{
			Label:      Scrub(VolumeLabel(v.Kind)),
			Quantity:   qty,
			WeightKg:   v.WeightKg,
			Dimensions: dimensions(v),
		})
	}
	return s
}

func dimensions(v store.OrderVolume) string {
	if v.LengthCm <= 0 && v.WidthCm <= 0 && v.HeightCm <= 0 {
		return ""
	}
	return fmt.Sprintf("%gx%gx%g cm", v.LengthCm, v.WidthCm, v.HeightCm)
}

// PartnerNames returns the counterparties named on the snapshot, used for the
// knowledge partner bonus.
func (s *Snapshot) PartnerNames() []string {
	if s == nil {
		return nil
	}
	var out []string
	if s.CarrierName != "" {
		out = append(out, s.CarrierName)
	}
	if s.CustomerName != "" {
		out = append(out, s.CustomerName)
	}
	return out
}

const dateLayout = "02/01/2006"

// Render formats the snapshot as prompt lines (pt-BR).
func (s *Snapshot) Render() string {
	var b strings.Builder
	line := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&b, "- %s: %s\n", label, value)
		}
	}
	date := func(t *time.Time) string {
		if t == nil || t.IsZero() {
			return ""
		}
		return t.Format(dateLayout)
	}

	line("Pedido", s.OrderNumber)
	if s.Source == SourceCustomerLatest {
		b.WriteString("- Observação: pedido mais recente do cliente (não citado na mensagem)\n")
	}
	line("Status", s.Status)
	line("Criado em", date(&s.CreatedAt))
	line("Coleta", date(s.PickupDate))
	line("Previsão de entrega", date(s.ExpectedDeliveryDate))
	line("Entregue em", date(s.DeliveredAt))
	line("Origem", place(s.OriginCity, s.OriginState))
	line("Destino", place(s.DestinationCity, s.DestinationState))
	line("Transportadora", s.CarrierName)
	line("Cliente", s.CustomerName)
	line("Tipo de frete", s.Freight)
	line("Veículo", s.Vehicle)
	if s.WeightKg > 0 {
		line("Peso total", fmt.Sprintf("%g kg", s.WeightKg))
	}
	if s.ItemCount > 0 {
		line("Itens", fmt.Sprintf("%d (quantidade total %g)", s.ItemCount, s.TotalQuantity))
	}
	if s.VolumeCount > 0 {
		parts := make([]string, 0, len(s.Volumes))
		for _, v := range s.Volumes {
			p := fmt.Sprintf("%d %s", v.Quantity, v.Label)
			if v.Dimensions != "" {
				p += " " + v.Dimensions
			}
			parts = append(parts, p)
		}
		line("Volumes", fmt.Sprintf("%d (%s)", s.VolumeCount, strings.Join(parts, "; ")))
	}
	line("Rastreio", s.TrackingCode)
	line("Observações", s.Notes)
	return b.String()
}

func place(city, state string) string {
	switch {
	case city != "" && state != "":
		return city + "/" + state
	case city != "":
		return city
	default:
		return state
	}
}
