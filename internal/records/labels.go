package records

import "strings"

var statusLabels = map[string]string{
	"pending":          "Pendente",
	"quoted":           "Em cotação",
	"confirmed":        "Confirmado",
	"awaiting_pickup":  "Aguardando coleta",
	"collected":        "Coletado",
	"picked_up":        "Coletado",
	"in_transit":       "Em trânsito",
	"at_hub":           "No centro de distribuição",
	"out_for_delivery": "Saiu para entrega",
	"delivered":        "Entregue",
	"delayed":          "Atrasado",
	"returned":         "Devolvido",
	"cancelled":        "Cancelado",
}

var freightLabels = map[string]string{
	"cif":        "CIF (frete pago pelo remetente)",
	"fob":        "FOB (frete pago pelo destinatário)",
	"fractional": "Carga fracionada",
	"fracionado": "Carga fracionada",
	"dedicated":  "Carga dedicada (lotação)",
	"lotacao":    "Carga dedicada (lotação)",
	"express":    "Expresso",
}

var vehicleLabels = map[string]string{
	"motorcycle": "Moto",
	"utility":    "Utilitário",
	"van":        "Van",
	"vuc":        "VUC",
	"toco":       "Caminhão toco",
	"truck":      "Caminhão truck",
	"carreta":    "Carreta",
	"bitrem":     "Bitrem",
}

var volumeLabels = map[string]string{
	"box":    "Caixa",
	"pallet": "Palete",
	"bag":    "Saco",
	"drum":   "Tambor",
	"crate":  "Engradado",
	"roll":   "Rolo",
}

func translate(table map[string]string, code string) string {
	if label, ok := table[strings.ToLower(strings.TrimSpace(code))]; ok {
		return label
	}
	return code
}

// StatusLabel translates an order status code. Unknown codes pass through.
func StatusLabel(code string) string { return translate(statusLabels, code) }

// FreightLabel translates a freight type code. Unknown codes pass through.
func FreightLabel(code string) string { return translate(freightLabels, code) }

// VehicleLabel translates a vehicle type code. Unknown codes pass through.
func VehicleLabel(code string) string { return translate(vehicleLabels, code) }

// VolumeLabel translates a volume kind. Unknown kinds pass through.
func VolumeLabel(code string) string { return translate(volumeLabels, code) }
