package expense

import (
	"strings"

	"github.com/oliveiraaldo/finsplit/internal/extraction"
)

// categoryByKind maps document/transaction kinds to a default expense
// category when the extractor did not produce one.
var categoryByKind = map[string]string{
	"restaurant": "Alimentação",
	"receipt":    "Alimentação",
	"grocery":    "Mercado",
	"transport":  "Transporte",
	"pharmacy":   "Saúde",
	"services":   "Serviços",
	"invoice":    "Contas",
	"transfer":   "Transferências",
	"other":      "Outros",
}

// Validate enforces the minimum semantic fields a pending expense needs:
// a payee-or-establishment name, a date, a total amount, and a category. The
// category may be defaulted from the document kind. Returns the receipt with
// defaults applied, or a ValidationError naming every missing field.
func Validate(r extraction.Receipt) (extraction.Receipt, error) {
	var missing []string

	if r.Name() == "" {
		missing = append(missing, "estabelecimento")
	}
	if r.Date.IsZero() {
		missing = append(missing, "data")
	}
	if r.Amount.IsZero() {
		missing = append(missing, "valor total")
	}
	if r.Category == "" {
		if fallback, ok := categoryByKind[strings.ToLower(r.DocumentKind)]; ok {
			r.Category = fallback
		} else {
			missing = append(missing, "categoria")
		}
	}

	if len(missing) > 0 {
		return r, &ValidationError{MissingFields: missing}
	}
	return r, nil
}
