// Package i18n provides the small translation table used by outbound emails
// and PDF labels. French is the default language of the business.
package i18n

import "strings"

var translations = map[string]map[string]string{
	"fr": {
		"quote":                  "Devis",
		"invoice":                "Facture",
		"quote_email_subject":    "Votre devis",
		"testimonial_subject":    "Votre avis compte",
		"contact_subject":        "Nouveau message de contact",
		"description":            "Description",
		"quantity":               "Quantité",
		"unit_price":             "Prix unitaire",
		"line_total":             "Total ligne",
		"subtotal":               "Total HT",
		"tax":                    "TVA",
		"total":                  "Total TTC",
		"tax_not_applicable":     "TVA non applicable, art. 293 B du CGI",
		"valid_until":            "Valable jusqu'au",
		"issued_on":              "Émise le",
		"due_on":                 "Échéance le",
		"notes":                  "Notes",
		"required":               "Requis",
	},
	"en": {
		"quote":                  "Quote",
		"invoice":                "Invoice",
		"quote_email_subject":    "Your quote",
		"testimonial_subject":    "Your feedback matters",
		"contact_subject":        "New contact message",
		"description":            "Description",
		"quantity":               "Quantity",
		"unit_price":             "Unit price",
		"line_total":             "Line total",
		"subtotal":               "Subtotal",
		"tax":                    "VAT",
		"total":                  "Total",
		"tax_not_applicable":     "VAT not applicable, art. 293 B of the French tax code",
		"valid_until":            "Valid until",
		"issued_on":              "Issued on",
		"due_on":                 "Due on",
		"notes":                  "Notes",
		"required":               "Required",
	},
}

// T returns the translation for code in lang, falling back to French, then to
// the code itself so a missing entry stays visible instead of blank.
func T(lang, code string) string {
	if m, ok := translations[lang]; ok {
		if s, ok := m[code]; ok {
			return s
		}
	}
	if s, ok := translations["fr"][code]; ok {
		return s
	}
	return code
}

// DetectLanguage maps an Accept-Language header to a supported language.
func DetectLanguage(header string) string {
	h := strings.ToLower(header)
	if strings.HasPrefix(h, "en") {
		return "en"
	}
	return "fr"
}
