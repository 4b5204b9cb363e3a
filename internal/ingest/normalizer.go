package ingest

import (
	"strings"

	"github.com/Sandeepreyyi/Sandeepreyyi-fulfil-product-assignment/internal/model"
)

// RawRecord is one CSV row as read from the file. Missing cells are empty strings.
type RawRecord struct {
	SKU         string
	Name        string
	Description string
}

// Normalize trims the SKU and reports false when it is empty, meaning the row is rejected.
// Name and description are passed through unchanged.
func Normalize(raw RawRecord) (model.ProductRecord, bool) {
	sku := strings.TrimSpace(raw.SKU)
	if sku == "" {
		return model.ProductRecord{}, false
	}
	return model.ProductRecord{
		SKU:         sku,
		Name:        raw.Name,
		Description: raw.Description,
	}, true
}

// NormalizeBatch normalizes rows in order and returns the accepted records with the number rejected.
func NormalizeBatch(raws []RawRecord) ([]model.ProductRecord, int) {
	records := make([]model.ProductRecord, 0, len(raws))
	rejected := 0
	for _, raw := range raws {
		rec, ok := Normalize(raw)
		if !ok {
			rejected++
			continue
		}
		records = append(records, rec)
	}
	return records, rejected
}
