package model

import (
	"time"

	"github.com/google/uuid"
)

// Product is a stored catalog row. SKUs arrive already normalized, so one SKU
// maps to exactly one Product.
type Product struct {
	ID          uuid.UUID
	SKU         string
	Name        string
	Description string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProductRecord is a normalized CSV row ready to be upserted by SKU.
type ProductRecord struct {
	SKU         string
	Name        string
	Description string
}
