package purchase

import (
	"strings"

	"formdesk/internal/domain/catalog"
)

// DefaultUnit is used when a product carries no usable unit.
const DefaultUnit = "pcs"

type unitField func(catalog.Product) string

func purchaseUnit(p catalog.Product) string { return p.PurchaseUnit }
func usageUnit(p catalog.Product) string    { return p.UsageUnit }
func storageUnit(p catalog.Product) string  { return p.StorageUnit }

var unitPreference = map[SourceCategory][]unitField{
	CategoryPurchaseGoods:   {purchaseUnit, usageUnit, storageUnit},
	CategoryPurchaseService: {purchaseUnit, usageUnit, storageUnit},
	CategoryStockWithdrawal: {usageUnit, storageUnit, purchaseUnit},
	CategoryInternalService: {usageUnit, storageUnit, purchaseUnit},
	CategoryOperational:     {usageUnit, purchaseUnit, storageUnit},
}

// unset or unknown category
var fallbackPreference = []unitField{storageUnit, purchaseUnit, usageUnit}

// DeriveUnit picks the display unit of p for category c.
func DeriveUnit(c SourceCategory, p catalog.Product) string {
	order, ok := unitPreference[c]
	if !ok {
		order = fallbackPreference
	}
	for _, field := range order {
		if u := strings.TrimSpace(field(p)); u != "" {
			return u
		}
	}
	return DefaultUnit
}
