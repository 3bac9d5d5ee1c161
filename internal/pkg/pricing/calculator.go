package pricing

// PackagePricing holds the derived, never-stored pricing fields of a package.
type PackagePricing struct {
	BasePrice          float64 `json:"basePrice"`
	DiscountAmount     float64 `json:"discountAmount"`
	DiscountPercentage float64 `json:"discountPercentage"`
	PricePerCredit     float64 `json:"pricePerCredit"`
}

// CalculatePackagePricing compares a package's selling price against the
// organization's nominal credit rate. It returns nil for ALL_ACCESS packages
// and for packages without credits, which have no per-credit notion.
//
// A package priced above the nominal rate yields a negative discount; it is
// not clamped.
func CalculatePackagePricing(pkg Package, organizationCreditPrice float64) *PackagePricing {
	if pkg.Type == PackageAllAccess || pkg.Credits == nil || *pkg.Credits == 0 {
		return nil
	}

	credits := float64(*pkg.Credits)
	basePrice := organizationCreditPrice * credits
	discountAmount := basePrice - pkg.Price

	discountPercentage := 0.0
	if basePrice > 0 {
		discountPercentage = discountAmount / basePrice * 100
	}

	return &PackagePricing{
		BasePrice:          basePrice,
		DiscountAmount:     discountAmount,
		DiscountPercentage: discountPercentage,
		PricePerCredit:     pkg.Price / credits,
	}
}
