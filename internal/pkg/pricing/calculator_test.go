package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }
func floatPtr(v float64) *float64 { return &v }
func strPtr(v string) *string { return &v }
func discountPtr(v DiscountType) *DiscountType { return &v }

func TestCalculatePackagePricing(t *testing.T) {
	t.Parallel()

	t.Run("credit pack below nominal rate", func(t *testing.T) {
		t.Parallel()
		pkg := Package{Type: PackageCreditPack, Price: 900, Credits: intPtr(10)}

		p := CalculatePackagePricing(pkg, 100)
		require.NotNil(t, p)
		assert.InDelta(t, 1000, p.BasePrice, 1e-9)
		assert.InDelta(t, 100, p.DiscountAmount, 1e-9)
		assert.InDelta(t, 10, p.DiscountPercentage, 1e-9)
		assert.InDelta(t, 90, p.PricePerCredit, 1e-9)
	})

	t.Run("priced above nominal rate gives negative discount", func(t *testing.T) {
		t.Parallel()
		pkg := Package{Type: PackageSingleRide, Price: 120, Credits: intPtr(1)}

		p := CalculatePackagePricing(pkg, 100)
		require.NotNil(t, p)
		assert.InDelta(t, -20, p.DiscountAmount, 1e-9)
		assert.InDelta(t, -20, p.DiscountPercentage, 1e-9)
	})

	t.Run("zero credit price keeps percentage at zero", func(t *testing.T) {
		t.Parallel()
		pkg := Package{Type: PackageCreditPack, Price: 500, Credits: intPtr(5)}

		p := CalculatePackagePricing(pkg, 0)
		require.NotNil(t, p)
		assert.Zero(t, p.BasePrice)
		assert.Zero(t, p.DiscountPercentage)
		assert.InDelta(t, -500, p.DiscountAmount, 1e-9)
		assert.InDelta(t, 100, p.PricePerCredit, 1e-9)
	})

	tests := []struct {
		name string
		pkg  Package
	}{
		{name: "all access", pkg: Package{Type: PackageAllAccess, Price: 2000, Credits: intPtr(10)}},
		{name: "missing credits", pkg: Package{Type: PackageCreditPack, Price: 100}},
		{name: "zero credits", pkg: Package{Type: PackageElite30, Price: 100, Credits: intPtr(0)}},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Nil(t, CalculatePackagePricing(tc.pkg, 100))
		})
	}
}
