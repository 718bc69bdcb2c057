package masterdata

import (
	"testing"

	"github.com/stretchr/testify/assert"

	_ "github.com/atlas-mdm/atlas-mdm/testing"
)

func TestNormalizeSearch(t *testing.T) {
	assert.Equal(t, "cafe", NormalizeSearch("  Café "))
	assert.Equal(t, "uber", NormalizeSearch("Über"))
	assert.Equal(t, "widget 9", NormalizeSearch("Widget 9"))
	assert.Equal(t, "", NormalizeSearch("   "))
}

func TestNormalizeFilters(t *testing.T) {
	filters := normalizeFilters(ListFilters{Page: -3, Limit: 500, Search: "Crème"})
	assert.Equal(t, 1, filters.Page)
	assert.Equal(t, 20, filters.Limit)
	assert.Equal(t, "creme", filters.Search)

	filters = normalizeFilters(ListFilters{Page: 4, Limit: 50})
	assert.Equal(t, 4, filters.Page)
	assert.Equal(t, 50, filters.Limit)
}

func TestCreateProductValidation(t *testing.T) {
	svc := NewService(nil)

	_, err := svc.CreateProduct(t.Context(), Product{SKU: "  ", Name: "Widget"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateProduct(t.Context(), Product{SKU: "W-1", Name: ""})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreateTaxValidation(t *testing.T) {
	svc := NewService(nil)

	_, err := svc.CreateTax(t.Context(), Tax{Code: "VAT", Name: "VAT", Rate: -1})
	assert.ErrorIs(t, err, ErrValidation)
}
