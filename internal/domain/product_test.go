package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const feedBody = `{
  "products": [
    {"selectedProduct": "A", "name": "Tênis", "product": {"image": "https://img/a.jpg", "sku": "x1"}, "price": 150, "rating": 5},
    {"selectedProduct": "B", "name": "Bolsa", "product": {"image": "https://img/b.jpg"}}
  ],
  "page": 1
}`

func TestParseCatalog(t *testing.T) {
	catalog, err := ParseCatalog([]byte(feedBody))
	require.NoError(t, err)

	require.Len(t, catalog.Products, 2)
	a := catalog.Products[0]
	assert.Equal(t, "A", a.ID())
	assert.Equal(t, "Tênis", a.Name)
	assert.Equal(t, "https://img/a.jpg", a.ImageURL())
	assert.JSONEq(t, `150`, string(a.Price))
	assert.JSONEq(t, feedBody, string(catalog.Body))
}

func TestParseCatalog_MissingProducts(t *testing.T) {
	catalog, err := ParseCatalog([]byte(`{"page":1}`))
	require.NoError(t, err)
	assert.NotNil(t, catalog.Products)
	assert.Empty(t, catalog.Products)
}

func TestParseCatalog_Invalid(t *testing.T) {
	_, err := ParseCatalog([]byte(`<html>`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode catalog")
}

func TestProduct_MarshalKeepsUnknownFields(t *testing.T) {
	catalog, err := ParseCatalog([]byte(feedBody))
	require.NoError(t, err)

	out, err := json.Marshal(catalog.Products[:1])
	require.NoError(t, err)
	assert.JSONEq(t,
		`[{"selectedProduct": "A", "name": "Tênis", "product": {"image": "https://img/a.jpg", "sku": "x1"}, "price": 150, "rating": 5}]`,
		string(out))
}

func TestProduct_MarshalBuiltInCode(t *testing.T) {
	p := Product{SelectedProduct: "C", Name: "Relógio", Product: ProductMedia{Image: "https://img/c.jpg"}}

	out, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"selectedProduct":"C","name":"Relógio","product":{"image":"https://img/c.jpg"}}`, string(out))
}

func TestParseCatalog_LenientScalars(t *testing.T) {
	body := `{"products":[
	  {"selectedProduct": 42, "name": 7, "product": {"image": "https://img/42.jpg"}},
	  {"selectedProduct": "B", "name": null, "product": "n/a"},
	  {"selectedProduct": {"sku": "C"}, "name": true}
	]}`

	catalog, err := ParseCatalog([]byte(body))
	require.NoError(t, err)
	require.Len(t, catalog.Products, 3)

	assert.Equal(t, "42", catalog.Products[0].ID())
	assert.Equal(t, "7", catalog.Products[0].Name)
	assert.Equal(t, "https://img/42.jpg", catalog.Products[0].ImageURL())

	assert.Equal(t, "B", catalog.Products[1].ID())
	assert.Empty(t, catalog.Products[1].Name)
	assert.Empty(t, catalog.Products[1].ImageURL())

	assert.Empty(t, catalog.Products[2].ID())
	assert.Equal(t, "true", catalog.Products[2].Name)

	out, err := json.Marshal(catalog.Products[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"selectedProduct": 42, "name": 7, "product": {"image": "https://img/42.jpg"}}`, string(out))
}
