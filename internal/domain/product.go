package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Product is a catalog record from the product feed. Only the fields the
// storefront reads are decoded; the raw JSON is kept and re-emitted
// unchanged so fields unknown to the storefront survive the proxy.
type Product struct {
	SelectedProduct string          `json:"selectedProduct"`
	Name            string          `json:"name"`
	Product         ProductMedia    `json:"product"`
	Price           json.RawMessage `json:"price,omitempty"`

	raw json.RawMessage
}

// ProductMedia is the nested "product" object of a catalog record.
type ProductMedia struct {
	Image string `json:"image"`
}

// productFields avoids recursion into Product's own MarshalJSON.
type productFields struct {
	SelectedProduct string          `json:"selectedProduct"`
	Name            string          `json:"name"`
	Product         ProductMedia    `json:"product"`
	Price           json.RawMessage `json:"price,omitempty"`
}

// ID returns the identifier used for wishlist membership.
func (p Product) ID() string {
	return p.SelectedProduct
}

// ImageURL returns the product image.
func (p Product) ImageURL() string {
	return p.Product.Image
}

// feedRecord is the lenient decoding shape of a feed record.
type feedRecord struct {
	SelectedProduct scalarText      `json:"selectedProduct"`
	Name            scalarText      `json:"name"`
	Product         json.RawMessage `json:"product"`
	Price           json.RawMessage `json:"price,omitempty"`
}

// UnmarshalJSON decodes the known fields and keeps a copy of data. Scalar
// ids and names are read as their JSON text, so {"selectedProduct": 42}
// yields ID "42". A "product" value that is not a media object leaves
// ImageURL empty.
func (p *Product) UnmarshalJSON(data []byte) error {
	var f feedRecord
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	var media struct {
		Image scalarText `json:"image"`
	}
	if len(f.Product) > 0 {
		_ = json.Unmarshal(f.Product, &media)
	}
	p.SelectedProduct = string(f.SelectedProduct)
	p.Name = string(f.Name)
	p.Product = ProductMedia{Image: string(media.Image)}
	p.Price = f.Price
	p.raw = append(p.raw[:0], data...)
	return nil
}

// scalarText decodes a JSON string, number or boolean into its text.
// null, objects and arrays decode to "".
type scalarText string

func (t *scalarText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		*t = ""
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = scalarText(s)
	case '{', '[', 'n':
		*t = ""
	default:
		*t = scalarText(data)
	}
	return nil
}

// MarshalJSON re-emits the record as received, or the known fields for
// products built in code.
func (p Product) MarshalJSON() ([]byte, error) {
	if len(p.raw) > 0 {
		return p.raw, nil
	}
	return json.Marshal(productFields{
		SelectedProduct: p.SelectedProduct,
		Name:            p.Name,
		Product:         p.Product,
		Price:           p.Price,
	})
}

// Catalog is a decoded product feed response. Body is the response as
// received, served verbatim by GET /api/products.
type Catalog struct {
	Products []Product
	Body     json.RawMessage
}

// ParseCatalog decodes a feed body of the form {"products": [...], ...}.
func ParseCatalog(body []byte) (*Catalog, error) {
	var envelope struct {
		Products []Product `json:"products"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if envelope.Products == nil {
		envelope.Products = []Product{}
	}
	return &Catalog{
		Products: envelope.Products,
		Body:     json.RawMessage(bytes.TrimSpace(body)),
	}, nil
}
