package storefront

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/httpclient"
)

const serviceName = "storefront-api"

// WishlistAPI is the part of the storefront API a Card talks to.
type WishlistAPI interface {
	Add(ctx context.Context, productID string) (string, error)
	Check(ctx context.Context, productID string) (bool, error)
	Remove(ctx context.Context, productID string) (int, error)
}

// API is the storefront HTTP API as seen by the page views.
type API interface {
	WishlistAPI
	Products(ctx context.Context) ([]domain.Product, error)
	Wishlist(ctx context.Context) ([]domain.Product, error)
}

// Client calls the storefront HTTP API.
type Client struct {
	http    *httpclient.Client
	baseURL string
}

var _ API = (*Client)(nil)

// NewClient creates an API client for baseURL, e.g. "http://localhost:5000".
// A nil hc uses httpclient defaults.
func NewClient(baseURL string, hc *httpclient.Client) *Client {
	if hc == nil {
		hc = httpclient.New(httpclient.DefaultConfig())
	}
	return &Client{
		http:    hc,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

type productIDBody struct {
	ProductID string `json:"productId"`
}

// Products returns the catalog served by GET /api/products.
func (c *Client) Products(ctx context.Context) ([]domain.Product, error) {
	var out struct {
		Products []domain.Product `json:"products"`
	}
	if err := c.http.DoJSON(ctx, http.MethodGet, c.baseURL+"/api/products", serviceName, nil, &out); err != nil {
		return nil, err
	}
	if out.Products == nil {
		out.Products = []domain.Product{}
	}
	return out.Products, nil
}

// Wishlist returns the enriched wishlist served by GET /api/wishlist.
func (c *Client) Wishlist(ctx context.Context) ([]domain.Product, error) {
	out := []domain.Product{}
	if err := c.http.DoJSON(ctx, http.MethodGet, c.baseURL+"/api/wishlist", serviceName, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Add adds productID to the wishlist and returns the new entry id.
func (c *Client) Add(ctx context.Context, productID string) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	err := c.http.DoJSON(ctx, http.MethodPost, c.baseURL+"/api/wishlist/add", serviceName, productIDBody{productID}, &out)
	if err != nil {
		return "", err
	}
	return out.ID, nil
}

// Check reports whether productID is in the wishlist.
func (c *Client) Check(ctx context.Context, productID string) (bool, error) {
	var out struct {
		IsInWishlist bool `json:"isInWishlist"`
	}
	u := c.baseURL + "/api/wishlist/check/" + url.PathEscape(productID)
	if err := c.http.DoJSON(ctx, http.MethodGet, u, serviceName, nil, &out); err != nil {
		return false, err
	}
	return out.IsInWishlist, nil
}

// Remove deletes every wishlist entry for productID and returns how many
// were removed.
func (c *Client) Remove(ctx context.Context, productID string) (int, error) {
	var out struct {
		Removed int `json:"removed"`
	}
	err := c.http.DoJSON(ctx, http.MethodDelete, c.baseURL+"/api/wishlist/remove", serviceName, productIDBody{productID}, &out)
	if err != nil {
		return 0, err
	}
	return out.Removed, nil
}
