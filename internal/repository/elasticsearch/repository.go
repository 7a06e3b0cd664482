package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

const system = "elasticsearch"

// Config configures the Elasticsearch repository.
type Config struct {
	URL   string
	Index string
	// Transport overrides the HTTP transport, mainly for tests.
	Transport http.RoundTripper
}

// Repository is an Elasticsearch-backed WishlistRepository.
type Repository struct {
	client    *elasticsearch.Client
	indexName string
	logger    *slog.Logger
}

var _ repository.WishlistRepository = (*Repository)(nil)

// document is the stored shape of a wishlist entry.
type document struct {
	ProductID string    `json:"productId"`
	Timestamp time.Time `json:"timestamp"`
}

type esIndexResponse struct {
	ID     string `json:"_id"`
	Result string `json:"result"`
}

type esCountResponse struct {
	Count int `json:"count"`
}

type esSearchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string   `json:"_id"`
			Source document `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

type esDeleteByQueryResponse struct {
	Deleted  int `json:"deleted"`
	Failures []struct {
		Cause struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"cause"`
	} `json:"failures"`
}

type esErrorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
	Status int `json:"status"`
}

// New creates the repository and makes sure the index exists with the
// wishlist mapping.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Repository, error) {
	if cfg.Index == "" {
		cfg.Index = DefaultIndexName
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Transport: cfg.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: create client: %w", err)
	}

	r := &Repository{
		client:    client,
		indexName: cfg.Index,
		logger:    logger,
	}

	if err := r.ensureIndex(ctx); err != nil {
		return nil, apperrors.StoreUnavailable(fmt.Errorf("elasticsearch: ensure index: %w", err))
	}

	return r, nil
}

// Index returns the index name.
func (r *Repository) Index() string {
	return r.indexName
}

// Ping checks whether the Elasticsearch cluster is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	res, err := r.client.Ping(r.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping: %w", err)
	}
	defer closeBody(res)

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping: unexpected status %s", res.Status())
	}
	return nil
}

func (r *Repository) ensureIndex(ctx context.Context) error {
	res, err := r.client.Indices.Exists([]string{r.indexName}, r.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index exists: %w", err)
	}
	closeBody(res)

	if res.StatusCode == http.StatusOK {
		r.logger.DebugContext(ctx, "elasticsearch index already exists", slog.String("index", r.indexName))
		return nil
	}

	res, err = r.client.Indices.Create(
		r.indexName,
		r.client.Indices.Create.WithBody(strings.NewReader(indexMapping)),
		r.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer closeBody(res)

	if res.IsError() {
		// Another instance may have created it in the meantime.
		if errType, _ := decodeError(res); errType == "resource_already_exists_exception" {
			return nil
		}
		return responseError("create index", res)
	}

	r.logger.InfoContext(ctx, "elasticsearch index created", slog.String("index", r.indexName))
	return nil
}

// Add indexes a new entry with an auto-generated id. The call waits for a
// refresh so a following Exists observes the entry.
func (r *Repository) Add(ctx context.Context, productID string) (id string, err error) {
	ctx, end := database.TraceOperation(ctx, system, "index", r.indexName)
	defer func() { end(err) }()

	data, err := json.Marshal(document{ProductID: productID, Timestamp: time.Now().UTC()})
	if err != nil {
		return "", fmt.Errorf("elasticsearch add: marshal entry: %w", err)
	}

	res, err := r.client.Index(
		r.indexName,
		bytes.NewReader(data),
		r.client.Index.WithRefresh("wait_for"),
		r.client.Index.WithContext(ctx),
	)
	if err != nil {
		return "", storeError(ctx, "elasticsearch add", err)
	}
	defer closeBody(res)

	if res.IsError() {
		return "", apperrors.StoreUnavailable(responseError("elasticsearch add", res))
	}

	var out esIndexResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", apperrors.StoreUnavailable(fmt.Errorf("elasticsearch add: decode response: %w", err))
	}

	r.logger.DebugContext(ctx, "wishlist entry indexed",
		slog.String("id", out.ID),
		slog.String("product_id", productID),
	)
	return out.ID, nil
}

// Exists counts entries with an exact productId match.
func (r *Repository) Exists(ctx context.Context, productID string) (found bool, err error) {
	query := termQuery(productID)
	ctx, end := database.TraceOperation(ctx, system, "count", string(query))
	defer func() { end(err) }()

	res, err := r.client.Count(
		r.client.Count.WithIndex(r.indexName),
		r.client.Count.WithBody(bytes.NewReader(query)),
		r.client.Count.WithContext(ctx),
	)
	if err != nil {
		return false, storeError(ctx, "elasticsearch exists", err)
	}
	defer closeBody(res)

	if res.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if res.IsError() {
		return false, apperrors.StoreUnavailable(responseError("elasticsearch exists", res))
	}

	var out esCountResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return false, apperrors.StoreUnavailable(fmt.Errorf("elasticsearch exists: decode response: %w", err))
	}
	return out.Count > 0, nil
}

// List returns up to limit entries using a match_all search.
func (r *Repository) List(ctx context.Context, limit int) (entries []domain.WishlistEntry, err error) {
	if limit <= 0 {
		limit = repository.DefaultListLimit
	}
	ctx, end := database.TraceOperation(ctx, system, "search", fmt.Sprintf("match_all size=%d", limit))
	defer func() { end(err) }()

	res, err := r.client.Search(
		r.client.Search.WithIndex(r.indexName),
		r.client.Search.WithBody(strings.NewReader(`{"query":{"match_all":{}}}`)),
		r.client.Search.WithSize(limit),
		r.client.Search.WithContext(ctx),
	)
	if err != nil {
		return nil, storeError(ctx, "elasticsearch list", err)
	}
	defer closeBody(res)

	if res.StatusCode == http.StatusNotFound {
		return []domain.WishlistEntry{}, nil
	}
	if res.IsError() {
		return nil, apperrors.StoreUnavailable(responseError("elasticsearch list", res))
	}

	var out esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, apperrors.StoreUnavailable(fmt.Errorf("elasticsearch list: decode response: %w", err))
	}

	entries = make([]domain.WishlistEntry, 0, len(out.Hits.Hits))
	for _, hit := range out.Hits.Hits {
		entries = append(entries, domain.WishlistEntry{
			ID:        hit.ID,
			ProductID: hit.Source.ProductID,
			Timestamp: hit.Source.Timestamp,
		})
	}
	return entries, nil
}

// RemoveByProductID deletes every entry for productID with _delete_by_query.
// Version conflicts are skipped and the index is refreshed before returning.
func (r *Repository) RemoveByProductID(ctx context.Context, productID string) (removed int, err error) {
	query := termQuery(productID)
	ctx, end := database.TraceOperation(ctx, system, "delete_by_query", string(query))
	defer func() { end(err) }()

	res, err := r.client.DeleteByQuery(
		[]string{r.indexName},
		bytes.NewReader(query),
		r.client.DeleteByQuery.WithRefresh(true),
		r.client.DeleteByQuery.WithConflicts("proceed"),
		r.client.DeleteByQuery.WithContext(ctx),
	)
	if err != nil {
		return 0, storeError(ctx, "elasticsearch remove", err)
	}
	defer closeBody(res)

	if res.StatusCode == http.StatusNotFound {
		return 0, nil
	}
	if res.IsError() {
		return 0, apperrors.StoreUnavailable(responseError("elasticsearch remove", res))
	}

	var out esDeleteByQueryResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return 0, apperrors.StoreUnavailable(fmt.Errorf("elasticsearch remove: decode response: %w", err))
	}
	if len(out.Failures) > 0 {
		r.logger.WarnContext(ctx, "delete by query reported failures",
			slog.String("product_id", productID),
			slog.Int("failures", len(out.Failures)),
			slog.String("first_reason", out.Failures[0].Cause.Reason),
		)
	}

	r.logger.DebugContext(ctx, "wishlist entries removed",
		slog.String("product_id", productID),
		slog.Int("removed", out.Deleted),
	)
	return out.Deleted, nil
}

// DeleteIndex drops the index. Used by integration tests.
func (r *Repository) DeleteIndex(ctx context.Context) error {
	res, err := r.client.Indices.Delete([]string{r.indexName}, r.client.Indices.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("delete index: %w", err)
	}
	defer closeBody(res)

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("delete index", res)
	}
	return nil
}

func termQuery(productID string) []byte {
	q, _ := json.Marshal(map[string]any{
		"query": map[string]any{
			"term": map[string]any{"productId": productID},
		},
	})
	return q
}

// storeError wraps transport failures. Context cancellation is passed through
// unchanged so callers can tell it apart from an unreachable cluster.
func storeError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", op, ctxErr)
	}
	return apperrors.StoreUnavailable(fmt.Errorf("%s: %w", op, err))
}

func decodeError(res *esapi.Response) (string, string) {
	body, _ := io.ReadAll(io.LimitReader(res.Body, 64<<10))
	var errResp esErrorResponse
	if json.Unmarshal(body, &errResp) == nil && errResp.Error.Type != "" {
		return errResp.Error.Type, errResp.Error.Reason
	}
	return "", strings.TrimSpace(string(body))
}

func responseError(op string, res *esapi.Response) error {
	errType, reason := decodeError(res)
	if errType != "" {
		return fmt.Errorf("%s: %s: %s", op, errType, reason)
	}
	return fmt.Errorf("%s: unexpected status %s", op, res.Status())
}

func closeBody(res *esapi.Response) {
	if res != nil && res.Body != nil {
		_, _ = io.Copy(io.Discard, res.Body)
		_ = res.Body.Close()
	}
}
