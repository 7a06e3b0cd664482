package elasticsearch_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// fakeCluster is a minimal Elasticsearch stand-in covering the endpoints the
// repository calls.
type fakeCluster struct {
	mu       sync.Mutex
	index    string
	exists   bool
	created  int
	nextID   int
	docs     map[string]map[string]any
	requests []string
	// failWith makes every document endpoint answer with this status.
	failWith int
}

func newFakeCluster(t *testing.T, index string) (*fakeCluster, *httptest.Server) {
	t.Helper()
	fc := &fakeCluster{index: index, docs: make(map[string]map[string]any)}
	srv := httptest.NewServer(http.HandlerFunc(fc.serve))
	t.Cleanup(srv.Close)
	return fc, srv
}

func (fc *fakeCluster) serve(w http.ResponseWriter, r *http.Request) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	fc.requests = append(fc.requests, r.Method+" "+r.URL.Path+"?"+r.URL.RawQuery)
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	body, _ := io.ReadAll(r.Body)
	path := strings.TrimPrefix(r.URL.Path, "/")

	switch {
	case path == "":
		writeJSON(w, http.StatusOK, map[string]any{"version": map[string]any{"number": "8.19.0"}})
		return
	case path == fc.index && r.Method == http.MethodHead:
		if fc.exists {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
		return
	case path == fc.index && r.Method == http.MethodPut:
		fc.exists = true
		fc.created++
		writeJSON(w, http.StatusOK, map[string]any{"acknowledged": true, "index": fc.index})
		return
	case path == fc.index && r.Method == http.MethodDelete:
		fc.exists = false
		fc.docs = make(map[string]map[string]any)
		writeJSON(w, http.StatusOK, map[string]any{"acknowledged": true})
		return
	}

	if fc.failWith != 0 {
		writeJSON(w, fc.failWith, map[string]any{
			"error":  map[string]any{"type": "cluster_block_exception", "reason": "blocked"},
			"status": fc.failWith,
		})
		return
	}
	if !fc.exists {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error":  map[string]any{"type": "index_not_found_exception", "reason": "no such index [" + fc.index + "]"},
			"status": 404,
		})
		return
	}

	switch path {
	case fc.index + "/_doc":
		var doc map[string]any
		if err := json.Unmarshal(body, &doc); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": map[string]any{"type": "parse_exception", "reason": err.Error()}})
			return
		}
		fc.nextID++
		id := fmt.Sprintf("doc-%d", fc.nextID)
		fc.docs[id] = doc
		writeJSON(w, http.StatusCreated, map[string]any{"_id": id, "result": "created"})
	case fc.index + "/_count":
		pid := termValue(body)
		n := 0
		for _, doc := range fc.docs {
			if doc["productId"] == pid {
				n++
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"count": n})
	case fc.index + "/_search":
		hits := make([]map[string]any, 0, len(fc.docs))
		for id, doc := range fc.docs {
			hits = append(hits, map[string]any{"_id": id, "_source": doc})
		}
		writeJSON(w, http.StatusOK, map[string]any{"hits": map[string]any{"hits": hits}})
	case fc.index + "/_delete_by_query":
		pid := termValue(body)
		n := 0
		for id, doc := range fc.docs {
			if doc["productId"] == pid {
				delete(fc.docs, id)
				n++
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": n, "failures": []any{}})
	default:
		writeJSON(w, http.StatusNotFound, map[string]any{"error": map[string]any{"type": "unknown", "reason": path}})
	}
}

func (fc *fakeCluster) lastRequest(prefix string) string {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	for i := len(fc.requests) - 1; i >= 0; i-- {
		if strings.HasPrefix(fc.requests[i], prefix) {
			return fc.requests[i]
		}
	}
	return ""
}

func termValue(body []byte) any {
	var q struct {
		Query struct {
			Term map[string]any `json:"term"`
		} `json:"query"`
	}
	_ = json.Unmarshal(body, &q)
	return q.Query.Term["productId"]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
