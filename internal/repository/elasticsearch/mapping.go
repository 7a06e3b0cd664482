package elasticsearch

// DefaultIndexName is the index holding wishlist entries.
const DefaultIndexName = "wishlist"

// indexMapping keeps productId as an exact keyword so term queries match the
// identifier verbatim.
const indexMapping = `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0
  },
  "mappings": {
    "dynamic": "strict",
    "properties": {
      "productId": { "type": "keyword" },
      "timestamp": { "type": "date" }
    }
  }
}`
