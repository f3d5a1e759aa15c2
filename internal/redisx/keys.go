package redisx

import "time"

const (
	// Storefront key-value entries: storefront:kv:{namespace}:{key} -> encoded value
	KeyKV = "storefront:kv:%s:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLDedup = 48 * time.Hour
)
