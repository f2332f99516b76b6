package redisx

import "time"

const (
	// Cached JSON of GET /sweets; invalidated on any catalog or stock mutation.
	KeySweetsList = "sweets:all"

	// Cache status per order: order_status:{order_id} -> {"status": "..."}
	KeyOrderStatus = "order_status:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Purchase counter per sweet, maintained by the auditor.
	KeyPurchases = "stats:purchases:%s"

	// Set of sweet ids at or below the low-stock threshold.
	KeyLowStock = "stock:low"
)

var (
	TTLSweetsList  = 30 * time.Second
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
