package redis

import "fmt"

// Key construction helpers for the hydromind key-value schema

// ModelKey returns the key holding serialized model weights
// Pattern: model:{name}
func ModelKey(name string) string {
	return fmt.Sprintf("model:%s", name)
}

// EventHistoryKey returns the key for raw event history (sorted set scored by
// unix milliseconds)
// Pattern: events:{kind}
func EventHistoryKey(kind string) string {
	return fmt.Sprintf("events:%s", kind)
}

// InsightKey returns the key for the cached insight report (hash)
// Pattern: insight:{name}
func InsightKey(name string) string {
	return fmt.Sprintf("insight:%s", name)
}
