// internal/workers/query-router/invalidate-cache/models.go
package invalidatecache

// Input names why the dataset changed. It is only logged.
type Input struct {
	Reason string `json:"reason,omitempty"`
	Source string `json:"source,omitempty"`
}

type Output struct {
	Purged        int    `json:"purged"`
	InvalidatedAt string `json:"invalidatedAt"`
}
