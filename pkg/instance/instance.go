package instance

import (
	"os"
	"strings"
)

// EnvWorkerID names the variable that identifies a worker process.
const EnvWorkerID = "RESTAURANT_WORKER_ID"

// GetID returns the worker identity used for lock ownership and log fields.
// It falls back to the hostname, then to a static default.
func GetID() string {
	if id := strings.TrimSpace(os.Getenv(EnvWorkerID)); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "worker-0"
}
