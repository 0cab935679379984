package instance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetIDPrefersEnv(t *testing.T) {
	t.Setenv(EnvWorkerID, "cron-7")
	assert.Equal(t, "cron-7", GetID())
}

func TestGetIDFallsBack(t *testing.T) {
	t.Setenv(EnvWorkerID, "  ")
	assert.NotEmpty(t, GetID())
}
