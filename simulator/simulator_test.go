package simulator

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"review-thread/internal/api"
	"review-thread/internal/backendtest"
	"review-thread/internal/config"
	"review-thread/internal/utils"
)

func TestSimulationSmoke(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping simulation in short mode")
	}

	backend := backendtest.NewServer()
	server := httptest.NewServer(backend.Handler())
	defer server.Close()

	cfg := &config.SimulatorConfig{
		NumReviewers:     3,
		NumArticles:      2,
		RunTime:          2 * time.Second,
		CommentFrequency: 0.5,
		RatingFrequency:  0.3,
	}

	client := api.NewClient(server.URL, 5*time.Second, zerolog.Nop())
	system := actor.NewActorSystem()
	sim := New(cfg, system, client, backend, utils.NewMetricsCollector(), zerolog.Nop())

	err := sim.Run(context.Background())
	require.NoError(t, err)

	sim.stats.mu.Lock()
	defer sim.stats.mu.Unlock()
	assert.Greater(t, sim.stats.TotalActions, int64(0))
	assert.Equal(t, sim.stats.TotalActions,
		sim.stats.SuccessActions+sim.stats.FailedActions+sim.stats.BlockedActions)
	assert.Greater(t, sim.stats.SuccessActions, int64(0))
}
