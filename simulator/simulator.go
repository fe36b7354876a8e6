// Package simulator drives randomized reviewer traffic through the
// engine, against the embedded stub backend or any server speaking
// the same protocol. Used for soak runs and latency measurements.
package simulator

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"review-thread/internal/api"
	"review-thread/internal/backendtest"
	"review-thread/internal/config"
	"review-thread/internal/coordinator"
	"review-thread/internal/engine"
	"review-thread/internal/utils"
)

// SimulationStats aggregates the outcome of every action taken.
type SimulationStats struct {
	mu             sync.Mutex
	StartTime      time.Time
	TotalActions   int64
	SuccessActions int64
	FailedActions  int64
	BlockedActions int64
	TotalComments  int64
	TotalReplies   int64
	TotalEdits     int64
	TotalDeletes   int64
	TotalRatings   int64
}

func (st *SimulationStats) record(err error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.TotalActions++
	switch {
	case err == nil:
		st.SuccessActions++
	case utils.IsErrorCode(err, utils.ErrAlreadyRated),
		utils.IsErrorCode(err, utils.ErrSubmissionInFlight),
		utils.IsErrorCode(err, utils.ErrValidationRejected):
		st.BlockedActions++
	default:
		st.FailedActions++
	}
}

func (st *SimulationStats) count(counter *int64) {
	st.mu.Lock()
	defer st.mu.Unlock()
	*counter++
}

// Reviewer is one simulated user: a registered identity with its own
// engine instance, the way each browser session has its own client.
type Reviewer struct {
	Email    string
	Username string
	Token    string

	engine    *engine.Engine
	openViews map[string]bool
	rng       *rand.Rand
}

// Simulator wires reviewers, articles and the shared actor system.
type Simulator struct {
	cfg     *config.SimulatorConfig
	system  *actor.ActorSystem
	client  *api.Client
	backend *backendtest.Server
	metrics *utils.MetricsCollector
	log     zerolog.Logger

	stats     *SimulationStats
	reviewers []*Reviewer
	articles  []string
}

func New(cfg *config.SimulatorConfig, system *actor.ActorSystem, client *api.Client, backend *backendtest.Server, metrics *utils.MetricsCollector, log zerolog.Logger) *Simulator {
	return &Simulator{
		cfg:     cfg,
		system:  system,
		client:  client,
		backend: backend,
		metrics: metrics,
		log:     log.With().Str("component", "simulator").Logger(),
		stats:   &SimulationStats{StartTime: time.Now()},
	}
}

// Run initializes reviewers and articles, then drives activity until
// the context is done or the configured run time elapses.
func (s *Simulator) Run(ctx context.Context) error {
	runCtx, cancel := context.WithTimeout(ctx, s.cfg.RunTime)
	defer cancel()

	s.initialize()
	s.log.Info().
		Int("reviewers", len(s.reviewers)).
		Int("articles", len(s.articles)).
		Dur("run_time", s.cfg.RunTime).
		Msg("simulation starting")

	var wg sync.WaitGroup
	for _, reviewer := range s.reviewers {
		wg.Add(1)
		go func(r *Reviewer) {
			defer wg.Done()
			s.runReviewer(runCtx, r)
		}(reviewer)
	}
	wg.Wait()

	s.teardown()
	s.report()
	return nil
}

func (s *Simulator) initialize() {
	for i := 0; i < s.cfg.NumArticles; i++ {
		articleID := s.backend.AddArticle(
			"Simulated product "+uuid.NewString()[:8],
			"Seeded article body for load runs.",
			"simulation",
		)
		s.articles = append(s.articles, articleID)
	}

	for i := 0; i < s.cfg.NumReviewers; i++ {
		suffix := uuid.NewString()[:8]
		email := "reviewer-" + suffix + "@example.com"
		username := "reviewer_" + suffix
		token := s.backend.RegisterUser(email, username)

		// Every reviewer gets its own coordinator and engine: guards
		// and view state are per client session, never shared between
		// users.
		coord := coordinator.New(s.client, s.metrics, s.log)
		s.reviewers = append(s.reviewers, &Reviewer{
			Email:     email,
			Username:  username,
			Token:     token,
			engine:    engine.NewEngine(s.system, coord, s.log),
			openViews: make(map[string]bool),
			rng:       rand.New(rand.NewSource(time.Now().UnixNano() + int64(i))),
		})
	}
}

func (s *Simulator) teardown() {
	for _, reviewer := range s.reviewers {
		for articleID := range reviewer.openViews {
			reviewer.engine.CloseView(articleID)
		}
	}
}

func (s *Simulator) report() {
	s.stats.mu.Lock()
	defer s.stats.mu.Unlock()

	s.log.Info().
		Dur("elapsed", time.Since(s.stats.StartTime)).
		Int64("actions", s.stats.TotalActions).
		Int64("succeeded", s.stats.SuccessActions).
		Int64("failed", s.stats.FailedActions).
		Int64("blocked", s.stats.BlockedActions).
		Int64("comments", s.stats.TotalComments).
		Int64("replies", s.stats.TotalReplies).
		Int64("edits", s.stats.TotalEdits).
		Int64("deletes", s.stats.TotalDeletes).
		Int64("ratings", s.stats.TotalRatings).
		Msg("simulation finished")
}
