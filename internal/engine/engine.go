// Package engine fronts the actor system: one ArticleViewActor per
// open article view, addressed by article id. Views share nothing;
// closing a view discards its snapshot and interaction state.
package engine

import (
	"sync"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"review-thread/internal/coordinator"
	"review-thread/internal/engine/actors"
	"review-thread/internal/utils"
)

const askTimeout = 30 * time.Second

// Engine owns the actor system and the article-id → view mapping.
type Engine struct {
	system *actor.ActorSystem
	root   *actor.RootContext
	coord  *coordinator.Coordinator
	log    zerolog.Logger

	mu    sync.Mutex
	views map[string]*actor.PID
}

func NewEngine(system *actor.ActorSystem, coord *coordinator.Coordinator, log zerolog.Logger) *Engine {
	return &Engine{
		system: system,
		root:   system.Root,
		coord:  coord,
		log:    log.With().Str("component", "engine").Logger(),
		views:  make(map[string]*actor.PID),
	}
}

// OpenView spawns a view for the article, loads the initial snapshot
// and returns the rendered state. Opening an article that already has
// a view returns the existing view's state.
func (e *Engine) OpenView(articleID, token string) (*actors.ViewState, error) {
	e.mu.Lock()
	if pid, open := e.views[articleID]; open {
		e.mu.Unlock()
		return e.ask(pid, &actors.GetViewStateMsg{})
	}

	props := actor.PropsFromProducer(func() actor.Actor {
		return actors.NewArticleViewActor(articleID, token, e.coord, e.log)
	})
	pid := e.root.Spawn(props)
	e.views[articleID] = pid
	e.mu.Unlock()

	viewID := uuid.New()
	e.log.Info().
		Str("article_id", articleID).
		Str("view_id", viewID.String()).
		Msg("view opened")

	state, err := e.ask(pid, &actors.LoadViewMsg{})
	if err != nil {
		// The initial load failed; tear the view back down so a later
		// open retries from scratch.
		e.CloseView(articleID)
		return nil, err
	}
	return state, nil
}

// CloseView stops the article's view actor. Responses that arrive
// after the stop go to dead letters and are ignored.
func (e *Engine) CloseView(articleID string) {
	e.mu.Lock()
	pid, open := e.views[articleID]
	if open {
		delete(e.views, articleID)
	}
	e.mu.Unlock()

	if open {
		e.root.Stop(pid)
		e.log.Info().Str("article_id", articleID).Msg("view closed")
	}
}

// Do sends an intent message to the article's view and waits for the
// resulting state.
func (e *Engine) Do(articleID string, msg interface{}) (*actors.ViewState, error) {
	e.mu.Lock()
	pid, open := e.views[articleID]
	e.mu.Unlock()

	if !open {
		return nil, utils.NewAppError(utils.ErrNotFound, "no open view for article "+articleID, nil)
	}
	return e.ask(pid, msg)
}

func (e *Engine) ask(pid *actor.PID, msg interface{}) (*actors.ViewState, error) {
	future := e.root.RequestFuture(pid, msg, askTimeout)
	result, err := future.Result()
	if err != nil {
		return nil, utils.NewBackendUnavailableError(err)
	}

	switch typed := result.(type) {
	case *actors.ViewState:
		return typed, nil
	case *utils.AppError:
		return nil, typed
	default:
		return nil, utils.NewBackendUnavailableError(nil)
	}
}
