// Package actors hosts the per-article-view actor. One actor owns all
// state for one open view; its mailbox is what makes every operation
// on a view strictly sequential.
package actors

import (
	"context"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/rs/zerolog"

	"review-thread/internal/coordinator"
	"review-thread/internal/models"
	"review-thread/internal/rating"
	"review-thread/internal/session"
	"review-thread/internal/thread"
	"review-thread/internal/utils"
)

// Message types for ArticleViewActor
type (
	// LoadViewMsg fetches the initial snapshot. Sent once by the
	// engine right after spawning the view.
	LoadViewMsg struct{}

	// RefreshMsg re-fetches the snapshot on demand.
	RefreshMsg struct{}

	SubmitCommentMsg struct {
		Content string `json:"content"`
	}

	StartReplyMsg struct {
		CommentID string `json:"commentId"`
	}

	SetReplyContentMsg struct {
		Content string `json:"content"`
	}

	SubmitReplyMsg struct {
		CommentID string `json:"commentId"`
	}

	CancelReplyMsg struct{}

	StartEditMsg struct {
		CommentID string `json:"commentId"`
	}

	SetEditContentMsg struct {
		Content string `json:"content"`
	}

	SaveEditMsg struct {
		CommentID string `json:"commentId"`
	}

	CancelEditMsg struct{}

	RequestDeleteMsg struct {
		CommentID string `json:"commentId"`
	}

	ConfirmDeleteMsg struct{}

	CancelDeleteMsg struct{}

	RequestRatingMsg struct {
		Value int `json:"value"`
	}

	ConfirmRatingMsg struct{}

	CancelRatingMsg struct{}

	RequestRatingEditMsg struct {
		Value int `json:"value"`
	}

	ConfirmRatingEditMsg struct{}

	CancelRatingEditMsg struct{}

	GetViewStateMsg struct{}
)

// ViewState is the rendered form of one article view: the rebuilt
// forest, the rating aggregate and the interaction state, all derived
// from the current snapshot.
type ViewState struct {
	ArticleID      string
	ArticleTitle   string
	ArticleContent string
	ViewerEmail    string
	Userclass      string

	Forest        []*models.CommentNode
	CommentCount  int
	RatingSummary rating.Summary
	ViewerRating  int
	HasRated      bool

	Mode            session.Mode
	EditingID       string
	ReplyingToID    string
	EditBuffer      string
	ReplyBuffer     string
	DeleteCandidate string
	PendingRating   int
}

// ArticleViewActor owns the snapshot and interaction state for one
// open article view. All fields are touched only from Receive.
type ArticleViewActor struct {
	articleID string
	token     string
	coord     *coordinator.Coordinator
	log       zerolog.Logger

	snapshot    *models.Snapshot
	forest      []*models.CommentNode
	summary     rating.Summary
	interaction *session.Interaction
}

func NewArticleViewActor(articleID, token string, coord *coordinator.Coordinator, log zerolog.Logger) actor.Actor {
	return &ArticleViewActor{
		articleID:   articleID,
		token:       token,
		coord:       coord,
		log:         log.With().Str("component", "view-actor").Str("article_id", articleID).Logger(),
		interaction: session.New(),
	}
}

func (a *ArticleViewActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		a.log.Debug().Msg("view opened")

	case *actor.Stopped:
		// Any response that arrives for a closed view goes to dead
		// letters; nothing here may be touched afterwards.
		a.log.Debug().Msg("view closed")

	case *LoadViewMsg, *RefreshMsg:
		a.handleLoad(ctx)

	case *SubmitCommentMsg:
		a.handleSubmitComment(ctx, msg)

	case *StartReplyMsg:
		a.interaction.StartReply(msg.CommentID)
		a.respondState(ctx)

	case *SetReplyContentMsg:
		a.interaction.ReplyBuffer = msg.Content
		a.respondState(ctx)

	case *SubmitReplyMsg:
		a.handleSubmitReply(ctx, msg)

	case *CancelReplyMsg:
		a.interaction.CancelReply()
		a.respondState(ctx)

	case *StartEditMsg:
		a.handleStartEdit(ctx, msg)

	case *SetEditContentMsg:
		a.interaction.EditBuffer = msg.Content
		a.respondState(ctx)

	case *SaveEditMsg:
		a.handleSaveEdit(ctx, msg)

	case *CancelEditMsg:
		a.interaction.CancelEdit()
		a.respondState(ctx)

	case *RequestDeleteMsg:
		a.handleRequestDelete(ctx, msg)

	case *ConfirmDeleteMsg:
		a.handleConfirmDelete(ctx)

	case *CancelDeleteMsg:
		a.interaction.CancelDeleteRequest()
		a.respondState(ctx)

	case *RequestRatingMsg:
		a.handleRequestRating(ctx, msg)

	case *ConfirmRatingMsg:
		a.handleConfirmRating(ctx)

	case *CancelRatingMsg:
		a.interaction.CancelRating()
		a.respondState(ctx)

	case *RequestRatingEditMsg:
		a.handleRequestRatingEdit(ctx, msg)

	case *ConfirmRatingEditMsg:
		a.handleConfirmRatingEdit(ctx)

	case *CancelRatingEditMsg:
		a.interaction.CancelRatingEdit()
		a.respondState(ctx)

	case *GetViewStateMsg:
		a.respondState(ctx)
	}
}

func (a *ArticleViewActor) handleLoad(ctx actor.Context) {
	snapshot, err := a.coord.FetchSnapshot(a.callContext(), a.token, a.articleID)
	if err != nil {
		ctx.Respond(asAppError(err))
		return
	}
	a.applySnapshot(snapshot)
	a.respondState(ctx)
}

func (a *ArticleViewActor) handleSubmitComment(ctx actor.Context, msg *SubmitCommentMsg) {
	snapshot, err := a.coord.SubmitComment(a.callContext(), a.token, a.articleID, msg.Content)
	if err != nil {
		ctx.Respond(asAppError(err))
		return
	}
	a.applySnapshot(snapshot)
	a.respondState(ctx)
}

func (a *ArticleViewActor) handleSubmitReply(ctx actor.Context, msg *SubmitReplyMsg) {
	content, err := a.interaction.BeginSubmitReply(msg.CommentID)
	if err != nil {
		ctx.Respond(asAppError(err))
		return
	}

	snapshot, err := a.coord.SubmitReply(a.callContext(), a.token, a.articleID, msg.CommentID, content)
	if err != nil {
		// Pre-call state is preserved: still Replying, buffer intact,
		// so the user can retry without retyping.
		ctx.Respond(asAppError(err))
		return
	}
	a.applySnapshot(snapshot)
	a.respondState(ctx)
}

func (a *ArticleViewActor) handleStartEdit(ctx actor.Context, msg *StartEditMsg) {
	record, found := a.findComment(msg.CommentID)
	if !found {
		ctx.Respond(utils.NewAppError(utils.ErrNotFound, "comment not found", nil))
		return
	}
	// Advisory ownership check; the backend enforces it again.
	if record.Identity() != a.viewerEmail() {
		ctx.Respond(utils.NewAppError(utils.ErrUnauthorized, "not the comment owner", nil))
		return
	}
	a.interaction.StartEdit(msg.CommentID, record.CommentContent)
	a.respondState(ctx)
}

func (a *ArticleViewActor) handleSaveEdit(ctx actor.Context, msg *SaveEditMsg) {
	content, err := a.interaction.BeginSaveEdit(msg.CommentID)
	if err != nil {
		ctx.Respond(asAppError(err))
		return
	}

	snapshot, err := a.coord.SaveEdit(a.callContext(), a.token, a.articleID, msg.CommentID, content)
	if err != nil {
		ctx.Respond(asAppError(err))
		return
	}
	a.applySnapshot(snapshot)
	a.respondState(ctx)
}

func (a *ArticleViewActor) handleRequestDelete(ctx actor.Context, msg *RequestDeleteMsg) {
	record, found := a.findComment(msg.CommentID)
	if !found {
		ctx.Respond(utils.NewAppError(utils.ErrNotFound, "comment not found", nil))
		return
	}
	if record.Identity() != a.viewerEmail() {
		ctx.Respond(utils.NewAppError(utils.ErrUnauthorized, "not the comment owner", nil))
		return
	}
	a.interaction.RequestDelete(msg.CommentID)
	a.respondState(ctx)
}

func (a *ArticleViewActor) handleConfirmDelete(ctx actor.Context) {
	commentID, err := a.interaction.ConfirmDelete()
	if err != nil {
		ctx.Respond(asAppError(err))
		return
	}

	snapshot, err := a.coord.DeleteComment(a.callContext(), a.token, commentID)
	if err != nil {
		// Restore the candidate so a transient failure can be retried
		// without a second two-step confirmation.
		a.interaction.RequestDelete(commentID)
		ctx.Respond(asAppError(err))
		return
	}
	a.applySnapshot(snapshot)
	a.respondState(ctx)
}

func (a *ArticleViewActor) handleRequestRating(ctx actor.Context, msg *RequestRatingMsg) {
	_, rated := a.summary.Lookup(a.viewerEmail())
	if err := a.interaction.RequestRating(msg.Value, rated); err != nil {
		ctx.Respond(asAppError(err))
		return
	}
	a.respondState(ctx)
}

func (a *ArticleViewActor) handleConfirmRating(ctx actor.Context) {
	value, err := a.interaction.ConfirmRating()
	if err != nil {
		ctx.Respond(asAppError(err))
		return
	}

	snapshot, err := a.coord.SubmitRating(a.callContext(), a.token, a.articleID, value)
	if err != nil {
		if !utils.IsErrorCode(err, utils.ErrAlreadyRated) {
			// Keep the staged value for a retry; pointless when the
			// backend says the identity has already rated.
			_ = a.interaction.RequestRating(value, false)
		}
		ctx.Respond(asAppError(err))
		return
	}
	a.applySnapshot(snapshot)
	a.respondState(ctx)
}

func (a *ArticleViewActor) handleRequestRatingEdit(ctx actor.Context, msg *RequestRatingEditMsg) {
	_, rated := a.summary.Lookup(a.viewerEmail())
	if err := a.interaction.RequestRatingEdit(msg.Value, rated); err != nil {
		ctx.Respond(asAppError(err))
		return
	}
	a.respondState(ctx)
}

func (a *ArticleViewActor) handleConfirmRatingEdit(ctx actor.Context) {
	value, err := a.interaction.ConfirmRatingEdit()
	if err != nil {
		ctx.Respond(asAppError(err))
		return
	}

	record, found := rating.RecordFor(a.ratings(), a.viewerEmail())
	if !found {
		ctx.Respond(utils.NewAppError(utils.ErrNotFound, "no existing rating for this identity", nil))
		return
	}

	snapshot, err := a.coord.EditRating(a.callContext(), a.token, record.RatingID, value)
	if err != nil {
		_ = a.interaction.RequestRatingEdit(value, true)
		ctx.Respond(asAppError(err))
		return
	}
	a.applySnapshot(snapshot)
	a.respondState(ctx)
}

// applySnapshot is the single place local state changes after a
// successful call: wholesale replacement, full recompute, interaction
// reset. Nothing is ever patched in place.
func (a *ArticleViewActor) applySnapshot(snapshot *models.Snapshot) {
	a.snapshot = snapshot
	a.forest = thread.BuildForest(snapshot.Comments)
	a.summary = rating.Aggregate(snapshot.Ratings)
	a.interaction.Reset()
}

func (a *ArticleViewActor) respondState(ctx actor.Context) {
	state := &ViewState{
		ArticleID:       a.articleID,
		Mode:            a.interaction.Mode(),
		EditingID:       a.interaction.EditingID(),
		ReplyingToID:    a.interaction.ReplyingToID(),
		EditBuffer:      a.interaction.EditBuffer,
		ReplyBuffer:     a.interaction.ReplyBuffer,
		DeleteCandidate: a.interaction.DeleteCandidate(),
		PendingRating:   a.interaction.PendingRating(),
	}

	if a.snapshot != nil {
		state.ArticleTitle = a.snapshot.ArticleTitle
		state.ArticleContent = a.snapshot.ArticleContent
		state.ViewerEmail = a.snapshot.ViewerEmail
		state.Userclass = a.snapshot.Userclass
		state.Forest = a.forest
		state.CommentCount = len(a.snapshot.Comments)
		state.RatingSummary = a.summary
		if value, ok := a.summary.Lookup(a.snapshot.ViewerEmail); ok {
			state.ViewerRating = value
			state.HasRated = true
		}
	}

	ctx.Respond(state)
}

func (a *ArticleViewActor) findComment(commentID string) (models.CommentRecord, bool) {
	if a.snapshot == nil {
		return models.CommentRecord{}, false
	}
	for _, record := range a.snapshot.Comments {
		if record.CommentID == commentID {
			return record, true
		}
	}
	return models.CommentRecord{}, false
}

func (a *ArticleViewActor) ratings() []models.RatingRecord {
	if a.snapshot == nil {
		return nil
	}
	return a.snapshot.Ratings
}

func (a *ArticleViewActor) viewerEmail() string {
	if a.snapshot == nil {
		return ""
	}
	return a.snapshot.ViewerEmail
}

// callContext is the context for one backend round trip. The HTTP
// client enforces the request timeout; the view has no cancellation
// of its own. A call in flight always runs to completion and its
// result is dropped if the view has been closed meanwhile.
func (a *ArticleViewActor) callContext() context.Context {
	return context.Background()
}

func asAppError(err error) *utils.AppError {
	if appErr, ok := err.(*utils.AppError); ok {
		return appErr
	}
	return utils.NewBackendUnavailableError(err)
}
