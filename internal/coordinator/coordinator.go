// Package coordinator turns validated user intents into exactly one
// backend request each and hands back the authoritative snapshot the
// backend returns. It never merges: on success the whole comment and
// rating state is replaced by the response, which keeps local and
// remote state from ever diverging.
package coordinator

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"review-thread/internal/api"
	"review-thread/internal/auth"
	"review-thread/internal/models"
	"review-thread/internal/utils"
)

// Content length bounds, counted in runes after trimming.
const (
	minContentLength = 1
	maxContentLength = 8192
)

// Operation names one mutation kind. Each kind has its own in-flight
// guard; a second submission of the same kind while one is pending is
// rejected synchronously, never queued.
type Operation string

const (
	OpFetch      Operation = "fetch"
	OpComment    Operation = "comment"
	OpReply      Operation = "reply"
	OpEdit       Operation = "edit"
	OpDelete     Operation = "delete"
	OpRating     Operation = "rating"
	OpRatingEdit Operation = "rating_edit"
)

// SnapshotAPI is the slice of the backend client the coordinator
// needs. Satisfied by *api.Client.
type SnapshotAPI interface {
	ViewArticle(ctx context.Context, token, articleID string) (*models.SnapshotResponse, error)
	AddComment(ctx context.Context, token, articleID, content, parentCommentID string) (*models.SnapshotResponse, error)
	EditComment(ctx context.Context, token, articleID, commentID, content string) (*models.SnapshotResponse, error)
	DeleteComment(ctx context.Context, token, commentID string) (*models.SnapshotResponse, error)
	AddRating(ctx context.Context, token, articleID string, value int) (*models.SnapshotResponse, error)
	EditRating(ctx context.Context, token, ratingID string, value int) (*models.SnapshotResponse, error)
}

type Coordinator struct {
	backend SnapshotAPI
	metrics *utils.MetricsCollector
	log     zerolog.Logger
	guards  *guardSet
}

func New(backend SnapshotAPI, metrics *utils.MetricsCollector, log zerolog.Logger) *Coordinator {
	return &Coordinator{
		backend: backend,
		metrics: metrics,
		log:     log.With().Str("component", "coordinator").Logger(),
		guards:  newGuardSet(),
	}
}

// IsSubmitting reports whether an operation of the given kind is in
// flight, for disabling the triggering control.
func (c *Coordinator) IsSubmitting(op Operation) bool {
	return c.guards.isHeld(op)
}

// FetchSnapshot loads the article's authoritative state.
func (c *Coordinator) FetchSnapshot(ctx context.Context, token, articleID string) (*models.Snapshot, error) {
	return c.run(ctx, OpFetch, token, func(ctx context.Context) (*models.SnapshotResponse, error) {
		return c.backend.ViewArticle(ctx, token, articleID)
	})
}

// SubmitComment posts a new root comment.
func (c *Coordinator) SubmitComment(ctx context.Context, token, articleID, content string) (*models.Snapshot, error) {
	if err := validateContent(content); err != nil {
		return nil, err
	}
	return c.run(ctx, OpComment, token, func(ctx context.Context) (*models.SnapshotResponse, error) {
		return c.backend.AddComment(ctx, token, articleID, content, "")
	})
}

// SubmitReply posts a reply under parentCommentID. Replies to replies
// are the same operation, so threads may nest arbitrarily deep.
func (c *Coordinator) SubmitReply(ctx context.Context, token, articleID, parentCommentID, content string) (*models.Snapshot, error) {
	if err := validateContent(content); err != nil {
		return nil, err
	}
	if parentCommentID == "" {
		return nil, utils.NewValidationError("reply requires a parent comment")
	}
	return c.run(ctx, OpReply, token, func(ctx context.Context) (*models.SnapshotResponse, error) {
		return c.backend.AddComment(ctx, token, articleID, content, parentCommentID)
	})
}

// SaveEdit replaces the content of an existing comment.
func (c *Coordinator) SaveEdit(ctx context.Context, token, articleID, commentID, content string) (*models.Snapshot, error) {
	if err := validateContent(content); err != nil {
		return nil, err
	}
	return c.run(ctx, OpEdit, token, func(ctx context.Context) (*models.SnapshotResponse, error) {
		return c.backend.EditComment(ctx, token, articleID, commentID, content)
	})
}

// DeleteComment removes a comment. The backend cascade-deletes all
// descendant replies; they simply vanish from the returned snapshot.
func (c *Coordinator) DeleteComment(ctx context.Context, token, commentID string) (*models.Snapshot, error) {
	return c.run(ctx, OpDelete, token, func(ctx context.Context) (*models.SnapshotResponse, error) {
		return c.backend.DeleteComment(ctx, token, commentID)
	})
}

// SubmitRating submits a first rating for the article.
func (c *Coordinator) SubmitRating(ctx context.Context, token, articleID string, value int) (*models.Snapshot, error) {
	if err := validateRating(value); err != nil {
		return nil, err
	}
	return c.run(ctx, OpRating, token, func(ctx context.Context) (*models.SnapshotResponse, error) {
		return c.backend.AddRating(ctx, token, articleID, value)
	})
}

// EditRating replaces the value of an existing rating.
func (c *Coordinator) EditRating(ctx context.Context, token, ratingID string, value int) (*models.Snapshot, error) {
	if err := validateRating(value); err != nil {
		return nil, err
	}
	if ratingID == "" {
		return nil, utils.NewValidationError("rating edit requires the existing rating id")
	}
	return c.run(ctx, OpRatingEdit, token, func(ctx context.Context) (*models.SnapshotResponse, error) {
		return c.backend.EditRating(ctx, token, ratingID, value)
	})
}

// run applies the shared call discipline: in-flight guard, local
// token expiry check, the backend round trip, confirmation mapping,
// metrics. Validation errors never get this far.
func (c *Coordinator) run(ctx context.Context, op Operation, token string, call func(context.Context) (*models.SnapshotResponse, error)) (*models.Snapshot, error) {
	if !c.guards.acquire(op) {
		return nil, utils.NewAppError(utils.ErrSubmissionInFlight,
			"a "+string(op)+" submission is already in flight", nil)
	}
	defer c.guards.release(op)

	c.metrics.IncrementRequests(string(op))
	start := time.Now()

	// A token that is demonstrably expired fails locally; there is no
	// point issuing a request the backend will reject.
	if auth.Expired(token) {
		err := utils.NewSessionInvalidError("token expired")
		c.fail(op, err, start)
		return nil, err
	}

	resp, err := call(ctx)
	if err != nil {
		c.fail(op, err, start)
		return nil, err
	}

	if err := api.SnapshotError(resp); err != nil {
		c.fail(op, err, start)
		return nil, err
	}

	c.metrics.AddOperationLatency(string(op), time.Since(start))
	c.log.Info().
		Str("operation", string(op)).
		Int("comments", len(resp.Comments)).
		Int("ratings", len(resp.Ratings)).
		Dur("elapsed", time.Since(start)).
		Msg("snapshot replaced")
	return resp.ToSnapshot(), nil
}

func (c *Coordinator) fail(op Operation, err error, start time.Time) {
	c.metrics.IncrementErrors(string(op), utils.ErrorCode(err))
	c.metrics.AddOperationLatency(string(op), time.Since(start))
	c.log.Warn().
		Str("operation", string(op)).
		Str("code", utils.ErrorCode(err)).
		Err(err).
		Msg("operation failed")
}

func validateContent(content string) error {
	trimmed := strings.TrimSpace(content)
	length := utf8.RuneCountInString(trimmed)
	if length < minContentLength {
		return utils.NewValidationError("content is empty")
	}
	if length > maxContentLength {
		return utils.NewValidationError("content exceeds 8192 characters")
	}
	return nil
}

func validateRating(value int) error {
	if value < 1 || value > 5 {
		return utils.NewValidationError("rating must be between 1 and 5")
	}
	return nil
}
