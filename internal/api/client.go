// Package api is the HTTP client for the review backend. It only
// moves JSON-shaped records; all policy lives in the coordinator.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"review-thread/internal/models"
	"review-thread/internal/utils"
)

// Endpoints of the review backend. Every call is a POST with a JSON
// body carrying the session token, plus a Bearer header.
const (
	endpointViewArticle   = "/article/view"
	endpointAddComment    = "/comment/add"
	endpointEditComment   = "/comment/edit/update"
	endpointDeleteComment = "/comment/delete"
	endpointAddRating     = "/rating/add"
	endpointEditRating    = "/rating/edit/update"
)

type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
		log: log.With().Str("component", "api-client").Logger(),
	}
}

// ViewArticle fetches the full snapshot for one article.
func (c *Client) ViewArticle(ctx context.Context, token, articleID string) (*models.SnapshotResponse, error) {
	return c.post(ctx, endpointViewArticle, token, map[string]interface{}{
		"token":      token,
		"article_id": articleID,
	})
}

// AddComment posts a root comment when parentCommentID is empty, or a
// reply when it is not. Same endpoint either way.
func (c *Client) AddComment(ctx context.Context, token, articleID, content, parentCommentID string) (*models.SnapshotResponse, error) {
	return c.post(ctx, endpointAddComment, token, map[string]interface{}{
		"token":             token,
		"article_id":        articleID,
		"parent_comment_id": parentCommentID,
		"comment_content":   content,
	})
}

// EditComment replaces the content of an owned comment.
func (c *Client) EditComment(ctx context.Context, token, articleID, commentID, content string) (*models.SnapshotResponse, error) {
	return c.post(ctx, endpointEditComment, token, map[string]interface{}{
		"token":           token,
		"article_id":      articleID,
		"comment_id":      commentID,
		"comment_content": content,
	})
}

// DeleteComment removes an owned comment. The backend cascades the
// delete to all descendant replies.
func (c *Client) DeleteComment(ctx context.Context, token, commentID string) (*models.SnapshotResponse, error) {
	return c.post(ctx, endpointDeleteComment, token, map[string]interface{}{
		"token":      token,
		"comment_id": commentID,
	})
}

// AddRating submits a first rating for the article.
func (c *Client) AddRating(ctx context.Context, token, articleID string, value int) (*models.SnapshotResponse, error) {
	return c.post(ctx, endpointAddRating, token, map[string]interface{}{
		"token":        token,
		"article_id":   articleID,
		"rating_value": value,
	})
}

// EditRating replaces the value of an existing owned rating.
func (c *Client) EditRating(ctx context.Context, token, ratingID string, value int) (*models.SnapshotResponse, error) {
	return c.post(ctx, endpointEditRating, token, map[string]interface{}{
		"token":        token,
		"rating_id":    ratingID,
		"rating_value": value,
	})
}

func (c *Client) post(ctx context.Context, endpoint, token string, data interface{}) (*models.SnapshotResponse, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return nil, utils.NewBackendUnavailableError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewBuffer(body))
	if err != nil {
		return nil, utils.NewBackendUnavailableError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Warn().Str("endpoint", endpoint).Err(err).Msg("request failed")
		return nil, utils.NewBackendUnavailableError(err)
	}
	defer resp.Body.Close()

	// Error statuses still carry a confirmation envelope when the
	// backend produced them; only fall back to a transport error when
	// the body is not parseable.
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, utils.NewBackendUnavailableError(err)
	}

	var snapshot models.SnapshotResponse
	if err := json.Unmarshal(raw, &snapshot); err != nil || snapshot.Confirmation == "" {
		c.log.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Msg("unparseable backend response")
		return nil, utils.NewBackendUnavailableError(err)
	}

	c.log.Debug().
		Str("endpoint", endpoint).
		Str("confirmation", snapshot.Confirmation).
		Dur("elapsed", time.Since(start)).
		Msg("backend call")
	return &snapshot, nil
}

// SnapshotError maps a confirmation discriminator to the engine's
// failure taxonomy. Returns nil for "successful".
func SnapshotError(resp *models.SnapshotResponse) error {
	switch resp.Confirmation {
	case models.ConfirmationSuccessful:
		return nil
	case models.ConfirmationTokenInvalid:
		return utils.NewSessionInvalidError("backend rejected token")
	case models.ConfirmationAlreadyRated:
		return utils.NewAppError(utils.ErrAlreadyRated, "identity has already rated this article", nil)
	case models.ConfirmationBackendError:
		return utils.NewBackendUnavailableError(nil)
	default:
		return utils.NewBackendUnavailableError(nil)
	}
}
