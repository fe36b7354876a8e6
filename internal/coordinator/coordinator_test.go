package coordinator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"review-thread/internal/api"
	"review-thread/internal/backendtest"
	"review-thread/internal/utils"
)

type fixture struct {
	backend  *backendtest.Server
	server   *httptest.Server
	coord    *Coordinator
	requests *int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	backend := backendtest.NewServer()
	var requests int64
	handler := backend.Handler()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&requests, 1)
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(server.Close)

	client := api.NewClient(server.URL, 5*time.Second, zerolog.Nop())
	coord := New(client, utils.NewMetricsCollector(), zerolog.Nop())

	return &fixture{backend: backend, server: server, coord: coord, requests: &requests}
}

func (f *fixture) requestCount() int64 {
	return atomic.LoadInt64(f.requests)
}

func TestFetchSnapshot(t *testing.T) {
	f := newFixture(t)
	token := f.backend.RegisterUser("alice@example.com", "alice")
	articleID := f.backend.AddArticle("Widget", "A fine widget.", "gadgets")

	snapshot, err := f.coord.FetchSnapshot(context.Background(), token, articleID)
	require.NoError(t, err)
	assert.Equal(t, "Widget", snapshot.ArticleTitle)
	assert.Equal(t, "alice@example.com", snapshot.ViewerEmail)
	assert.Empty(t, snapshot.Comments)
	assert.Empty(t, snapshot.Ratings)
}

func TestSubmitCommentReplacesSnapshot(t *testing.T) {
	f := newFixture(t)
	token := f.backend.RegisterUser("alice@example.com", "alice")
	articleID := f.backend.AddArticle("Widget", "Body", "gadgets")

	snapshot, err := f.coord.SubmitComment(context.Background(), token, articleID, "great widget")
	require.NoError(t, err)
	require.Len(t, snapshot.Comments, 1)
	assert.Equal(t, "great widget", snapshot.Comments[0].CommentContent)
	assert.Equal(t, "alice@example.com", snapshot.Comments[0].UserEmail)
	assert.True(t, snapshot.Comments[0].IsRoot())
}

func TestValidationRejectedWithoutNetworkCall(t *testing.T) {
	f := newFixture(t)
	token := f.backend.RegisterUser("alice@example.com", "alice")
	articleID := f.backend.AddArticle("Widget", "Body", "gadgets")

	// Empty after trimming.
	_, err := f.coord.SubmitComment(context.Background(), token, articleID, "   \n\t ")
	assert.True(t, utils.IsErrorCode(err, utils.ErrValidationRejected))

	// One rune over the limit.
	_, err = f.coord.SubmitComment(context.Background(), token, articleID, strings.Repeat("x", 8193))
	assert.True(t, utils.IsErrorCode(err, utils.ErrValidationRejected))

	// Out-of-range ratings.
	_, err = f.coord.SubmitRating(context.Background(), token, articleID, 0)
	assert.True(t, utils.IsErrorCode(err, utils.ErrValidationRejected))
	_, err = f.coord.SubmitRating(context.Background(), token, articleID, 6)
	assert.True(t, utils.IsErrorCode(err, utils.ErrValidationRejected))

	// Rejections happen before any request is issued.
	assert.Equal(t, int64(0), f.requestCount())
}

func TestContentLengthBoundaries(t *testing.T) {
	f := newFixture(t)
	token := f.backend.RegisterUser("alice@example.com", "alice")
	articleID := f.backend.AddArticle("Widget", "Body", "gadgets")

	// Exactly at the limit passes; runes are counted, not bytes.
	_, err := f.coord.SubmitComment(context.Background(), token, articleID, strings.Repeat("é", 8192))
	assert.NoError(t, err)

	_, err = f.coord.SubmitComment(context.Background(), token, articleID, "x")
	assert.NoError(t, err)
}

func TestExpiredTokenFailsLocally(t *testing.T) {
	f := newFixture(t)
	f.backend.RegisterUser("alice@example.com", "alice")
	articleID := f.backend.AddArticle("Widget", "Body", "gadgets")
	expired := f.backend.ExpiredToken("alice@example.com")

	_, err := f.coord.FetchSnapshot(context.Background(), expired, articleID)
	assert.True(t, utils.IsErrorCode(err, utils.ErrSessionInvalid))
	assert.Equal(t, int64(0), f.requestCount())
}

func TestOpaqueTokenRejectedByBackend(t *testing.T) {
	f := newFixture(t)
	articleID := f.backend.AddArticle("Widget", "Body", "gadgets")

	// A token the local parser cannot read is sent anyway; the backend
	// has the final word.
	_, err := f.coord.FetchSnapshot(context.Background(), "not-a-jwt", articleID)
	assert.True(t, utils.IsErrorCode(err, utils.ErrSessionInvalid))
	assert.Equal(t, int64(1), f.requestCount())
}

func TestAlreadyRated(t *testing.T) {
	f := newFixture(t)
	token := f.backend.RegisterUser("alice@example.com", "alice")
	articleID := f.backend.AddArticle("Widget", "Body", "gadgets")

	snapshot, err := f.coord.SubmitRating(context.Background(), token, articleID, 4)
	require.NoError(t, err)
	require.Len(t, snapshot.Ratings, 1)

	_, err = f.coord.SubmitRating(context.Background(), token, articleID, 5)
	assert.True(t, utils.IsErrorCode(err, utils.ErrAlreadyRated))
}

func TestEditRating(t *testing.T) {
	f := newFixture(t)
	token := f.backend.RegisterUser("alice@example.com", "alice")
	articleID := f.backend.AddArticle("Widget", "Body", "gadgets")

	snapshot, err := f.coord.SubmitRating(context.Background(), token, articleID, 2)
	require.NoError(t, err)
	ratingID := snapshot.Ratings[0].RatingID

	snapshot, err = f.coord.EditRating(context.Background(), token, ratingID, 5)
	require.NoError(t, err)
	require.Len(t, snapshot.Ratings, 1)
	assert.Equal(t, 5, snapshot.Ratings[0].RatingValue)
	assert.Equal(t, ratingID, snapshot.Ratings[0].RatingID)

	_, err = f.coord.EditRating(context.Background(), token, "", 3)
	assert.True(t, utils.IsErrorCode(err, utils.ErrValidationRejected))
}

func TestBackendFailureSurfacesAsUnavailable(t *testing.T) {
	f := newFixture(t)
	token := f.backend.RegisterUser("alice@example.com", "alice")
	articleID := f.backend.AddArticle("Widget", "Body", "gadgets")

	f.backend.FailNextRequests(1)
	_, err := f.coord.FetchSnapshot(context.Background(), token, articleID)
	assert.True(t, utils.IsErrorCode(err, utils.ErrBackendUnavailable))

	// The failure is transient; the next call goes through.
	_, err = f.coord.FetchSnapshot(context.Background(), token, articleID)
	assert.NoError(t, err)
}

func TestTransportFailureSurfacesAsUnavailable(t *testing.T) {
	client := api.NewClient("http://127.0.0.1:1", 500*time.Millisecond, zerolog.Nop())
	coord := New(client, utils.NewMetricsCollector(), zerolog.Nop())

	_, err := coord.FetchSnapshot(context.Background(), "token", "article")
	assert.True(t, utils.IsErrorCode(err, utils.ErrBackendUnavailable))
}

func TestInFlightGuardRejectsSecondSubmission(t *testing.T) {
	f := newFixture(t)
	token := f.backend.RegisterUser("alice@example.com", "alice")
	articleID := f.backend.AddArticle("Widget", "Body", "gadgets")

	f.backend.SetLatency(300 * time.Millisecond)

	var wg sync.WaitGroup
	wg.Add(1)
	firstDone := make(chan error, 1)
	go func() {
		defer wg.Done()
		_, err := f.coord.SubmitComment(context.Background(), token, articleID, "slow comment")
		firstDone <- err
	}()

	// Give the first call time to acquire the guard and block in the
	// backend.
	time.Sleep(100 * time.Millisecond)
	assert.True(t, f.coord.IsSubmitting(OpComment))

	_, err := f.coord.SubmitComment(context.Background(), token, articleID, "second comment")
	assert.True(t, utils.IsErrorCode(err, utils.ErrSubmissionInFlight))

	wg.Wait()
	assert.NoError(t, <-firstDone)
	assert.False(t, f.coord.IsSubmitting(OpComment))
}

func TestGuardsArePerOperationKind(t *testing.T) {
	f := newFixture(t)
	token := f.backend.RegisterUser("alice@example.com", "alice")
	articleID := f.backend.AddArticle("Widget", "Body", "gadgets")

	f.backend.SetLatency(300 * time.Millisecond)

	done := make(chan error, 1)
	go func() {
		_, err := f.coord.SubmitComment(context.Background(), token, articleID, "slow comment")
		done <- err
	}()
	time.Sleep(100 * time.Millisecond)

	// A rating is a different operation kind and proceeds while the
	// comment is still in flight.
	_, err := f.coord.SubmitRating(context.Background(), token, articleID, 4)
	assert.NoError(t, err)
	assert.NoError(t, <-done)
}

func TestDeleteCascades(t *testing.T) {
	f := newFixture(t)
	token := f.backend.RegisterUser("alice@example.com", "alice")
	articleID := f.backend.AddArticle("Widget", "Body", "gadgets")

	snapshot, err := f.coord.SubmitComment(context.Background(), token, articleID, "root comment")
	require.NoError(t, err)
	rootID := snapshot.Comments[0].CommentID

	snapshot, err = f.coord.SubmitReply(context.Background(), token, articleID, rootID, "first reply")
	require.NoError(t, err)
	var replyID string
	for _, c := range snapshot.Comments {
		if c.ParentCommentID == rootID {
			replyID = c.CommentID
		}
	}
	require.NotEmpty(t, replyID)

	_, err = f.coord.SubmitReply(context.Background(), token, articleID, replyID, "nested reply")
	require.NoError(t, err)

	// Deleting the root takes the whole subtree with it.
	snapshot, err = f.coord.DeleteComment(context.Background(), token, rootID)
	require.NoError(t, err)
	assert.Empty(t, snapshot.Comments)
}

func TestReplyRequiresParent(t *testing.T) {
	f := newFixture(t)
	token := f.backend.RegisterUser("alice@example.com", "alice")
	articleID := f.backend.AddArticle("Widget", "Body", "gadgets")

	_, err := f.coord.SubmitReply(context.Background(), token, articleID, "", "reply")
	assert.True(t, utils.IsErrorCode(err, utils.ErrValidationRejected))
}

func TestEditCommentOwnershipEnforced(t *testing.T) {
	f := newFixture(t)
	alice := f.backend.RegisterUser("alice@example.com", "alice")
	bob := f.backend.RegisterUser("bob@example.com", "bob")
	articleID := f.backend.AddArticle("Widget", "Body", "gadgets")

	snapshot, err := f.coord.SubmitComment(context.Background(), alice, articleID, "alice's comment")
	require.NoError(t, err)
	commentID := snapshot.Comments[0].CommentID

	_, err = f.coord.SaveEdit(context.Background(), bob, articleID, commentID, "defaced")
	assert.True(t, utils.IsErrorCode(err, utils.ErrBackendUnavailable))

	snapshot, err = f.coord.SaveEdit(context.Background(), alice, articleID, commentID, "corrected")
	require.NoError(t, err)
	assert.Equal(t, "corrected", snapshot.Comments[0].CommentContent)
}
