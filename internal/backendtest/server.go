// Package backendtest is an in-memory stand-in for the review backend.
// It speaks the same wire protocol (endpoints, confirmation strings,
// snapshot envelopes) and exists for tests and for the simulator's
// self-contained mode. It is not part of the engine proper.
package backendtest

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"review-thread/internal/auth"
	"review-thread/internal/models"
)

type storedUser struct {
	Email     string
	Username  string
	Userclass string
}

type storedComment struct {
	CommentID       string
	ArticleID       string
	ParentCommentID string
	OwnerEmail      string
	Content         string
}

type storedRating struct {
	RatingID   string
	ArticleID  string
	OwnerEmail string
	Value      int
}

type storedArticle struct {
	ArticleID string
	Title     string
	Content   string
	Tag       string
}

// Server holds the whole backend state behind one mutex. Insertion
// order of comments and ratings is preserved, oldest first, exactly
// like the real backend's query order.
type Server struct {
	mu       sync.Mutex
	secret   []byte
	users    map[string]storedUser
	articles map[string]storedArticle
	comments []storedComment
	ratings  []storedRating

	pendingFailures int
	latency         time.Duration
}

func NewServer() *Server {
	return &Server{
		secret:   []byte("backendtest-" + uuid.NewString()),
		users:    make(map[string]storedUser),
		articles: make(map[string]storedArticle),
	}
}

// RegisterUser creates a user and returns a valid session token.
func (s *Server) RegisterUser(email, username string) string {
	s.mu.Lock()
	s.users[email] = storedUser{Email: email, Username: username, Userclass: "user"}
	s.mu.Unlock()

	token, err := auth.GenerateToken(s.secret, email, time.Hour)
	if err != nil {
		panic(err)
	}
	return token
}

// ExpiredToken returns a token for email whose exp claim has passed.
func (s *Server) ExpiredToken(email string) string {
	token, err := auth.GenerateToken(s.secret, email, -time.Hour)
	if err != nil {
		panic(err)
	}
	return token
}

// AddArticle seeds an article and returns its id.
func (s *Server) AddArticle(title, content, tag string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	articleID := uuid.NewString()
	s.articles[articleID] = storedArticle{
		ArticleID: articleID,
		Title:     title,
		Content:   content,
		Tag:       tag,
	}
	return articleID
}

// ArticleIDs lists the seeded articles.
func (s *Server) ArticleIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.articles))
	for id := range s.articles {
		ids = append(ids, id)
	}
	return ids
}

// FailNextRequests makes the next n requests answer "backend error".
func (s *Server) FailNextRequests(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingFailures = n
}

// SetLatency delays every response by d. Used to exercise the
// in-flight guards.
func (s *Server) SetLatency(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latency = d
}

// Handler returns the backend's HTTP surface.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/article/view", s.handleViewArticle)
	mux.HandleFunc("/comment/add", s.handleAddComment)
	mux.HandleFunc("/comment/edit/update", s.handleEditComment)
	mux.HandleFunc("/comment/delete", s.handleDeleteComment)
	mux.HandleFunc("/rating/add", s.handleAddRating)
	mux.HandleFunc("/rating/edit/update", s.handleEditRating)
	return mux
}

type request struct {
	Token           string `json:"token"`
	ArticleID       string `json:"article_id"`
	CommentID       string `json:"comment_id"`
	ParentCommentID string `json:"parent_comment_id"`
	CommentContent  string `json:"comment_content"`
	RatingID        string `json:"rating_id"`
	RatingValue     int    `json:"rating_value"`
}

// decode parses the body and authenticates the caller. A nil user with
// handled=true means a response was already written.
func (s *Server) decode(w http.ResponseWriter, r *http.Request) (*request, *storedUser, bool) {
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeConfirmation(w, models.ConfirmationBackendError)
		return nil, nil, false
	}

	s.mu.Lock()
	if s.latency > 0 {
		d := s.latency
		s.mu.Unlock()
		time.Sleep(d)
		s.mu.Lock()
	}
	if s.pendingFailures > 0 {
		s.pendingFailures--
		s.mu.Unlock()
		writeConfirmation(w, models.ConfirmationBackendError)
		return nil, nil, false
	}
	s.mu.Unlock()

	claims, err := auth.ValidateToken(s.secret, req.Token)
	if err != nil {
		writeConfirmation(w, models.ConfirmationTokenInvalid)
		return nil, nil, false
	}

	s.mu.Lock()
	user, exists := s.users[claims.Email]
	s.mu.Unlock()
	if !exists {
		writeConfirmation(w, models.ConfirmationTokenInvalid)
		return nil, nil, false
	}

	return &req, &user, true
}

func (s *Server) handleViewArticle(w http.ResponseWriter, r *http.Request) {
	req, user, ok := s.decode(w, r)
	if !ok {
		return
	}
	s.respondSnapshot(w, req.ArticleID, user)
}

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	req, user, ok := s.decode(w, r)
	if !ok {
		return
	}

	if !validContent(req.CommentContent) {
		writeConfirmation(w, models.ConfirmationBackendError)
		return
	}

	s.mu.Lock()
	if _, exists := s.articles[req.ArticleID]; !exists {
		s.mu.Unlock()
		writeConfirmation(w, models.ConfirmationBackendError)
		return
	}
	if req.ParentCommentID != "" && !s.commentExistsLocked(req.ParentCommentID) {
		s.mu.Unlock()
		writeConfirmation(w, models.ConfirmationBackendError)
		return
	}
	s.comments = append(s.comments, storedComment{
		CommentID:       uuid.NewString(),
		ArticleID:       req.ArticleID,
		ParentCommentID: req.ParentCommentID,
		OwnerEmail:      user.Email,
		Content:         req.CommentContent,
	})
	s.mu.Unlock()

	s.respondSnapshot(w, req.ArticleID, user)
}

func (s *Server) handleEditComment(w http.ResponseWriter, r *http.Request) {
	req, user, ok := s.decode(w, r)
	if !ok {
		return
	}

	if !validContent(req.CommentContent) {
		writeConfirmation(w, models.ConfirmationBackendError)
		return
	}

	s.mu.Lock()
	edited := false
	for i := range s.comments {
		if s.comments[i].CommentID == req.CommentID && s.comments[i].OwnerEmail == user.Email {
			s.comments[i].Content = req.CommentContent
			edited = true
			break
		}
	}
	s.mu.Unlock()

	if !edited {
		writeConfirmation(w, models.ConfirmationBackendError)
		return
	}
	s.respondSnapshot(w, req.ArticleID, user)
}

func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	req, user, ok := s.decode(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	var target *storedComment
	for i := range s.comments {
		if s.comments[i].CommentID == req.CommentID {
			target = &s.comments[i]
			break
		}
	}
	if target == nil || target.OwnerEmail != user.Email {
		s.mu.Unlock()
		writeConfirmation(w, models.ConfirmationBackendError)
		return
	}
	articleID := target.ArticleID

	// Cascade: collect the comment and every descendant breadth-first,
	// then drop them all.
	doomed := map[string]bool{req.CommentID: true}
	queue := []string{req.CommentID}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, c := range s.comments {
			if c.ParentCommentID == current && !doomed[c.CommentID] {
				doomed[c.CommentID] = true
				queue = append(queue, c.CommentID)
			}
		}
	}

	kept := s.comments[:0]
	for _, c := range s.comments {
		if !doomed[c.CommentID] {
			kept = append(kept, c)
		}
	}
	s.comments = kept
	s.mu.Unlock()

	s.respondSnapshot(w, articleID, user)
}

func (s *Server) handleAddRating(w http.ResponseWriter, r *http.Request) {
	req, user, ok := s.decode(w, r)
	if !ok {
		return
	}

	if req.RatingValue < 1 || req.RatingValue > 5 {
		writeConfirmation(w, models.ConfirmationBackendError)
		return
	}

	s.mu.Lock()
	if _, exists := s.articles[req.ArticleID]; !exists {
		s.mu.Unlock()
		writeConfirmation(w, models.ConfirmationBackendError)
		return
	}
	for _, rating := range s.ratings {
		if rating.ArticleID == req.ArticleID && rating.OwnerEmail == user.Email {
			s.mu.Unlock()
			writeConfirmation(w, models.ConfirmationAlreadyRated)
			return
		}
	}
	s.ratings = append(s.ratings, storedRating{
		RatingID:   uuid.NewString(),
		ArticleID:  req.ArticleID,
		OwnerEmail: user.Email,
		Value:      req.RatingValue,
	})
	s.mu.Unlock()

	s.respondSnapshot(w, req.ArticleID, user)
}

func (s *Server) handleEditRating(w http.ResponseWriter, r *http.Request) {
	req, user, ok := s.decode(w, r)
	if !ok {
		return
	}

	if req.RatingValue < 1 || req.RatingValue > 5 {
		writeConfirmation(w, models.ConfirmationBackendError)
		return
	}

	s.mu.Lock()
	var articleID string
	for i := range s.ratings {
		if s.ratings[i].RatingID == req.RatingID && s.ratings[i].OwnerEmail == user.Email {
			s.ratings[i].Value = req.RatingValue
			articleID = s.ratings[i].ArticleID
			break
		}
	}
	s.mu.Unlock()

	if articleID == "" {
		writeConfirmation(w, models.ConfirmationBackendError)
		return
	}
	s.respondSnapshot(w, articleID, user)
}

func (s *Server) commentExistsLocked(commentID string) bool {
	for _, c := range s.comments {
		if c.CommentID == commentID {
			return true
		}
	}
	return false
}

func (s *Server) respondSnapshot(w http.ResponseWriter, articleID string, viewer *storedUser) {
	s.mu.Lock()
	defer s.mu.Unlock()

	article, exists := s.articles[articleID]
	if !exists {
		writeConfirmation(w, models.ConfirmationBackendError)
		return
	}

	resp := models.SnapshotResponse{
		Confirmation:   models.ConfirmationSuccessful,
		ArticleTitle:   article.Title,
		ArticleContent: article.Content,
		ArticleTag:     article.Tag,
		UserEmail:      viewer.Email,
		Userclass:      viewer.Userclass,
		Comments:       []models.CommentRecord{},
		Ratings:        []models.RatingRecord{},
	}

	for _, c := range s.comments {
		if c.ArticleID != articleID {
			continue
		}
		owner := s.users[c.OwnerEmail]
		resp.Comments = append(resp.Comments, models.CommentRecord{
			CommentID:       c.CommentID,
			ParentCommentID: c.ParentCommentID,
			Owner:           owner.Username,
			UserEmail:       c.OwnerEmail,
			CommentContent:  c.Content,
		})
	}

	for _, rating := range s.ratings {
		if rating.ArticleID != articleID {
			continue
		}
		owner := s.users[rating.OwnerEmail]
		resp.Ratings = append(resp.Ratings, models.RatingRecord{
			RatingID:    rating.RatingID,
			Owner:       owner.Username,
			UserEmail:   rating.OwnerEmail,
			RatingValue: rating.Value,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func validContent(content string) bool {
	length := utf8.RuneCountInString(strings.TrimSpace(content))
	return length >= 1 && length <= 8192
}

func writeConfirmation(w http.ResponseWriter, confirmation string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(models.SnapshotResponse{Confirmation: confirmation})
}
