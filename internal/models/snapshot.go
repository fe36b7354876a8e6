package models

// Confirmation strings used by the review backend.
const (
	ConfirmationSuccessful   = "successful"
	ConfirmationTokenInvalid = "token invalid"
	ConfirmationBackendError = "backend error"
	ConfirmationAlreadyRated = "already rated"
)

// SnapshotResponse is the envelope every backend endpoint returns. On
// "successful" the comments and ratings arrays are the complete,
// authoritative state for the article; the client replaces its local
// copy wholesale and never patches incrementally.
type SnapshotResponse struct {
	Confirmation   string          `json:"confirmation"`
	Message        string          `json:"message,omitempty"`
	ArticleTitle   string          `json:"article_title"`
	ArticleContent string          `json:"article_content"`
	ArticleTag     string          `json:"article_tag"`
	ArticleImage   string          `json:"article_image,omitempty"`
	UserEmail      string          `json:"user_email"`
	Userclass      string          `json:"userclass"`
	Comments       []CommentRecord `json:"comments"`
	Ratings        []RatingRecord  `json:"ratings"`
}

// Snapshot is the client-side view of a SnapshotResponse after a
// successful call.
type Snapshot struct {
	ArticleTitle   string
	ArticleContent string
	ArticleTag     string
	ViewerEmail    string
	Userclass      string
	Comments       []CommentRecord
	Ratings        []RatingRecord
}

// ToSnapshot strips the envelope down to the state the engine keeps.
func (r *SnapshotResponse) ToSnapshot() *Snapshot {
	return &Snapshot{
		ArticleTitle:   r.ArticleTitle,
		ArticleContent: r.ArticleContent,
		ArticleTag:     r.ArticleTag,
		ViewerEmail:    r.UserEmail,
		Userclass:      r.Userclass,
		Comments:       r.Comments,
		Ratings:        r.Ratings,
	}
}
