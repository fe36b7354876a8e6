package models

// RatingRecord is one user's rating of an article. The backend
// enforces at most one record per identity per article.
type RatingRecord struct {
	RatingID    string `json:"rating_id"`
	Owner       string `json:"owner"`
	UserEmail   string `json:"user_email"`
	RatingValue int    `json:"rating_value"`
}

// Identity returns the stable key used for ownership checks: the email
// when present, otherwise the display name.
func (r RatingRecord) Identity() string {
	if r.UserEmail != "" {
		return r.UserEmail
	}
	return r.Owner
}

// Identity is the ownership key of a comment, mirroring RatingRecord.
func (c CommentRecord) Identity() string {
	if c.UserEmail != "" {
		return c.UserEmail
	}
	return c.Owner
}
