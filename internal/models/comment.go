package models

// CommentRecord is the flat, server-supplied representation of one
// comment or reply. Field names follow the backend's JSON exactly.
type CommentRecord struct {
	CommentID       string `json:"comment_id"`
	ParentCommentID string `json:"parent_comment_id"`
	Owner           string `json:"owner"`
	UserEmail       string `json:"user_email"`
	CommentContent  string `json:"comment_content"`
}

// IsRoot reports whether the record is a top-level comment.
func (c CommentRecord) IsRoot() bool {
	return c.ParentCommentID == ""
}

// CommentNode is a CommentRecord placed in the reply forest. Replies
// keep the relative order of the flat input list (oldest first, as
// received from the backend). Depth is 0 for roots and uncapped;
// clamping indentation is a presentation concern.
type CommentNode struct {
	CommentRecord
	Replies []*CommentNode `json:"replies"`
	Depth   int            `json:"depth"`
}
