// Package session holds the ephemeral interaction state of one open
// article view. The state is global to the view, not per comment:
// at most one comment is being edited or replied to at any moment,
// which rules out the "two open editors" class of bugs entirely.
package session

import (
	"review-thread/internal/utils"
)

// Mode is the tagged interaction state.
type Mode int

const (
	ModeIdle Mode = iota
	ModeEditing
	ModeReplying
)

func (m Mode) String() string {
	switch m {
	case ModeEditing:
		return "editing"
	case ModeReplying:
		return "replying"
	default:
		return "idle"
	}
}

// Interaction tracks which comment (if any) is being edited or
// replied to, the transient text buffers, and the staged delete and
// rating candidates. It performs no I/O and is reset whenever a new
// snapshot is loaded.
type Interaction struct {
	mode     Mode
	targetID string

	EditBuffer  string
	ReplyBuffer string

	deleteCandidate string

	pendingRating     int // 0 means nothing staged
	pendingRatingEdit int
}

func New() *Interaction {
	return &Interaction{}
}

// Reset discards all interaction state. Called whenever the snapshot
// is replaced or the view is torn down.
func (s *Interaction) Reset() {
	*s = Interaction{}
}

func (s *Interaction) Mode() Mode { return s.mode }

// EditingID returns the comment under edit, or empty when not editing.
func (s *Interaction) EditingID() string {
	if s.mode == ModeEditing {
		return s.targetID
	}
	return ""
}

// ReplyingToID returns the comment being replied to, or empty.
func (s *Interaction) ReplyingToID() string {
	if s.mode == ModeReplying {
		return s.targetID
	}
	return ""
}

// StartEdit enters Editing(id) from any state, seeding the edit buffer
// with the comment's current content. An in-progress reply on any
// node is cancelled and its buffer discarded.
func (s *Interaction) StartEdit(id, currentContent string) {
	s.mode = ModeEditing
	s.targetID = id
	s.EditBuffer = currentContent
	s.ReplyBuffer = ""
}

// CancelEdit returns to Idle, discarding the edit buffer.
func (s *Interaction) CancelEdit() {
	if s.mode != ModeEditing {
		return
	}
	s.mode = ModeIdle
	s.targetID = ""
	s.EditBuffer = ""
}

// BeginSaveEdit checks that a save is valid for the given comment and
// returns the buffered content. The state itself is left untouched;
// the caller transitions to Idle only after the backend confirms.
func (s *Interaction) BeginSaveEdit(id string) (string, error) {
	if s.mode != ModeEditing || s.targetID != id {
		return "", utils.NewValidationError("no edit in progress for this comment")
	}
	return s.EditBuffer, nil
}

// StartReply enters Replying(id) from any state with a cleared reply
// buffer. Cancels any active edit.
func (s *Interaction) StartReply(id string) {
	s.mode = ModeReplying
	s.targetID = id
	s.ReplyBuffer = ""
	s.EditBuffer = ""
}

// CancelReply returns to Idle, discarding the reply buffer.
func (s *Interaction) CancelReply() {
	if s.mode != ModeReplying {
		return
	}
	s.mode = ModeIdle
	s.targetID = ""
	s.ReplyBuffer = ""
}

// BeginSubmitReply checks that a reply submission is valid for the
// given parent and returns the buffered content.
func (s *Interaction) BeginSubmitReply(parentID string) (string, error) {
	if s.mode != ModeReplying || s.targetID != parentID {
		return "", utils.NewValidationError("no reply in progress for this comment")
	}
	return s.ReplyBuffer, nil
}

// RequestDelete stages a delete candidate. Deleting always takes the
// explicit two-step confirmation; a stray tap must never destroy a
// comment. Independent of the editing/replying mode.
func (s *Interaction) RequestDelete(id string) {
	s.deleteCandidate = id
}

// DeleteCandidate returns the staged comment id, or empty.
func (s *Interaction) DeleteCandidate() string {
	return s.deleteCandidate
}

// ConfirmDelete consumes the staged candidate.
func (s *Interaction) ConfirmDelete() (string, error) {
	if s.deleteCandidate == "" {
		return "", utils.NewValidationError("no delete requested")
	}
	id := s.deleteCandidate
	s.deleteCandidate = ""
	return id, nil
}

// CancelDeleteRequest clears the staged candidate.
func (s *Interaction) CancelDeleteRequest() {
	s.deleteCandidate = ""
}

// RequestRating stages a rating value pending confirmation. Once a
// rating for the current identity exists the request is rejected with
// ALREADY_RATED rather than silently ignored, so the caller can show
// a blocked-action signal.
func (s *Interaction) RequestRating(value int, alreadyRated bool) error {
	if alreadyRated {
		return utils.NewAppError(utils.ErrAlreadyRated, "identity has already rated this article", nil)
	}
	if value < 1 || value > 5 {
		return utils.NewValidationError("rating must be between 1 and 5")
	}
	s.pendingRating = value
	return nil
}

// PendingRating returns the staged value, or 0.
func (s *Interaction) PendingRating() int {
	return s.pendingRating
}

// ConfirmRating consumes the staged rating value.
func (s *Interaction) ConfirmRating() (int, error) {
	if s.pendingRating == 0 {
		return 0, utils.NewValidationError("no rating staged")
	}
	value := s.pendingRating
	s.pendingRating = 0
	return value, nil
}

// CancelRating clears the staged rating.
func (s *Interaction) CancelRating() {
	s.pendingRating = 0
}

// RequestRatingEdit stages a replacement value for an existing rating.
// Valid only when the identity has rated before.
func (s *Interaction) RequestRatingEdit(value int, hasRated bool) error {
	if !hasRated {
		return utils.NewValidationError("no existing rating to edit")
	}
	if value < 1 || value > 5 {
		return utils.NewValidationError("rating must be between 1 and 5")
	}
	s.pendingRatingEdit = value
	return nil
}

// ConfirmRatingEdit consumes the staged replacement value.
func (s *Interaction) ConfirmRatingEdit() (int, error) {
	if s.pendingRatingEdit == 0 {
		return 0, utils.NewValidationError("no rating edit staged")
	}
	value := s.pendingRatingEdit
	s.pendingRatingEdit = 0
	return value, nil
}

// CancelRatingEdit clears the staged replacement value.
func (s *Interaction) CancelRatingEdit() {
	s.pendingRatingEdit = 0
}
