package simulator

import (
	"context"
	"fmt"
	"time"

	"review-thread/internal/engine/actors"
	"review-thread/internal/thread"
)

const tickInterval = 250 * time.Millisecond

// runReviewer is one reviewer's activity loop. Each tick picks an
// article and performs at most one action against it; the per-view
// actor serializes whatever several reviewers do to the same thread.
func (s *Simulator) runReviewer(ctx context.Context, r *Reviewer) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			articleID := s.articles[r.rng.Intn(len(s.articles))]
			s.act(r, articleID)
		}
	}
}

func (s *Simulator) act(r *Reviewer, articleID string) {
	if !r.openViews[articleID] {
		_, err := r.engine.OpenView(articleID, r.Token)
		s.stats.record(err)
		if err != nil {
			s.log.Debug().Str("article_id", articleID).Err(err).Msg("open view failed")
			return
		}
		r.openViews[articleID] = true
		return
	}

	state, err := r.engine.Do(articleID, &actors.GetViewStateMsg{})
	if err != nil {
		s.stats.record(err)
		return
	}

	roll := r.rng.Float64()
	switch {
	case roll < s.cfg.CommentFrequency:
		s.postComment(r, articleID)
	case roll < s.cfg.CommentFrequency+s.cfg.RatingFrequency:
		s.rate(r, articleID, state)
	case roll < s.cfg.CommentFrequency+s.cfg.RatingFrequency+0.1:
		s.replyToRandomComment(r, articleID, state)
	case roll < s.cfg.CommentFrequency+s.cfg.RatingFrequency+0.15:
		s.editOwnComment(r, articleID, state)
	case roll < s.cfg.CommentFrequency+s.cfg.RatingFrequency+0.18:
		s.deleteOwnComment(r, articleID, state)
	}
}

func (s *Simulator) postComment(r *Reviewer, articleID string) {
	content := fmt.Sprintf("Comment from %s at %s", r.Username, time.Now().Format(time.RFC3339Nano))
	_, err := r.engine.Do(articleID, &actors.SubmitCommentMsg{Content: content})
	s.stats.record(err)
	if err == nil {
		s.stats.count(&s.stats.TotalComments)
	}
}

func (s *Simulator) replyToRandomComment(r *Reviewer, articleID string, state *actors.ViewState) {
	flat := thread.Flatten(state.Forest)
	if len(flat) == 0 {
		return
	}
	target := flat[r.rng.Intn(len(flat))].CommentID

	if _, err := r.engine.Do(articleID, &actors.StartReplyMsg{CommentID: target}); err != nil {
		s.stats.record(err)
		return
	}
	content := fmt.Sprintf("Reply from %s at %s", r.Username, time.Now().Format(time.RFC3339Nano))
	if _, err := r.engine.Do(articleID, &actors.SetReplyContentMsg{Content: content}); err != nil {
		s.stats.record(err)
		return
	}
	_, err := r.engine.Do(articleID, &actors.SubmitReplyMsg{CommentID: target})
	s.stats.record(err)
	if err == nil {
		s.stats.count(&s.stats.TotalReplies)
	}
}

func (s *Simulator) editOwnComment(r *Reviewer, articleID string, state *actors.ViewState) {
	target, found := s.ownComment(r, state)
	if !found {
		return
	}
	if _, err := r.engine.Do(articleID, &actors.StartEditMsg{CommentID: target}); err != nil {
		s.stats.record(err)
		return
	}
	content := fmt.Sprintf("Edited by %s at %s", r.Username, time.Now().Format(time.RFC3339Nano))
	if _, err := r.engine.Do(articleID, &actors.SetEditContentMsg{Content: content}); err != nil {
		s.stats.record(err)
		return
	}
	_, err := r.engine.Do(articleID, &actors.SaveEditMsg{CommentID: target})
	s.stats.record(err)
	if err == nil {
		s.stats.count(&s.stats.TotalEdits)
	}
}

func (s *Simulator) deleteOwnComment(r *Reviewer, articleID string, state *actors.ViewState) {
	target, found := s.ownComment(r, state)
	if !found {
		return
	}
	if _, err := r.engine.Do(articleID, &actors.RequestDeleteMsg{CommentID: target}); err != nil {
		s.stats.record(err)
		return
	}
	_, err := r.engine.Do(articleID, &actors.ConfirmDeleteMsg{})
	s.stats.record(err)
	if err == nil {
		s.stats.count(&s.stats.TotalDeletes)
	}
}

func (s *Simulator) rate(r *Reviewer, articleID string, state *actors.ViewState) {
	if state.HasRated {
		return
	}
	value := 1 + r.rng.Intn(5)
	if _, err := r.engine.Do(articleID, &actors.RequestRatingMsg{Value: value}); err != nil {
		s.stats.record(err)
		return
	}
	_, err := r.engine.Do(articleID, &actors.ConfirmRatingMsg{})
	s.stats.record(err)
	if err == nil {
		s.stats.count(&s.stats.TotalRatings)
	}
}

// ownComment picks one of the reviewer's comments from the view.
func (s *Simulator) ownComment(r *Reviewer, state *actors.ViewState) (string, bool) {
	candidates := make([]string, 0)
	for _, node := range thread.Flatten(state.Forest) {
		if node.Identity() == r.Email {
			candidates = append(candidates, node.CommentID)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	return candidates[r.rng.Intn(len(candidates))], true
}
