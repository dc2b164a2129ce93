package usecase

import (
	"context"
	"sort"

	"moviestream/internal/domain"
	"moviestream/internal/services/session"
)

// GetStatus returns the live projection of one session.
type GetStatus struct {
	Registry *session.Registry
}

func (uc GetStatus) Execute(ctx context.Context, id domain.SessionID) (domain.SessionInfo, error) {
	sess, ok := uc.Registry.Get(id)
	if !ok {
		return domain.SessionInfo{}, domain.ErrNotFound
	}
	return sess.Snapshot(), nil
}

// ListSessions returns summaries of every live session, newest first.
type ListSessions struct {
	Registry *session.Registry
}

func (uc ListSessions) Execute(ctx context.Context) []domain.SessionSummary {
	sessions := uc.Registry.List()
	out := make([]domain.SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Summary())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
