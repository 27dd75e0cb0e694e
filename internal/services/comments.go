package services

import (
	"context"
	"fmt"
	"strings"

	"fintrack/internal/core"
)

// DefaultCommentLimit caps List when no limit is given.
const DefaultCommentLimit = 50

type CommentStore interface {
	CreateComment(ctx context.Context, c *core.Comment) error
	ListComments(ctx context.Context, userID string, limit int) ([]core.Comment, error)
}

// CommentService stores free-text feedback left by users.
type CommentService struct {
	store CommentStore
	audit *Auditor
}

func NewCommentService(store CommentStore, audit *Auditor) *CommentService {
	return &CommentService{store: store, audit: audit}
}

// Create trims body and saves it as a new comment.
func (s *CommentService) Create(ctx context.Context, userID, body string) (core.Comment, error) {
	c := core.Comment{UserID: userID, Body: strings.TrimSpace(body)}
	if err := c.Validate(); err != nil {
		return c, err
	}
	if err := s.store.CreateComment(ctx, &c); err != nil {
		return c, fmt.Errorf("create comment: %w", err)
	}
	s.audit.Record(ctx, userID, "comment.created", map[string]any{"id": c.ID, "length": len([]rune(c.Body))})
	return c, nil
}

func (s *CommentService) List(ctx context.Context, userID string, limit int) ([]core.Comment, error) {
	if limit <= 0 {
		limit = DefaultCommentLimit
	}
	return s.store.ListComments(ctx, userID, limit)
}
