package services

import (
	"context"
	"strings"
	"testing"

	"fintrack/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentService(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	u := env.newUser(t, "feedback@fintrack.mu")
	comments := NewCommentService(env.repo, NewAuditor(env.repo, env.publisher))

	c, err := comments.Create(ctx, u.ID, "  Please add a savings chart  \n")
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "Please add a savings chart", c.Body)
	assert.False(t, c.CreatedAt.IsZero())

	_, err = comments.Create(ctx, u.ID, strings.Repeat("x", core.MaxCommentLength))
	require.NoError(t, err)

	for name, body := range map[string]string{
		"blank":     " \t\n ",
		"501 runes": strings.Repeat("x", core.MaxCommentLength+1),
	} {
		_, err := comments.Create(ctx, u.ID, body)
		assert.True(t, core.IsValidation(err), name)
	}

	list, err := comments.List(ctx, u.ID, 0)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	other, err := comments.List(ctx, "someone-else", 10)
	require.NoError(t, err)
	assert.Empty(t, other)

	events, err := env.repo.ListAuditEvents(ctx, u.ID, 20)
	require.NoError(t, err)
	var created int
	for _, ev := range events {
		if ev.Action == "comment.created" {
			created++
		}
	}
	assert.Equal(t, 2, created)
	assert.Contains(t, env.publisher.routingKeys(), "audit.comment.created")
}
