package controller

import (
	"context"
	"testing"
	"time"

	"github.com/UkralStul/school-board/internal/account"
	"github.com/UkralStul/school-board/internal/domain"
	"github.com/UkralStul/school-board/internal/marks"
	"github.com/UkralStul/school-board/internal/resource"
	"github.com/UkralStul/school-board/internal/storage/inmemory"
	"github.com/UkralStul/school-board/internal/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const password = "correct-horse"

func setup(t *testing.T) *Controller {
	t.Helper()
	store := inmemory.New()
	accounts := account.NewService(store, account.WithHashCost(bcrypt.MinCost))
	resources := resource.NewService(store, marks.NewEngine(store), tree.New(store, tree.DefaultMaxDepth))

	register := func(username string, specs domain.UserSpecs) {
		_, err := accounts.Register(context.Background(), account.RegisterRequest{
			Username:  username,
			Password:  password,
			Email:     username + "@school.uz",
			FirstName: username,
			LastName:  "Test",
			BirthDate: time.Date(2009, 1, 1, 0, 0, 0, 0, time.UTC),
			Specs:     specs,
		})
		require.NoError(t, err)
	}
	register("alice", domain.Student(domain.Class{Num: 9, Char: "A"}))
	register("bob", domain.Other())
	return New(accounts, resources)
}

func open(t *testing.T, c *Controller, username string) *Session {
	t.Helper()
	s, err := c.Open(context.Background(), username, password)
	require.NoError(t, err)
	return s
}

func TestOpen_WrongCredentials(t *testing.T) {
	c := setup(t)
	ctx := context.Background()

	_, err := c.Open(ctx, "alice", "nope-nope")
	assert.ErrorIs(t, err, domain.ErrWrongPassword)
	_, err = c.Open(ctx, "mallory", password)
	assert.ErrorIs(t, err, domain.ErrWrongUsername)
}

func TestSession_AliceAndBob(t *testing.T) {
	c := setup(t)
	ctx := context.Background()
	alice := open(t, c, "alice")
	bob := open(t, c, "bob")

	post, err := alice.Publish(ctx, "Olympiad", "Who is going?", []string{"math"})
	require.NoError(t, err)

	ref, err := bob.Like(ctx, post.UUID)
	require.NoError(t, err)
	assert.Equal(t, domain.MarkCounts{Likes: 1}, resource.Counts(ref))

	ref, err = bob.Dislike(ctx, post.UUID)
	require.NoError(t, err)
	assert.Equal(t, domain.MarkCounts{Likes: 0, Dislikes: 1}, resource.Counts(ref))

	assert.True(t, alice.IsOwnerOf(ref))
	assert.False(t, bob.IsOwnerOf(ref))

	ref, err = bob.CancelMark(ctx, post.UUID)
	require.NoError(t, err)
	assert.Equal(t, domain.MarkCounts{}, resource.Counts(ref))
}

func TestSession_CommentAndEdit(t *testing.T) {
	c := setup(t)
	ctx := context.Background()
	alice := open(t, c, "alice")
	bob := open(t, c, "bob")

	post, err := alice.Publish(ctx, "Olympiad", "Who is going?", nil)
	require.NoError(t, err)
	comment, err := bob.Comment(ctx, post.UUID, "me")
	require.NoError(t, err)
	reply, err := alice.Comment(ctx, comment.UUID, "great")
	require.NoError(t, err)
	require.NotNil(t, reply.RepliesFor)
	assert.Equal(t, comment.UUID, *reply.RepliesFor)
	assert.Equal(t, post.UUID, reply.UnderPost)

	_, err = alice.Edit(ctx, comment.UUID, "not me")
	assert.ErrorIs(t, err, domain.ErrNotAuthor)

	ref, err := bob.Edit(ctx, comment.UUID, "me too")
	require.NoError(t, err)
	edited, ok := ref.(resource.CommentRef)
	require.True(t, ok)
	assert.Equal(t, "me too", edited.Comment.Content)
	assert.True(t, edited.Comment.Edited)

	_, err = bob.EditTitle(ctx, post.UUID, "Hijacked")
	assert.ErrorIs(t, err, domain.ErrNotAuthor)
	updated, err := alice.EditTitle(ctx, post.UUID, "Olympiad 2024")
	require.NoError(t, err)
	assert.Equal(t, "Olympiad 2024", updated.Title)

	_, err = bob.Like(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSession_ChangeFields(t *testing.T) {
	c := setup(t)
	ctx := context.Background()
	alice := open(t, c, "alice")

	about := "captain of the chess club"
	user, err := alice.ChangeFields(ctx, []domain.FieldChange{
		{Field: domain.FieldAbout, Value: &about},
		{Field: domain.FieldClass, Class: &domain.Class{Num: 10, Char: "A"}},
	})
	require.NoError(t, err)
	assert.Equal(t, about, user.About)
	assert.Equal(t, "10A", alice.Model().Specs.Class.String())

	title := "Director"
	_, err = alice.ChangeFields(ctx, []domain.FieldChange{{Field: domain.FieldJobTitle, Value: &title}})
	var verrs domain.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, domain.RuleNotAdministrator, verrs[0].Rule)
}
