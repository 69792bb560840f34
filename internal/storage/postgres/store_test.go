package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/UkralStul/school-board/internal/domain"
	"github.com/UkralStul/school-board/internal/query"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	return NewWithDB(db, time.Second), mock
}

var postTarget = domain.Target{Kind: domain.PostKind, UUID: "p1"}

func TestReplaceMark_OneTransaction(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM post_marks WHERE username = $1 AND post = $2")).
		WithArgs("bob", "p1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM post_marks WHERE username = $1 AND post = $2")).
		WithArgs("bob", "p1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO post_marks (uuid, username, post, liked, marked_at) VALUES ($1, $2, $3, $4, $5)")).
		WithArgs(sqlmock.AnyArg(), "bob", "p1", false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.ReplaceMark(context.Background(), &domain.Mark{Target: postTarget, Username: "bob", Liked: false})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceMark_CommentTableFromDescriptor(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM comment_marks WHERE username = $1 AND comment = $2")).
		WithArgs("alice", "c1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO comment_marks (uuid, username, comment, liked, marked_at)")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.ReplaceMark(context.Background(), &domain.Mark{
		Target:   domain.Target{Kind: domain.CommentKind, UUID: "c1"},
		Username: "alice",
		Liked:    true,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceMark_UniqueViolationIsConflict(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM post_marks")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO post_marks")).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})
	mock.ExpectRollback()

	err := store.ReplaceMark(context.Background(), &domain.Mark{Target: postTarget, Username: "bob", Liked: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMarkConflict)
	assert.ErrorIs(t, err, domain.ErrStoreFailure)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPosts_ComposedQuery(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{
		"uuid", "title", "content", "author", "tags", "published_at", "edited", "edited_at", "likes", "dislikes", "rating",
	}).AddRow("p1", "Fractions", "Body", "alice", "{math}", now, true, now, int64(3), int64(1), 0.6)

	mock.ExpectQuery(regexp.QuoteMeta(
		"FROM posts LEFT JOIN post_marks ON post_marks.post = posts.uuid "+
			"WHERE posts.tags @> $1 GROUP BY posts.uuid ORDER BY rating DESC LIMIT $2 OFFSET $3")).
		WithArgs(sqlmock.AnyArg(), 25, 0).
		WillReturnRows(rows)

	posts, err := store.GetPosts(context.Background(),
		[]query.PostPredicate{query.TagsContain{"math"}},
		query.Up(query.ByRating),
		query.Limit{Count: 25})
	require.NoError(t, err)
	require.Len(t, posts, 1)

	p := posts[0]
	assert.Equal(t, "p1", p.UUID)
	assert.Equal(t, []string{"math"}, []string(p.Tags))
	assert.Equal(t, int64(3), p.Likes)
	assert.Equal(t, int64(1), p.Dislikes)
	assert.InDelta(t, 0.6, p.Rating, 1e-9)
	assert.True(t, p.Edited)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPost_NotFoundAndFailure(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE posts.uuid = $1")).
		WithArgs("missing", 1, 0).
		WillReturnRows(sqlmock.NewRows([]string{"uuid"}))
	_, err := store.GetPost(context.Background(), query.PostUUID("missing"))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE posts.uuid = $1")).
		WillReturnError(errors.New("connection reset by peer"))
	_, err = store.GetPost(context.Background(), query.PostUUID("p1"))
	assert.ErrorIs(t, err, domain.ErrStoreFailure)
	assert.NotErrorIs(t, err, domain.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEditComment_MissingIsNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(
		"UPDATE comments SET content = $1, edited = TRUE, edited_at = GREATEST(edited_at, $2) WHERE uuid = $3")).
		WithArgs("new", sqlmock.AnyArg(), "c1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.EditComment(context.Background(), "c1", "new", time.Now())
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountMarks(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT COUNT(*) FILTER (WHERE liked) AS likes, COUNT(*) FILTER (WHERE NOT liked) AS dislikes FROM post_marks WHERE post = $1")).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"likes", "dislikes"}).AddRow(int64(0), int64(1)))

	counts, err := store.CountMarks(context.Background(), postTarget)
	require.NoError(t, err)
	assert.Equal(t, domain.MarkCounts{Likes: 0, Dislikes: 1}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteMark(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM post_marks WHERE username = $1 AND post = $2")).
		WithArgs("bob", "p1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	existed, err := store.DeleteMark(context.Background(), postTarget, "bob")
	require.NoError(t, err)
	assert.True(t, existed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUser_JoinsRoleTables(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{
		"uuid", "username", "password", "email", "first_name", "last_name", "phone_number",
		"birth_date", "about", "user_specs", "registered_at",
		"class_num", "class_char", "subject", "job_title",
	}).AddRow("u1", "alice", "hash", "alice@school.uz", "Alice", "Smith", nil,
		time.Date(2008, 1, 2, 0, 0, 0, 0, time.UTC), "", "Student", time.Now(),
		int64(9), "A", nil, nil)

	mock.ExpectQuery(regexp.QuoteMeta("LEFT OUTER JOIN students ON users.username = students.username")).
		WithArgs("alice", 1, 0).
		WillReturnRows(rows)

	u, err := store.GetUser(context.Background(), query.Username("alice"))
	require.NoError(t, err)
	assert.Equal(t, domain.SpecsStudent, u.Specs.Kind)
	require.NotNil(t, u.Specs.Class)
	assert.Equal(t, "9A", u.Specs.Class.String())
	assert.Nil(t, u.PhoneNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}
