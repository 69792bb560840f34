package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/UkralStul/school-board/internal/domain"
	"github.com/UkralStul/school-board/internal/query"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"gorm.io/gorm"
)

// markCounts - агрегаты оценок ресурса, считаются по таблице оценок его вида.
func markCounts(d domain.Descriptor) string {
	return fmt.Sprintf(
		"COUNT(%[1]s.uuid) FILTER (WHERE %[1]s.liked) AS likes, "+
			"COUNT(%[1]s.uuid) FILTER (WHERE NOT %[1]s.liked) AS dislikes",
		d.MarkTable)
}

func markJoin(d domain.Descriptor) string {
	return fmt.Sprintf("LEFT JOIN %[1]s ON %[1]s.%[2]s = %[3]s.uuid", d.MarkTable, d.MarkColumn, d.Table)
}

var (
	postDesc = domain.PostKind.Descriptor()

	postsSelect = "SELECT posts.uuid, posts.title, posts.content, posts.author, posts.tags, " +
		"posts.published_at, posts.edited, posts.edited_at, " +
		markCounts(postDesc) + ", " +
		"(COUNT(post_marks.uuid) FILTER (WHERE post_marks.liked))::float8 / (COUNT(post_marks.uuid) + 1) AS rating " +
		"FROM posts " + markJoin(postDesc)
)

const postsGroupBy = "posts.uuid"

// === Post Methods ===

func (s *Store) CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	stored := *post
	if stored.UUID == "" {
		stored.UUID = uuid.NewString()
	}
	if stored.PublishedAt.IsZero() {
		stored.PublishedAt = time.Now().UTC()
	}
	if stored.Tags == nil {
		stored.Tags = pq.StringArray{}
	}
	stored.EditedState = domain.NotEdited()

	// Автор проверяется в той же транзакции, что и вставка.
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := requireUser(tx, stored.Author); err != nil {
			return err
		}
		return tx.Create(&stored).Error
	})
	if err != nil {
		return nil, fail("create post", err)
	}
	return &stored, nil
}

func (s *Store) selectPosts(ctx context.Context, op string, preds []query.PostPredicate, order query.Ordering, limit query.Limit) ([]*domain.Post, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	sql, args := query.Compose(postsSelect, preds...).
		GroupBy(postsGroupBy).
		OrderBy(order).
		Paginate(limit).
		Build()

	posts := make([]*domain.Post, 0)
	if err := db.Raw(sql, args...).Scan(&posts).Error; err != nil {
		return nil, fail(op, err)
	}
	return posts, nil
}

func (s *Store) GetPost(ctx context.Context, preds ...query.PostPredicate) (*domain.Post, error) {
	posts, err := s.selectPosts(ctx, "get post", preds, query.Down(query.ByPublishedAt), query.Limit{Count: 1})
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, domain.ErrNotFound
	}
	return posts[0], nil
}

func (s *Store) GetPosts(ctx context.Context, preds []query.PostPredicate, order query.Ordering, limit query.Limit) ([]*domain.Post, error) {
	return s.selectPosts(ctx, "get posts", preds, order, limit)
}

func (s *Store) EditPost(ctx context.Context, id, content string, at time.Time) error {
	return s.edit(ctx, postDesc, "content", content, id, at)
}

func (s *Store) EditPostTitle(ctx context.Context, id, title string, at time.Time) error {
	return s.edit(ctx, postDesc, "title", title, id, at)
}

// edit меняет одну колонку ресурса и отмечает правку. GREATEST не даёт
// времени правки уменьшиться и пропускает NULL.
func (s *Store) edit(ctx context.Context, d domain.Descriptor, column, value, id string, at time.Time) error {
	db, cancel := s.conn(ctx)
	defer cancel()

	sql := fmt.Sprintf(
		"UPDATE %s SET %s = ?, edited = TRUE, edited_at = GREATEST(edited_at, ?) WHERE uuid = ?",
		d.ContentTable, column)
	res := db.Exec(sql, value, at, id)
	if res.Error != nil {
		return fail("edit "+d.Kind.String(), res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
