package postgres

import (
	"context"
	"time"

	"github.com/UkralStul/school-board/internal/domain"
	"github.com/UkralStul/school-board/internal/query"
	"github.com/google/uuid"

	"gorm.io/gorm"
)

var (
	commentDesc = domain.CommentKind.Descriptor()

	commentsSelect = "SELECT comments.uuid, comments.under_post, comments.replies_for, comments.author, " +
		"comments.content, comments.published_at, comments.edited, comments.edited_at, " +
		markCounts(commentDesc) + " " +
		"FROM comments " + markJoin(commentDesc)
)

const commentsGroupBy = "comments.uuid"

// === Comment Methods ===

func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	stored := *comment
	if stored.UUID == "" {
		stored.UUID = uuid.NewString()
	}
	if stored.PublishedAt.IsZero() {
		stored.PublishedAt = time.Now().UTC()
	}
	stored.EditedState = domain.NotEdited()
	stored.AuthorProfile, stored.Post, stored.Replies = nil, nil, nil

	// Проверяем автора, пост и родителя в одной транзакции со вставкой
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := requireUser(tx, stored.Author); err != nil {
			return err
		}

		var posts int64
		if err := tx.Model(&domain.Post{}).Where("uuid = ?", stored.UnderPost).Count(&posts).Error; err != nil {
			return err
		}
		if posts == 0 {
			return domain.ErrTargetPostNotFound
		}

		// Родитель обязан лежать под тем же постом
		if stored.RepliesFor != nil {
			var parents int64
			if err := tx.Model(&domain.Comment{}).
				Where("uuid = ? AND under_post = ?", *stored.RepliesFor, stored.UnderPost).
				Count(&parents).Error; err != nil {
				return err
			}
			if parents == 0 {
				return domain.ErrParentCommentNotFound
			}
		}

		return tx.Create(&stored).Error
	})
	if err != nil {
		return nil, fail("create comment", err)
	}
	return &stored, nil
}

func (s *Store) selectComments(ctx context.Context, op string, preds []query.CommentPredicate, limit *query.Limit) ([]*domain.Comment, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	c := query.Compose(commentsSelect, preds...).
		GroupBy(commentsGroupBy).
		OrderBy(query.Down(query.ByCommentPublishedAt))
	if limit != nil {
		c.Paginate(*limit)
	}
	sql, args := c.Build()

	comments := make([]*domain.Comment, 0)
	if err := db.Raw(sql, args...).Scan(&comments).Error; err != nil {
		return nil, fail(op, err)
	}
	return comments, nil
}

func (s *Store) GetComment(ctx context.Context, preds ...query.CommentPredicate) (*domain.Comment, error) {
	comments, err := s.selectComments(ctx, "get comment", preds, &query.Limit{Count: 1})
	if err != nil {
		return nil, err
	}
	if len(comments) == 0 {
		return nil, domain.ErrNotFound
	}
	return comments[0], nil
}

func (s *Store) GetComments(ctx context.Context, preds ...query.CommentPredicate) ([]*domain.Comment, error) {
	return s.selectComments(ctx, "get comments", preds, nil)
}

func (s *Store) EditComment(ctx context.Context, id, content string, at time.Time) error {
	return s.edit(ctx, commentDesc, "content", content, id, at)
}
