package storage

import (
	"context"
	"time"

	"github.com/UkralStul/school-board/internal/domain"
	"github.com/UkralStul/school-board/internal/query"
)

// Правила ошибок для всех реализаций:
// одиночное чтение без результата - domain.ErrNotFound;
// множественное чтение без результата - пустой срез;
// сбой ввода-вывода или таймаут - *domain.StoreError.

// PostStore - хранилище постов. Счётчики оценок и рейтинг вычисляются при чтении.
type PostStore interface {
	CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error)
	GetPost(ctx context.Context, preds ...query.PostPredicate) (*domain.Post, error)
	GetPosts(ctx context.Context, preds []query.PostPredicate, order query.Ordering, limit query.Limit) ([]*domain.Post, error)
	EditPost(ctx context.Context, uuid, content string, at time.Time) error
	EditPostTitle(ctx context.Context, uuid, title string, at time.Time) error
}

// CommentStore - хранилище комментариев.
type CommentStore interface {
	// CreateComment проверяет автора, пост и родителя в той же транзакции, что и вставку.
	CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error)
	GetComment(ctx context.Context, preds ...query.CommentPredicate) (*domain.Comment, error)
	// GetComments возвращает комментарии в порядке публикации.
	GetComments(ctx context.Context, preds ...query.CommentPredicate) ([]*domain.Comment, error)
	EditComment(ctx context.Context, uuid, content string, at time.Time) error
}

// UserStore - хранилище пользователей вместе с данными их ролей.
type UserStore interface {
	CreateUser(ctx context.Context, user *domain.User) (*domain.User, error)
	GetUser(ctx context.Context, preds ...query.UserPredicate) (*domain.User, error)
	GetUsers(ctx context.Context, preds ...query.UserPredicate) ([]*domain.User, error)
	// UpdateUser применяет уже проверенные изменения одной транзакцией.
	UpdateUser(ctx context.Context, username string, changes []domain.FieldChange) error
}

// MarkStore - хранилище оценок. На пару (пользователь, ресурс) не больше одной оценки.
type MarkStore interface {
	// ReplaceMark атомарно удаляет прежнюю оценку пары и вставляет новую.
	ReplaceMark(ctx context.Context, mark *domain.Mark) error
	// DeleteMark возвращает true, если оценка была.
	DeleteMark(ctx context.Context, target domain.Target, username string) (bool, error)
	GetMark(ctx context.Context, target domain.Target, username string) (*domain.Mark, error)
	CountMarks(ctx context.Context, target domain.Target) (domain.MarkCounts, error)
}

// Storage определяет контракт для хранилищ.
type Storage interface {
	PostStore
	CommentStore
	UserStore
	MarkStore
}
