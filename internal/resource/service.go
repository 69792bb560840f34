// Package resource даёт постам и комментариям общий контракт:
// их можно оценивать, комментировать и редактировать.
package resource

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/UkralStul/school-board/internal/domain"
	"github.com/UkralStul/school-board/internal/events"
	"github.com/UkralStul/school-board/internal/logger"
	"github.com/UkralStul/school-board/internal/marks"
	"github.com/UkralStul/school-board/internal/query"
	"github.com/UkralStul/school-board/internal/storage"
	"github.com/UkralStul/school-board/internal/tree"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const (
	MaxTitleLength   = 255
	MaxCommentLength = 2000
)

// Publisher получает события о новых комментариях и оценках.
type Publisher interface {
	Publish(e events.Event)
}

// Service - операции над ресурсами.
type Service struct {
	store     storage.Storage
	marks     *marks.Engine
	tree      *tree.Assembler
	publisher Publisher
	log       logger.Logger
	now       func() time.Time
}

type Option func(*Service)

func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithLogger(l logger.Logger) Option {
	return func(s *Service) { s.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store storage.Storage, engine *marks.Engine, assembler *tree.Assembler, opts ...Option) *Service {
	s := &Service{
		store: store,
		marks: engine,
		tree:  assembler,
		log:   logger.Nop{},
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) publish(e events.Event) {
	if s.publisher != nil {
		s.publisher.Publish(e)
	}
}

// wellFormed отсекает идентификаторы, которые не могут быть UUID:
// такой ресурс заведомо не существует, и в хранилище идти незачем.
func wellFormed(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Find ищет ресурс по UUID: сначала среди комментариев, затем среди постов.
func (s *Service) Find(ctx context.Context, id string) (Ref, error) {
	if !wellFormed(id) {
		return nil, domain.ErrNotFound
	}
	comment, err := s.store.GetComment(ctx, query.CommentUUID(id))
	if err == nil {
		return CommentRef{Comment: comment}, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	post, err := s.store.GetPost(ctx, query.PostUUID(id))
	if err != nil {
		return nil, err
	}
	return PostRef{Post: post}, nil
}

// Reload перечитывает ресурс вместе со свежими агрегатами.
func (s *Service) Reload(ctx context.Context, ref Ref) (Ref, error) {
	switch r := ref.(type) {
	case PostRef:
		post, err := s.store.GetPost(ctx, query.PostUUID(r.Post.UUID))
		if err != nil {
			return nil, err
		}
		return PostRef{Post: post}, nil
	case CommentRef:
		comment, err := s.store.GetComment(ctx, query.CommentUUID(r.Comment.UUID))
		if err != nil {
			return nil, err
		}
		return CommentRef{Comment: comment}, nil
	}
	return nil, fmt.Errorf("resource: unknown ref %T", ref)
}

func invalid(reason string) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidContent, reason)
}

func checkBody(content string, limit int) error {
	if strings.TrimSpace(content) == "" {
		return invalid("content is empty")
	}
	if limit > 0 && utf8.RuneCountInString(content) > limit {
		return invalid(fmt.Sprintf("content is longer than %d characters", limit))
	}
	return nil
}

func checkTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return invalid("title is empty")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return invalid(fmt.Sprintf("title is longer than %d characters", MaxTitleLength))
	}
	return nil
}

func bodyLimit(ref Ref) int {
	if _, ok := ref.(CommentRef); ok {
		return MaxCommentLength
	}
	return 0
}

// PublishPost публикует пост от имени author.
func (s *Service) PublishPost(ctx context.Context, author, title, content string, tags []string) (*domain.Post, error) {
	if err := checkTitle(title); err != nil {
		return nil, err
	}
	if err := checkBody(content, 0); err != nil {
		return nil, err
	}
	post, err := s.store.CreatePost(ctx, &domain.Post{
		Title:       title,
		Content:     content,
		Author:      author,
		Tags:        normalizeTags(tags),
		PublishedAt: s.now(),
	})
	if err != nil {
		return nil, err
	}
	s.log.Infof("post %s published by %s", post.UUID, author)
	return post, nil
}

func normalizeTags(tags []string) pq.StringArray {
	out := make(pq.StringArray, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

// Comment оставляет комментарий к ресурсу. Ответ на комментарий попадает
// под тот же пост, что и родитель.
func (s *Service) Comment(ctx context.Context, ref Ref, content, author string) (*domain.Comment, error) {
	if err := checkBody(content, MaxCommentLength); err != nil {
		return nil, err
	}
	comment := &domain.Comment{
		UnderPost:   ref.PostUUID(),
		Author:      author,
		Content:     content,
		PublishedAt: s.now(),
	}
	if r, ok := ref.(CommentRef); ok {
		parent := r.Comment.UUID
		comment.RepliesFor = &parent
	}

	created, err := s.store.CreateComment(ctx, comment)
	if err != nil {
		return nil, err
	}
	s.log.Infof("comment %s added to %s by %s", created.UUID, ref.Target(), author)
	s.publish(events.Event{Type: events.CommentAdded, PostUUID: created.UnderPost, Comment: created})
	return created, nil
}

// Like ставит лайк от username.
func (s *Service) Like(ctx context.Context, ref Ref, username string) (domain.MarkCounts, error) {
	return s.Mark(ctx, ref, username, true)
}

// Dislike ставит дизлайк от username.
func (s *Service) Dislike(ctx context.Context, ref Ref, username string) (domain.MarkCounts, error) {
	return s.Mark(ctx, ref, username, false)
}

// Mark ставит оценку и возвращает новые агрегаты.
func (s *Service) Mark(ctx context.Context, ref Ref, username string, liked bool) (domain.MarkCounts, error) {
	counts, err := s.marks.Mark(ctx, ref.Target(), username, liked)
	if err != nil {
		return domain.MarkCounts{}, err
	}
	s.markChanged(ref, counts)
	return counts, nil
}

// CancelMark снимает оценку username.
func (s *Service) CancelMark(ctx context.Context, ref Ref, username string) (domain.MarkCounts, error) {
	counts, err := s.marks.Cancel(ctx, ref.Target(), username)
	if err != nil {
		return domain.MarkCounts{}, err
	}
	s.markChanged(ref, counts)
	return counts, nil
}

// MarkState - текущая оценка username на ресурсе.
func (s *Service) MarkState(ctx context.Context, ref Ref, username string) (marks.State, error) {
	return s.marks.State(ctx, ref.Target(), username)
}

func (s *Service) markChanged(ref Ref, counts domain.MarkCounts) {
	target := ref.Target()
	s.publish(events.Event{Type: events.MarkChanged, PostUUID: ref.PostUUID(), Target: &target, Counts: &counts})
}

func authorize(ref Ref, requester *domain.User) error {
	if requester == nil || requester.Username != ref.Author() {
		return domain.ErrNotAuthor
	}
	return nil
}

// Edit заменяет текст ресурса. Править может только автор.
func (s *Service) Edit(ctx context.Context, ref Ref, content string, requester *domain.User) error {
	if err := authorize(ref, requester); err != nil {
		return err
	}
	if err := checkBody(content, bodyLimit(ref)); err != nil {
		return err
	}

	at := s.now()
	switch r := ref.(type) {
	case PostRef:
		return s.store.EditPost(ctx, r.Post.UUID, content, at)
	case CommentRef:
		return s.store.EditComment(ctx, r.Comment.UUID, content, at)
	}
	return fmt.Errorf("resource: unknown ref %T", ref)
}

// EditTitle меняет заголовок поста. Править может только автор.
func (s *Service) EditTitle(ctx context.Context, ref Ref, title string, requester *domain.User) error {
	r, ok := ref.(PostRef)
	if !ok {
		return invalid("only posts have a title")
	}
	if err := authorize(ref, requester); err != nil {
		return err
	}
	if err := checkTitle(title); err != nil {
		return err
	}
	return s.store.EditPostTitle(ctx, r.Post.UUID, title, s.now())
}

// Post возвращает пост по UUID.
func (s *Service) Post(ctx context.Context, id string) (*domain.Post, error) {
	if !wellFormed(id) {
		return nil, domain.ErrNotFound
	}
	return s.store.GetPost(ctx, query.PostUUID(id))
}

// PostFilter - параметры выборки постов. Нулевые поля дают умолчания:
// сортировка по рейтингу (лучшие первыми), первая страница по 25.
type PostFilter struct {
	Tags   []string
	Author string
	Order  query.Ordering
	Limit  query.Limit
}

// Posts возвращает страницу постов по фильтру.
func (s *Service) Posts(ctx context.Context, f PostFilter) ([]*domain.Post, error) {
	var preds []query.PostPredicate
	if len(f.Tags) > 0 {
		preds = append(preds, query.TagsContain(f.Tags))
	}
	if f.Author != "" {
		preds = append(preds, query.PostAuthor(f.Author))
	}
	order := f.Order
	if order.Key == nil {
		order = query.Up(query.ByRating)
	}
	limit := f.Limit
	if limit.Count <= 0 {
		limit = query.Page(1, query.DefaultPageSize)
	}
	return s.store.GetPosts(ctx, preds, order, limit)
}

// Thread возвращает дерево ответов на ресурс.
func (s *Service) Thread(ctx context.Context, ref Ref) ([]*domain.Comment, error) {
	return s.tree.Replies(ctx, ref.Target())
}
