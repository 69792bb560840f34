package inmemory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/UkralStul/school-board/internal/domain"
	"github.com/UkralStul/school-board/internal/query"
	"github.com/UkralStul/school-board/internal/storage"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

var _ storage.Storage = (*Store)(nil)

type markKey struct {
	kind     domain.Kind
	resource string
	username string
}

// Store реализует интерфейс Storage в памяти.
// Наружу отдаются копии, счётчики оценок считаются по карте marks при каждом чтении.
type Store struct {
	mu       sync.RWMutex
	posts    map[string]*domain.Post
	comments map[string]*domain.Comment
	users    map[string]*domain.User // map[username]
	marks    map[markKey]*domain.Mark
}

// New создает новый экземпляр in-memory хранилища.
func New() *Store {
	return &Store{
		posts:    make(map[string]*domain.Post),
		comments: make(map[string]*domain.Comment),
		users:    make(map[string]*domain.User),
		marks:    make(map[markKey]*domain.Mark),
	}
}

func alive(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return &domain.StoreError{Op: op, Err: err}
	}
	return nil
}

// countsLocked считает оценки ресурса. Вызывается под mu.
func (s *Store) countsLocked(target domain.Target) domain.MarkCounts {
	var c domain.MarkCounts
	for k, m := range s.marks {
		if k.kind != target.Kind || k.resource != target.UUID {
			continue
		}
		if m.Liked {
			c.Likes++
		} else {
			c.Dislikes++
		}
	}
	return c
}

func (s *Store) postViewLocked(p *domain.Post) *domain.Post {
	out := *p
	out.Tags = slices.Clone(p.Tags)
	c := s.countsLocked(domain.Target{Kind: domain.PostKind, UUID: p.UUID})
	out.Likes, out.Dislikes = c.Likes, c.Dislikes
	out.Rating = domain.Rating(c.Likes, c.Dislikes)
	return &out
}

func (s *Store) commentViewLocked(c *domain.Comment) *domain.Comment {
	out := *c
	out.Replies = nil
	counts := s.countsLocked(domain.Target{Kind: domain.CommentKind, UUID: c.UUID})
	out.Likes, out.Dislikes = counts.Likes, counts.Dislikes
	return &out
}

func cloneUser(u *domain.User) *domain.User {
	out := *u
	if u.Specs.Class != nil {
		class := *u.Specs.Class
		out.Specs.Class = &class
	}
	if u.PhoneNumber != nil {
		phone := *u.PhoneNumber
		out.PhoneNumber = &phone
	}
	return &out
}

// === Post Methods ===

func (s *Store) CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	if err := alive(ctx, "create post"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[post.Author]; !ok {
		return nil, domain.ErrAuthorNotFound
	}

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
	stored.AuthorProfile = nil
	s.posts[stored.UUID] = &stored
	return s.postViewLocked(&stored), nil
}

func (s *Store) matchPostsLocked(preds []query.PostPredicate) []*domain.Post {
	out := make([]*domain.Post, 0)
	for _, p := range s.posts {
		view := s.postViewLocked(p)
		if query.MatchPost(view, preds) {
			out = append(out, view)
		}
	}
	// Порядок карты случаен, поэтому сначала фиксируем порядок публикации.
	slices.SortStableFunc(out, func(a, b *domain.Post) int {
		if c := a.PublishedAt.Compare(b.PublishedAt); c != 0 {
			return c
		}
		return strings.Compare(a.UUID, b.UUID)
	})
	return out
}

func (s *Store) GetPost(ctx context.Context, preds ...query.PostPredicate) (*domain.Post, error) {
	if err := alive(ctx, "get post"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	posts := s.matchPostsLocked(preds)
	if len(posts) == 0 {
		return nil, domain.ErrNotFound
	}
	return posts[0], nil
}

func (s *Store) GetPosts(ctx context.Context, preds []query.PostPredicate, order query.Ordering, limit query.Limit) ([]*domain.Post, error) {
	if err := alive(ctx, "get posts"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	posts := s.matchPostsLocked(preds)
	query.SortPosts(posts, order)
	start, end := limit.Window(len(posts))
	return posts[start:end], nil
}

func (s *Store) EditPost(ctx context.Context, id, content string, at time.Time) error {
	return s.editPost(ctx, id, at, func(p *domain.Post) { p.Content = content })
}

func (s *Store) EditPostTitle(ctx context.Context, id, title string, at time.Time) error {
	return s.editPost(ctx, id, at, func(p *domain.Post) { p.Title = title })
}

func (s *Store) editPost(ctx context.Context, id string, at time.Time, apply func(*domain.Post)) error {
	if err := alive(ctx, "edit post"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[id]
	if !ok {
		return domain.ErrNotFound
	}
	apply(post)
	post.EditedState = post.EditedState.Touch(at)
	return nil
}

// === Comment Methods ===

func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	if err := alive(ctx, "create comment"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[comment.Author]; !ok {
		return nil, domain.ErrAuthorNotFound
	}
	if _, ok := s.posts[comment.UnderPost]; !ok {
		return nil, domain.ErrTargetPostNotFound
	}
	if comment.RepliesFor != nil {
		parent, ok := s.comments[*comment.RepliesFor]
		if !ok || parent.UnderPost != comment.UnderPost {
			return nil, domain.ErrParentCommentNotFound
		}
	}

	stored := *comment
	if stored.UUID == "" {
		stored.UUID = uuid.NewString()
	}
	if stored.PublishedAt.IsZero() {
		stored.PublishedAt = time.Now().UTC()
	}
	stored.EditedState = domain.NotEdited()
	stored.AuthorProfile, stored.Post, stored.Replies = nil, nil, nil
	s.comments[stored.UUID] = &stored
	return s.commentViewLocked(&stored), nil
}

func (s *Store) matchCommentsLocked(preds []query.CommentPredicate) []*domain.Comment {
	out := make([]*domain.Comment, 0)
	for _, c := range s.comments {
		if query.MatchComment(c, preds) {
			out = append(out, s.commentViewLocked(c))
		}
	}
	slices.SortStableFunc(out, func(a, b *domain.Comment) int {
		if c := a.PublishedAt.Compare(b.PublishedAt); c != 0 {
			return c
		}
		return strings.Compare(a.UUID, b.UUID)
	})
	return out
}

func (s *Store) GetComment(ctx context.Context, preds ...query.CommentPredicate) (*domain.Comment, error) {
	if err := alive(ctx, "get comment"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	comments := s.matchCommentsLocked(preds)
	if len(comments) == 0 {
		return nil, domain.ErrNotFound
	}
	return comments[0], nil
}

func (s *Store) GetComments(ctx context.Context, preds ...query.CommentPredicate) ([]*domain.Comment, error) {
	if err := alive(ctx, "get comments"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.matchCommentsLocked(preds), nil
}

func (s *Store) EditComment(ctx context.Context, id, content string, at time.Time) error {
	if err := alive(ctx, "edit comment"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	comment, ok := s.comments[id]
	if !ok {
		return domain.ErrNotFound
	}
	comment.Content = content
	comment.EditedState = comment.EditedState.Touch(at)
	return nil
}

// === User Methods ===

func (s *Store) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	if err := alive(ctx, "create user"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.Username]; ok {
		return nil, domain.ErrUsernameTaken
	}
	stored := cloneUser(user)
	if stored.UUID == "" {
		stored.UUID = uuid.NewString()
	}
	if stored.RegisteredAt.IsZero() {
		stored.RegisteredAt = time.Now().UTC()
	}
	if stored.Specs.Kind == "" {
		stored.Specs = domain.Other()
	}
	stored.SpecsKind = stored.Specs.Kind
	s.users[stored.Username] = stored
	return cloneUser(stored), nil
}

func (s *Store) matchUsersLocked(preds []query.UserPredicate) []*domain.User {
	out := make([]*domain.User, 0)
	for _, u := range s.users {
		if query.MatchUser(u, preds) {
			out = append(out, cloneUser(u))
		}
	}
	slices.SortFunc(out, func(a, b *domain.User) int {
		return strings.Compare(a.Username, b.Username)
	})
	return out
}

func (s *Store) GetUser(ctx context.Context, preds ...query.UserPredicate) (*domain.User, error) {
	if err := alive(ctx, "get user"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := s.matchUsersLocked(preds)
	if len(users) == 0 {
		return nil, domain.ErrNotFound
	}
	return users[0], nil
}

func (s *Store) GetUsers(ctx context.Context, preds ...query.UserPredicate) ([]*domain.User, error) {
	if err := alive(ctx, "get users"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.matchUsersLocked(preds), nil
}

func (s *Store) UpdateUser(ctx context.Context, username string, changes []domain.FieldChange) error {
	if err := alive(ctx, "update user"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.users[username]
	if !ok {
		return domain.ErrNotFound
	}
	// Все изменения применяются к копии и публикуются разом.
	u := cloneUser(current)
	for _, ch := range changes {
		switch ch.Field {
		case domain.FieldPassword:
			u.Password = ch.StringValue()
		case domain.FieldAbout:
			u.About = ch.StringValue()
		case domain.FieldEmail:
			u.Email = ch.StringValue()
		case domain.FieldPhoneNumber:
			if ch.Value == nil {
				u.PhoneNumber = nil
			} else {
				phone := *ch.Value
				u.PhoneNumber = &phone
			}
		case domain.FieldFirstName:
			u.FirstName = ch.StringValue()
		case domain.FieldLastName:
			u.LastName = ch.StringValue()
		case domain.FieldJobTitle:
			u.Specs.JobTitle = ch.StringValue()
		case domain.FieldSubject:
			u.Specs.Subject = domain.Subject(ch.StringValue())
		case domain.FieldClass:
			if ch.Class != nil {
				class := *ch.Class
				u.Specs.Class = &class
			}
		}
	}
	s.users[username] = u
	return nil
}

// === Mark Methods ===

func keyOf(target domain.Target, username string) markKey {
	return markKey{kind: target.Kind, resource: target.UUID, username: username}
}

func (s *Store) ReplaceMark(ctx context.Context, mark *domain.Mark) error {
	if err := alive(ctx, "replace mark"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *mark
	if stored.UUID == "" {
		stored.UUID = uuid.NewString()
	}
	if stored.MarkedAt.IsZero() {
		stored.MarkedAt = time.Now().UTC()
	}
	// Запись по ключу пары сама заменяет прежнюю оценку.
	s.marks[keyOf(mark.Target, mark.Username)] = &stored
	return nil
}

func (s *Store) DeleteMark(ctx context.Context, target domain.Target, username string) (bool, error) {
	if err := alive(ctx, "delete mark"); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	k := keyOf(target, username)
	_, ok := s.marks[k]
	delete(s.marks, k)
	return ok, nil
}

func (s *Store) GetMark(ctx context.Context, target domain.Target, username string) (*domain.Mark, error) {
	if err := alive(ctx, "get mark"); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.marks[keyOf(target, username)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *m
	return &out, nil
}

func (s *Store) CountMarks(ctx context.Context, target domain.Target) (domain.MarkCounts, error) {
	if err := alive(ctx, "count marks"); err != nil {
		return domain.MarkCounts{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countsLocked(target), nil
}
