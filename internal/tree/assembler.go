// Package tree собирает дерево ответов под постом или комментарием.
package tree

import (
	"context"
	"fmt"

	"github.com/UkralStul/school-board/internal/dataloader"
	"github.com/UkralStul/school-board/internal/domain"
	"github.com/UkralStul/school-board/internal/query"
)

// DefaultMaxDepth - глубина дерева по умолчанию.
const DefaultMaxDepth = 32

// Store - чтения, нужные сборщику.
type Store interface {
	dataloader.Source
	GetPost(ctx context.Context, preds ...query.PostPredicate) (*domain.Post, error)
	GetComment(ctx context.Context, preds ...query.CommentPredicate) (*domain.Comment, error)
}

// Assembler обходит дерево в ширину: каждый уровень ответов и авторы уровня
// загружаются одним батчем. Повторно встреченный UUID отбрасывается, а
// глубина ограничена maxDepth, поэтому обход конечен при любых данных.
type Assembler struct {
	store    Store
	maxDepth int
}

func New(store Store, maxDepth int) *Assembler {
	if maxDepth < 1 {
		maxDepth = DefaultMaxDepth
	}
	return &Assembler{store: store, maxDepth: maxDepth}
}

// Replies возвращает ответы на target с вложенными Replies. Для поста это
// комментарии верхнего уровня, для комментария - прямые ответы на него.
func (a *Assembler) Replies(ctx context.Context, target domain.Target) ([]*domain.Comment, error) {
	loaders := dataloader.For(ctx, a.store)
	visited := make(map[string]bool)

	var (
		post  *domain.Post
		level []*domain.Comment
		err   error
	)
	switch target.Kind {
	case domain.PostKind:
		post, err = a.store.GetPost(ctx, query.PostUUID(target.UUID))
		if err != nil {
			return nil, err
		}
		level, err = a.store.GetComments(ctx, query.UnderPost(post.UUID), query.TopLevel{})
		if err != nil {
			return nil, err
		}
	case domain.CommentKind:
		root, err := a.store.GetComment(ctx, query.CommentUUID(target.UUID))
		if err != nil {
			return nil, err
		}
		post, err = a.store.GetPost(ctx, query.PostUUID(root.UnderPost))
		if err != nil {
			return nil, err
		}
		visited[root.UUID] = true
		replies, err := loaders.Replies(ctx, []string{root.UUID})
		if err != nil {
			return nil, err
		}
		level = replies[0]
	default:
		return nil, fmt.Errorf("tree: unsupported target %s", target)
	}

	roots := a.admit(level, visited, post)
	level = roots
	for depth := 1; len(level) > 0; depth++ {
		if err := a.attachAuthors(ctx, loaders, level); err != nil {
			return nil, err
		}
		if depth >= a.maxDepth {
			break
		}

		ids := make([]string, len(level))
		for i, c := range level {
			ids[i] = c.UUID
		}
		replies, err := loaders.Replies(ctx, ids)
		if err != nil {
			return nil, err
		}

		var next []*domain.Comment
		for i, parent := range level {
			parent.Replies = a.admit(replies[i], visited, post)
			next = append(next, parent.Replies...)
		}
		level = next
	}
	return roots, nil
}

// admit отбрасывает уже встреченные комментарии и привязывает пост к остальным.
func (a *Assembler) admit(comments []*domain.Comment, visited map[string]bool, post *domain.Post) []*domain.Comment {
	out := make([]*domain.Comment, 0, len(comments))
	for _, c := range comments {
		if visited[c.UUID] {
			continue
		}
		visited[c.UUID] = true
		c.Post = post
		out = append(out, c)
	}
	return out
}

func (a *Assembler) attachAuthors(ctx context.Context, loaders *dataloader.Loaders, level []*domain.Comment) error {
	seen := make(map[string]bool, len(level))
	names := make([]string, 0, len(level))
	for _, c := range level {
		if !seen[c.Author] {
			seen[c.Author] = true
			names = append(names, c.Author)
		}
	}
	users, err := loaders.Users(ctx, names)
	if err != nil {
		return err
	}
	for _, c := range level {
		c.AuthorProfile = users[c.Author].Public()
	}
	return nil
}
