package query

import (
	"slices"

	"github.com/UkralStul/school-board/internal/domain"
)

// CommentPredicate - условие на комментарии.
type CommentPredicate interface {
	Predicate
	MatchComment(c *domain.Comment) bool
}

type CommentUUID string

func (u CommentUUID) Fragment() Fragment {
	return Fragment{SQL: "comments.uuid = ?", Args: []any{string(u)}}
}

func (u CommentUUID) MatchComment(c *domain.Comment) bool { return c.UUID == string(u) }

// UnderPost - все комментарии поста, на любой глубине.
type UnderPost string

func (u UnderPost) Fragment() Fragment {
	return Fragment{SQL: "comments.under_post = ?", Args: []any{string(u)}}
}

func (u UnderPost) MatchComment(c *domain.Comment) bool { return c.UnderPost == string(u) }

// RepliesFor - прямые ответы на комментарий.
type RepliesFor string

func (r RepliesFor) Fragment() Fragment {
	return Fragment{SQL: "comments.replies_for = ?", Args: []any{string(r)}}
}

func (r RepliesFor) MatchComment(c *domain.Comment) bool {
	return c.RepliesFor != nil && *c.RepliesFor == string(r)
}

// RepliesForAny - прямые ответы на любой из комментариев. Используется батчингом.
type RepliesForAny []string

func (r RepliesForAny) Fragment() Fragment {
	return Fragment{SQL: "comments.replies_for IN ?", Args: []any{[]string(r)}}
}

func (r RepliesForAny) MatchComment(c *domain.Comment) bool {
	return c.RepliesFor != nil && slices.Contains(r, *c.RepliesFor)
}

// TopLevel - комментарии, написанные прямо к посту.
type TopLevel struct{}

func (TopLevel) Fragment() Fragment {
	return Fragment{SQL: "comments.replies_for IS NULL"}
}

func (TopLevel) MatchComment(c *domain.Comment) bool { return c.RepliesFor == nil }

type CommentAuthor string

func (a CommentAuthor) Fragment() Fragment {
	return Fragment{SQL: "comments.author = ?", Args: []any{string(a)}}
}

func (a CommentAuthor) MatchComment(c *domain.Comment) bool { return c.Author == string(a) }

// CommentKey - ключ сортировки комментариев.
type CommentKey int

const ByCommentPublishedAt CommentKey = iota

func (CommentKey) Column() string { return "comments.published_at" }

// SortComments упорядочивает комментарии в памяти.
func SortComments(comments []*domain.Comment, o Ordering) {
	if _, ok := o.Key.(CommentKey); !ok {
		return
	}
	slices.SortStableFunc(comments, func(a, b *domain.Comment) int {
		if o.Direction == Descending {
			return b.PublishedAt.Compare(a.PublishedAt)
		}
		return a.PublishedAt.Compare(b.PublishedAt)
	})
}

// MatchComment проверяет все предикаты.
func MatchComment(c *domain.Comment, preds []CommentPredicate) bool {
	for _, pred := range preds {
		if !pred.MatchComment(c) {
			return false
		}
	}
	return true
}
