package query

import (
	"cmp"
	"slices"

	"github.com/UkralStul/school-board/internal/domain"
	"github.com/lib/pq"
)

// PostPredicate - условие на посты, вычислимое и в SQL, и в памяти.
type PostPredicate interface {
	Predicate
	MatchPost(p *domain.Post) bool
}

type PostUUID string

func (u PostUUID) Fragment() Fragment {
	return Fragment{SQL: "posts.uuid = ?", Args: []any{string(u)}}
}

func (u PostUUID) MatchPost(p *domain.Post) bool { return p.UUID == string(u) }

type PostAuthor string

func (a PostAuthor) Fragment() Fragment {
	return Fragment{SQL: "posts.author = ?", Args: []any{string(a)}}
}

func (a PostAuthor) MatchPost(p *domain.Post) bool { return p.Author == string(a) }

// TagsContain выбирает посты, теги которых включают все перечисленные.
// Пустой список подходит любому посту.
type TagsContain []string

func (t TagsContain) unique() pq.StringArray {
	out := make(pq.StringArray, 0, len(t))
	for _, tag := range t {
		if !slices.Contains(out, tag) {
			out = append(out, tag)
		}
	}
	return out
}

func (t TagsContain) Fragment() Fragment {
	return Fragment{SQL: "posts.tags @> ?", Args: []any{t.unique()}}
}

func (t TagsContain) MatchPost(p *domain.Post) bool {
	for _, tag := range t {
		if !slices.Contains(p.Tags, tag) {
			return false
		}
	}
	return true
}

// PostKey - ключ сортировки постов.
type PostKey int

const (
	ByRating PostKey = iota
	ByPublishedAt
)

func (k PostKey) Column() string {
	if k == ByPublishedAt {
		return "posts.published_at"
	}
	return "rating"
}

// ComparePosts сравнивает посты по ключу по возрастанию.
func (k PostKey) ComparePosts(a, b *domain.Post) int {
	if k == ByPublishedAt {
		return a.PublishedAt.Compare(b.PublishedAt)
	}
	return cmp.Compare(a.Rating, b.Rating)
}

// ParsePostKey разбирает имя ключа из запроса; неизвестное имя даёт рейтинг.
func ParsePostKey(name string) PostKey {
	if name == "published_at" {
		return ByPublishedAt
	}
	return ByRating
}

// SortPosts упорядочивает посты в памяти так же, как ORDER BY в SQL.
func SortPosts(posts []*domain.Post, o Ordering) {
	key, ok := o.Key.(PostKey)
	if !ok {
		return
	}
	slices.SortStableFunc(posts, func(a, b *domain.Post) int {
		if o.Direction == Descending {
			return key.ComparePosts(b, a)
		}
		return key.ComparePosts(a, b)
	})
}

// MatchPost проверяет все предикаты.
func MatchPost(p *domain.Post, preds []PostPredicate) bool {
	for _, pred := range preds {
		if !pred.MatchPost(p) {
			return false
		}
	}
	return true
}
