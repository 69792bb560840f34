package dataloader

import (
	"context"
	"net/http"
	"time"

	"github.com/UkralStul/school-board/internal/domain"
	"github.com/UkralStul/school-board/internal/query"
	"github.com/UkralStul/school-board/internal/storage"
	"github.com/graph-gophers/dataloader"
)

type contextKey string

const key = contextKey("dataloaders")

// Loaders содержит все дата-лоадеры приложения.
type Loaders struct {
	// RepliesByParent: UUID комментария -> []*domain.Comment прямых ответов.
	RepliesByParent *dataloader.Loader
	// UsersByUsername: username -> *domain.User (nil, если пользователя нет).
	UsersByUsername *dataloader.Loader
}

// Source - то, из чего лоадеры читают данные.
type Source interface {
	GetComments(ctx context.Context, preds ...query.CommentPredicate) ([]*domain.Comment, error)
	GetUsers(ctx context.Context, preds ...query.UserPredicate) ([]*domain.User, error)
}

var _ Source = (storage.Storage)(nil)

// NewLoaders создает лоадеры над хранилищем.
func NewLoaders(src Source) *Loaders {
	return &Loaders{
		// Ответы не кэшируются: дерево всегда строится по свежим данным.
		RepliesByParent: dataloader.NewBatchedLoader(repliesBatch(src),
			dataloader.WithWait(time.Millisecond),
			dataloader.WithCache(&dataloader.NoCache{})),
		UsersByUsername: dataloader.NewBatchedLoader(usersBatch(src),
			dataloader.WithWait(time.Millisecond)),
	}
}

func failAll(n int, err error) []*dataloader.Result {
	results := make([]*dataloader.Result, n)
	for i := range results {
		results[i] = &dataloader.Result{Error: err}
	}
	return results
}

func repliesBatch(src Source) dataloader.BatchFunc {
	return func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		parentIDs := keys.Keys()

		// Один запрос к хранилищу на весь батч
		comments, err := src.GetComments(ctx, query.RepliesForAny(parentIDs))
		if err != nil {
			return failAll(len(keys), err)
		}

		byParent := make(map[string][]*domain.Comment, len(parentIDs))
		for _, c := range comments {
			if c.RepliesFor != nil {
				byParent[*c.RepliesFor] = append(byParent[*c.RepliesFor], c)
			}
		}

		// Формируем результат в том же порядке, что и ключи
		results := make([]*dataloader.Result, len(keys))
		for i, parentID := range parentIDs {
			replies := byParent[parentID]
			if replies == nil {
				replies = []*domain.Comment{}
			}
			results[i] = &dataloader.Result{Data: replies}
		}
		return results
	}
}

func usersBatch(src Source) dataloader.BatchFunc {
	return func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		usernames := keys.Keys()

		users, err := src.GetUsers(ctx, query.UsernameIn(usernames))
		if err != nil {
			return failAll(len(keys), err)
		}

		byName := make(map[string]*domain.User, len(users))
		for _, u := range users {
			byName[u.Username] = u
		}

		results := make([]*dataloader.Result, len(keys))
		for i, name := range usernames {
			results[i] = &dataloader.Result{Data: byName[name]}
		}
		return results
	}
}

// Middleware для внедрения лоадеров в контекст запроса.
func Middleware(src Source, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), key, NewLoaders(src))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// For извлекает лоадеры из контекста. Вне запроса создает новые над src.
func For(ctx context.Context, src Source) *Loaders {
	if l, ok := ctx.Value(key).(*Loaders); ok {
		return l
	}
	return NewLoaders(src)
}

// Replies загружает прямые ответы на все parentIDs одним батчем.
// Порядок результата совпадает с порядком parentIDs.
func (l *Loaders) Replies(ctx context.Context, parentIDs []string) ([][]*domain.Comment, error) {
	data, errs := l.RepliesByParent.LoadMany(ctx, dataloader.NewKeysFromStrings(parentIDs))()
	if err := firstError(errs); err != nil {
		return nil, err
	}
	out := make([][]*domain.Comment, len(data))
	for i, d := range data {
		out[i], _ = d.([]*domain.Comment)
	}
	return out, nil
}

// Users загружает пользователей по логинам одним батчем.
func (l *Loaders) Users(ctx context.Context, usernames []string) (map[string]*domain.User, error) {
	data, errs := l.UsersByUsername.LoadMany(ctx, dataloader.NewKeysFromStrings(usernames))()
	if err := firstError(errs); err != nil {
		return nil, err
	}
	out := make(map[string]*domain.User, len(data))
	for _, d := range data {
		if u, ok := d.(*domain.User); ok && u != nil {
			out[u.Username] = u
		}
	}
	return out, nil
}

func firstError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
