// Package marks ведёт оценки (лайк/дизлайк) пользователей на ресурсах.
// У пары (пользователь, ресурс) в любой момент не больше одной оценки.
package marks

import (
	"context"
	"errors"
	"time"

	"github.com/UkralStul/school-board/internal/domain"
	"github.com/UkralStul/school-board/internal/logger"
	"github.com/UkralStul/school-board/internal/metrics"
	"github.com/UkralStul/school-board/internal/storage"
	"github.com/google/uuid"
)

// State - состояние оценки пары (пользователь, ресурс).
type State int

const (
	Unmarked State = iota
	Liked
	Disliked
)

func (s State) String() string {
	switch s {
	case Liked:
		return "liked"
	case Disliked:
		return "disliked"
	}
	return "unmarked"
}

// Engine переводит пару между состояниями Unmarked, Liked и Disliked.
type Engine struct {
	store   storage.MarkStore
	metrics *metrics.Metrics
	log     logger.Logger
	now     func() time.Time
}

type Option func(*Engine)

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithLogger(l logger.Logger) Option {
	return func(e *Engine) { e.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(store storage.MarkStore, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		log:   logger.Nop{},
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Mark ставит оценку liked, заменяя любую прежнюю оценку пары, и
// возвращает новые агрегаты ресурса. Повтор той же оценки переставляет её.
// Неудачная замена повторяется ровно один раз.
func (e *Engine) Mark(ctx context.Context, target domain.Target, username string, liked bool) (domain.MarkCounts, error) {
	mark := &domain.Mark{
		UUID:     uuid.NewString(),
		Target:   target,
		Username: username,
		Liked:    liked,
		MarkedAt: e.now(),
	}

	if err := e.store.ReplaceMark(ctx, mark); err != nil {
		e.log.Warnf("mark %s by %s failed, retrying: %v", target, username, err)
		e.metrics.MarkRetry()

		mark.UUID = uuid.NewString()
		if err := e.store.ReplaceMark(ctx, mark); err != nil {
			e.metrics.StoreFailure("replace mark")
			e.log.Errorf("mark %s by %s failed after retry: %v", target, username, err)
			return domain.MarkCounts{}, storeFailure("replace mark", err)
		}
	}
	e.metrics.Mark(target.Kind.String(), &liked)

	return e.Counts(ctx, target)
}

// Like - Mark с liked = true.
func (e *Engine) Like(ctx context.Context, target domain.Target, username string) (domain.MarkCounts, error) {
	return e.Mark(ctx, target, username, true)
}

// Dislike - Mark с liked = false.
func (e *Engine) Dislike(ctx context.Context, target domain.Target, username string) (domain.MarkCounts, error) {
	return e.Mark(ctx, target, username, false)
}

// Cancel снимает оценку пары. Снятие отсутствующей оценки не ошибка.
func (e *Engine) Cancel(ctx context.Context, target domain.Target, username string) (domain.MarkCounts, error) {
	existed, err := e.store.DeleteMark(ctx, target, username)
	if err != nil {
		e.metrics.StoreFailure("delete mark")
		return domain.MarkCounts{}, storeFailure("delete mark", err)
	}
	if existed {
		e.metrics.Mark(target.Kind.String(), nil)
	}
	return e.Counts(ctx, target)
}

// State возвращает текущее состояние пары.
func (e *Engine) State(ctx context.Context, target domain.Target, username string) (State, error) {
	mark, err := e.store.GetMark(ctx, target, username)
	if errors.Is(err, domain.ErrNotFound) {
		return Unmarked, nil
	}
	if err != nil {
		return Unmarked, storeFailure("get mark", err)
	}
	if mark.Liked {
		return Liked, nil
	}
	return Disliked, nil
}

// Counts возвращает агрегаты оценок ресурса.
func (e *Engine) Counts(ctx context.Context, target domain.Target) (domain.MarkCounts, error) {
	counts, err := e.store.CountMarks(ctx, target)
	if err != nil {
		e.metrics.StoreFailure("count marks")
		return domain.MarkCounts{}, storeFailure("count marks", err)
	}
	return counts, nil
}

func storeFailure(op string, err error) error {
	var se *domain.StoreError
	if errors.As(err, &se) {
		return err
	}
	return &domain.StoreError{Op: op, Err: err}
}
