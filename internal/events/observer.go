package events

import (
	"context"
	"sync"

	"github.com/UkralStul/school-board/internal/domain"
	"github.com/google/uuid"
)

// Type - вид события.
type Type string

const (
	CommentAdded Type = "comment_added"
	MarkChanged  Type = "mark_changed"
)

// Event - уведомление о происходящем под постом.
type Event struct {
	Type     Type               `json:"type"`
	PostUUID string             `json:"postUuid"`
	Comment  *domain.Comment    `json:"comment,omitempty"`
	Target   *domain.Target     `json:"target,omitempty"`
	Counts   *domain.MarkCounts `json:"counts,omitempty"`
}

// Observer хранит каналы подписчиков на события постов.
type Observer struct {
	mu sync.RWMutex
	//   map[postUUID] map[subscriberID] channel
	subs map[string]map[string]chan Event
}

// NewObserver - конструктор наблюдателя.
func NewObserver() *Observer {
	return &Observer{
		subs: make(map[string]map[string]chan Event),
	}
}

// Subscribe подписывает на события поста до отмены ctx. Канал закрывается при отписке.
func (o *Observer) Subscribe(ctx context.Context, postUUID string) <-chan Event {
	ch := make(chan Event, 16)
	subID := uuid.NewString()

	o.mu.Lock()
	if o.subs[postUUID] == nil {
		o.subs[postUUID] = make(map[string]chan Event)
	}
	o.subs[postUUID][subID] = ch
	o.mu.Unlock()

	// Горутина для очистки при отключении клиента
	go func() {
		<-ctx.Done()
		o.mu.Lock()
		if postSubs, ok := o.subs[postUUID]; ok {
			delete(postSubs, subID)
			if len(postSubs) == 0 {
				delete(o.subs, postUUID)
			}
		}
		close(ch)
		o.mu.Unlock()
	}()

	return ch
}

// Publish рассылает событие подписчикам поста. Медленный подписчик теряет событие,
// публикующий никогда не блокируется.
func (o *Observer) Publish(e Event) {
	if o == nil {
		return
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	for _, ch := range o.subs[e.PostUUID] {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribers возвращает число подписчиков поста.
func (o *Observer) Subscribers(postUUID string) int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.subs[postUUID])
}
