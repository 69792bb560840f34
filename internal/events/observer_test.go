package events

import (
	"context"
	"testing"
	"time"

	"github.com/UkralStul/school-board/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserver_DeliversToPostSubscribers(t *testing.T) {
	o := NewObserver()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := o.Subscribe(ctx, "p1")
	other := o.Subscribe(ctx, "p2")

	o.Publish(Event{Type: CommentAdded, PostUUID: "p1", Comment: &domain.Comment{UUID: "c1"}})

	select {
	case e := <-ch:
		assert.Equal(t, CommentAdded, e.Type)
		assert.Equal(t, "c1", e.Comment.UUID)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}

	select {
	case e := <-other:
		t.Fatalf("unexpected event for another post: %+v", e)
	default:
	}
}

func TestObserver_UnsubscribeOnCancel(t *testing.T) {
	o := NewObserver()
	ctx, cancel := context.WithCancel(context.Background())

	ch := o.Subscribe(ctx, "p1")
	require.Equal(t, 1, o.Subscribers("p1"))

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}
	assert.Equal(t, 0, o.Subscribers("p1"))

	assert.NotPanics(t, func() { o.Publish(Event{Type: MarkChanged, PostUUID: "p1"}) })
}

func TestObserver_SlowSubscriberDoesNotBlock(t *testing.T) {
	o := NewObserver()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	o.Subscribe(ctx, "p1")

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			o.Publish(Event{Type: MarkChanged, PostUUID: "p1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher blocked")
	}
}
