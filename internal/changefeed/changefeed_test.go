package changefeed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcaster_PublishDeliversToSubscriber(t *testing.T) {
	b := NewBroadcaster(4)
	ch, unsub := b.Subscribe(4)
	defer unsub()

	b.Publish(Event{Namespace: "default", Table: "default", Key: "k", Op: OpSet, Timestamp: time.Now()})

	select {
	case ev := <-ch:
		assert.Equal(t, "k", ev.Key)
		assert.Equal(t, OpSet, ev.Op)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBroadcaster_FullSubscriberDropsNotBlocks(t *testing.T) {
	b := NewBroadcaster(4)
	ch, unsub := b.Subscribe(1)
	defer unsub()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			b.Publish(Event{Key: "k"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber channel")
	}

	require.NotEmpty(t, <-ch)
	assert.Greater(t, b.DroppedCount(), uint64(0))
}

func TestBroadcaster_UnsubscribeStopsDelivery(t *testing.T) {
	b := NewBroadcaster(4)
	ch, unsub := b.Subscribe(4)
	unsub()

	b.Publish(Event{Key: "k"})

	_, ok := <-ch
	assert.False(t, ok, "channel should be closed after unsubscribe")
}
