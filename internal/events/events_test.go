package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishDeliversFIFO(t *testing.T) {
	b := NewBroker(4)
	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	b.Publish(Event{Kind: KindDatasetCreated, DatasetID: 1})
	b.Publish(Event{Kind: KindDatasetUpdated, DatasetID: 1})

	first := <-sub.Events()
	second := <-sub.Events()
	assert.Equal(t, KindDatasetCreated, first.Kind)
	assert.Equal(t, KindDatasetUpdated, second.Kind)
}

func TestPublishIsObliviousAcrossSubscribers(t *testing.T) {
	b := NewBroker(4)
	subA := b.Subscribe()
	subB := b.Subscribe()
	defer b.Unsubscribe(subA)
	defer b.Unsubscribe(subB)

	b.Publish(Event{Kind: KindDatasetCreated, DatasetID: 7})

	evA := <-subA.Events()
	evB := <-subB.Events()
	assert.Equal(t, int64(7), evA.DatasetID)
	assert.Equal(t, int64(7), evB.DatasetID)
}

func TestOverflowDropsOldestAndDeliversLagged(t *testing.T) {
	b := NewBroker(2)
	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	b.Publish(Event{Kind: KindDatasetCreated, DatasetID: 1})
	b.Publish(Event{Kind: KindDatasetUpdated, DatasetID: 2})
	b.Publish(Event{Kind: KindDatasetUpdated, DatasetID: 3}) // overflows the 2-slot buffer

	first := <-sub.Events()
	second := <-sub.Events()
	assert.Equal(t, KindLagged, first.Kind)
	assert.Equal(t, KindDatasetUpdated, second.Kind)
	assert.Equal(t, int64(3), second.DatasetID)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroker(4)
	sub := b.Subscribe()
	require.Equal(t, 1, b.SubscriberCount())

	b.Unsubscribe(sub)
	assert.Equal(t, 0, b.SubscriberCount())

	_, ok := <-sub.Events()
	assert.False(t, ok)
}

func TestPublishDefaultsTimestamp(t *testing.T) {
	b := NewBroker(1)
	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	before := time.Now()
	b.Publish(Event{Kind: KindDatasetCreated})
	ev := <-sub.Events()
	assert.False(t, ev.Timestamp.Before(before))
}
