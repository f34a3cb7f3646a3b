package stream

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubFanOut(t *testing.T) {
	hub := NewHub(4)
	a := hub.Subscribe("a")
	b := hub.Subscribe("b")
	require.Equal(t, 2, hub.Count())

	hub.Emit(Frame{Type: EventChannelCreated, ID: 7})

	for _, sub := range []*Subscriber{a, b} {
		select {
		case payload := <-sub.Recv():
			var f Frame
			require.NoError(t, json.Unmarshal(payload, &f))
			assert.Equal(t, EventChannelCreated, f.Type)
			assert.Equal(t, int64(7), f.ID)
		default:
			t.Fatalf("subscriber %s received nothing", sub.ID)
		}
	}
}

func TestHubDropsSlowSubscriber(t *testing.T) {
	hub := NewHub(1)
	slow := hub.Subscribe("slow")
	ok := hub.Subscribe("ok")

	// Fill the slow subscriber's queue, then overflow it.
	hub.Emit(Frame{Type: EventPing})
	drain(ok)
	hub.Emit(Frame{Type: EventPing})

	assert.Equal(t, 1, hub.Count())
	select {
	case <-slow.Done():
	default:
		t.Fatal("slow subscriber was not stopped")
	}
}

func TestHubUnsubscribeIdempotent(t *testing.T) {
	hub := NewHub(4)
	sub := hub.Subscribe("x")
	hub.Unsubscribe("x")
	hub.Unsubscribe("x")
	hub.Unsubscribe("missing")
	assert.Equal(t, 0, hub.Count())

	// Emitting after removal must not panic or block.
	hub.Emit(Frame{Type: EventPing})
	select {
	case <-sub.Done():
	default:
		t.Fatal("done channel not closed")
	}
}

func TestHubConcurrentChurn(t *testing.T) {
	hub := NewHub(8)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				id := fmt.Sprintf("conn-%d-%d", g, i)
				sub := hub.Subscribe(id)
				hub.Emit(Frame{Type: EventPing})
				drain(sub)
				hub.Unsubscribe(id)
			}
		}(g)
	}
	wg.Wait()

	// Every subscriber was either unsubscribed by its goroutine or dropped
	// as slow by a concurrent emit; none may linger.
	assert.Equal(t, 0, hub.Count())
}

func TestHubConcurrentEmitAfterUnsubscribe(t *testing.T) {
	hub := NewHub(1)
	sub := hub.Subscribe("x")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			hub.Emit(Frame{Type: EventPing})
		}
	}()
	go func() {
		defer wg.Done()
		hub.Unsubscribe("x")
	}()
	wg.Wait()

	select {
	case <-sub.Done():
	default:
		t.Fatal("done channel not closed")
	}
	assert.Equal(t, 0, hub.Count())
}

func drain(s *Subscriber) {
	for {
		select {
		case <-s.Recv():
		default:
			return
		}
	}
}
