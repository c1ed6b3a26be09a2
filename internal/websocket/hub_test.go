package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/famorg/internal/model"
	"github.com/dukerupert/famorg/internal/queue"
)

// mockClient creates a Client with a send channel but no real connection.
func mockClient(hub *Hub) *Client {
	return &Client{
		hub:  hub,
		conn: nil,
		send: make(chan []byte, sendBufferSize),
	}
}

func receive(t *testing.T, c *Client) map[string]any {
	t.Helper()
	select {
	case data := <-c.send:
		var got map[string]any
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return got
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
	return nil
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub)
	c2 := mockClient(hub)

	hub.Register(c1)
	hub.Register(c2)

	if got := hub.ClientCount(); got != 2 {
		t.Fatalf("expected 2 clients, got %d", got)
	}

	hub.Unregister(c1)

	if got := hub.ClientCount(); got != 1 {
		t.Fatalf("expected 1 client after unregister, got %d", got)
	}

	hub.Unregister(c2)

	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestDoubleUnregister(t *testing.T) {
	hub := NewHub(slog.Default())
	c := mockClient(hub)
	hub.Register(c)
	hub.Unregister(c)
	// Should not panic
	hub.Unregister(c)

	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestBroadcastChoreCompleted(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub)
	c2 := mockClient(hub)
	hub.Register(c1)
	hub.Register(c2)
	defer hub.Unregister(c1)
	defer hub.Unregister(c2)

	hub.Broadcast(ChoreCompleted(12, 3, true, model.Pounds(5)))

	for _, c := range []*Client{c1, c2} {
		got := receive(t, c)
		if got["type"] != TypeChoreCompleted {
			t.Errorf("type = %v", got["type"])
		}
		if got["chore_id"] != float64(12) || got["user_id"] != float64(3) {
			t.Errorf("ids = %v/%v", got["chore_id"], got["user_id"])
		}
		if got["is_bonus"] != true || got["reward"] != float64(5) {
			t.Errorf("bonus/reward = %v/%v", got["is_bonus"], got["reward"])
		}
	}
}

func TestMessageShapes(t *testing.T) {
	tests := []struct {
		msg  Message
		want string
	}{
		{ChoreUncompleted(4), `{"chore_id":4,"type":"CHORE_UNCOMPLETED"}`},
		{RewardRedeemed(2, 3, 250), `{"cost":2.5,"reward_id":2,"type":"REWARD_REDEEMED","user_id":3}`},
		{DashboardRefresh(8), `{"type":"DASHBOARD_REFRESH","user_id":8}`},
	}
	for _, tt := range tests {
		data, err := json.Marshal(tt.msg)
		if err != nil {
			t.Fatalf("marshal %s: %v", tt.msg.Type, err)
		}
		if string(data) != tt.want {
			t.Errorf("%s = %s, want %s", tt.msg.Type, data, tt.want)
		}

		var back Message
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if back.Type != tt.msg.Type {
			t.Errorf("round trip type = %q", back.Type)
		}
	}
}

func TestBroadcastEmptyHub(t *testing.T) {
	hub := NewHub(slog.Default())
	// Should not panic
	hub.Broadcast(ChoreUncompleted(1))
}

func TestBroadcastFullBuffer(t *testing.T) {
	hub := NewHub(slog.Default())

	c := mockClient(hub)
	hub.Register(c)

	// Fill the send buffer
	for i := 0; i < sendBufferSize; i++ {
		hub.Broadcast(DashboardRefresh(int64(i)))
	}

	// This should drop the message, not panic or block
	hub.Broadcast(DashboardRefresh(999))

	count := 0
	for {
		select {
		case <-c.send:
			count++
		default:
			goto done
		}
	}
done:
	if count != sendBufferSize {
		t.Errorf("expected %d messages, got %d", sendBufferSize, count)
	}
	if got := hub.Dropped(); got != 1 {
		t.Errorf("dropped = %d, want 1", got)
	}
	if got := c.missed.Load(); got != 1 {
		t.Errorf("client missed = %d, want 1", got)
	}

	hub.Unregister(c)
}

func TestStatsCountsOnlySlowClients(t *testing.T) {
	hub := NewHub(slog.Default())

	slow := mockClient(hub)
	fast := mockClient(hub)
	hub.Register(slow)
	hub.Register(fast)
	defer hub.Unregister(slow)
	defer hub.Unregister(fast)

	for i := 0; i < sendBufferSize; i++ {
		hub.Broadcast(DashboardRefresh(int64(i)))
		<-fast.send
	}
	for i := 0; i < 3; i++ {
		hub.Broadcast(ChoreUncompleted(int64(i)))
		<-fast.send
	}

	got := hub.Stats()
	if got.Clients != 2 || got.Dropped != 3 {
		t.Errorf("stats = %+v, want 2 clients and 3 dropped", got)
	}
	if slow.missed.Load() != 3 || fast.missed.Load() != 0 {
		t.Errorf("missed slow=%d fast=%d", slow.missed.Load(), fast.missed.Load())
	}
}

func TestConcurrentAccess(t *testing.T) {
	hub := NewHub(slog.Default())
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := mockClient(hub)
			hub.Register(c)
			hub.Broadcast(DashboardRefresh(0))
			for {
				select {
				case <-c.send:
				default:
					hub.Unregister(c)
					return
				}
			}
		}()
	}

	wg.Wait()

	if got := hub.ClientCount(); got != 0 {
		t.Errorf("expected 0 clients after concurrent test, got %d", got)
	}
}

func TestRelayForwardsDashboardRefresh(t *testing.T) {
	hub := NewHub(slog.Default())
	c := mockClient(hub)
	hub.Register(c)
	defer hub.Unregister(c)

	q := queue.NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- NewRelay(hub, q, slog.Default()).Run(ctx) }()

	q.Publish(ctx, queue.Broadcast, queue.NewMessage("something_else", 1))
	q.Publish(ctx, queue.Broadcast, queue.NewMessage(queue.KindDashboardRefresh, 42))

	got := receive(t, c)
	if got["type"] != TypeDashboardRefresh || got["user_id"] != float64(42) {
		t.Errorf("got %v", got)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}
