package queue

import (
	"context"
	"sync"
)

// Memory is an in-process Queue for single-binary deployments and tests.
type Memory struct {
	mu     sync.Mutex
	items  map[string][]Message
	notify map[string]chan struct{}
	closed bool
}

func NewMemory() *Memory {
	return &Memory{
		items:  make(map[string][]Message),
		notify: make(map[string]chan struct{}),
	}
}

func (m *Memory) signal(queue string) chan struct{} {
	ch, ok := m.notify[queue]
	if !ok {
		ch = make(chan struct{}, 1)
		m.notify[queue] = ch
	}
	return ch
}

func (m *Memory) Publish(ctx context.Context, queue string, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.items[queue] = append(m.items[queue], msg)
	select {
	case m.signal(queue) <- struct{}{}:
	default:
	}
	return nil
}

func (m *Memory) Receive(ctx context.Context, queue string) (Message, error) {
	for {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return Message{}, ErrClosed
		}
		if q := m.items[queue]; len(q) > 0 {
			msg := q[0]
			m.items[queue] = q[1:]
			if len(q) > 1 {
				// Wake another waiter for the remainder.
				select {
				case m.signal(queue) <- struct{}{}:
				default:
				}
			}
			m.mu.Unlock()
			return msg, nil
		}
		ch := m.signal(queue)
		m.mu.Unlock()

		select {
		case <-ctx.Done():
			return Message{}, ctx.Err()
		case <-ch:
		}
	}
}

// Len returns the number of pending messages on queue.
func (m *Memory) Len(queue string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items[queue])
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		for _, ch := range m.notify {
			close(ch)
		}
	}
	return nil
}
