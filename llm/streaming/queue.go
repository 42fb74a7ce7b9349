package streaming

import (
	"context"
	"sync"
	"sync/atomic"
)

// Queue 是解耦供应商推送与调用方拉取的无界 FIFO。
// 调用方未等待时事件按序缓存；调用方正在等待时新事件立即唤醒它。
// 一个 Queue 只允许一个消费者。
type Queue struct {
	mu     sync.Mutex
	items  []Event
	closed bool

	notify chan struct{}
	done   chan struct{}

	produced atomic.Int64
	consumed atomic.Int64
}

// NewQueue 创建空队列。
func NewQueue() *Queue {
	return &Queue{
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Push 追加事件；队列关闭后返回 false。
func (q *Queue) Push(ev Event) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, ev)
	q.mu.Unlock()

	q.produced.Add(1)
	select {
	case q.notify <- struct{}{}:
	default:
	}
	return true
}

// Close 关闭队列。已缓存的事件仍可被取出。重复调用无副作用。
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.done)
}

// Drain 丢弃所有缓存事件并关闭队列。
func (q *Queue) Drain() {
	q.mu.Lock()
	q.items = nil
	q.mu.Unlock()
	q.Close()
}

// Pop 取出下一个事件；队列为空时等待。
// 队列关闭且已取空，或 ctx 结束时返回 false。
func (q *Queue) Pop(ctx context.Context) (Event, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			ev := q.items[0]
			q.items[0] = Event{}
			q.items = q.items[1:]
			q.mu.Unlock()
			q.consumed.Add(1)
			return ev, true
		}
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return Event{}, false
		}

		select {
		case <-ctx.Done():
			return Event{}, false
		case <-q.notify:
		case <-q.done:
		}
	}
}

// Len 返回缓存事件数。
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// QueueStats 队列统计信息。
type QueueStats struct {
	Produced int64 `json:"produced"`
	Consumed int64 `json:"consumed"`
	Buffered int   `json:"buffered"`
}

// Stats 返回队列统计。
func (q *Queue) Stats() QueueStats {
	return QueueStats{
		Produced: q.produced.Load(),
		Consumed: q.consumed.Load(),
		Buffered: q.Len(),
	}
}
