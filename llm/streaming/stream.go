package streaming

import (
	"context"
	"io"
	"iter"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/BaSui01/chatbridge/llm/errnorm"
	"github.com/BaSui01/chatbridge/types"
)

// ProduceFunc 是供应商侧的事件生产者。它在独立 goroutine 中运行，
// 通过 sink 推送事件；返回的错误会被归一化为终止 Error 事件。
// ctx 在流被关闭或父 ctx 取消时结束。
type ProduceFunc func(ctx context.Context, sink *Sink) error

// Option 配置 Stream。
type Option func(*Stream)

// WithLogger 设置日志记录器。
func WithLogger(logger *zap.Logger) Option {
	return func(s *Stream) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCloser 绑定底层网络连接（通常是 resp.Body）。
// 流被关闭或取消时立即关闭它；绑定即表示连接已建立。
func WithCloser(c io.Closer) Option {
	return func(s *Stream) {
		s.closer = c
	}
}

// WithObserver 注册侧信道回调：非文本事件在交付给消费者时同步通知 fn。
func WithObserver(fn func(Event)) Option {
	return func(s *Stream) {
		s.observer = fn
	}
}

// Stream 是调用方拉取规范化事件的句柄。不可重启，同一时刻只允许一个消费者。
type Stream struct {
	provider string
	queue    *Queue
	parent   context.Context
	cancel   context.CancelFunc
	logger   *zap.Logger
	observer func(Event)

	state     atomic.Int32
	cancelled atomic.Bool

	closer     io.Closer
	closerOnce sync.Once
	closeOnce  sync.Once
	stopWatch  func() bool

	mu        sync.Mutex
	finished  bool
	text      strings.Builder
	citations []types.Citation
	usage     *types.Usage
	err       types.Typed
}

// Start 启动 produce 并返回消费句柄。
func Start(ctx context.Context, provider string, produce ProduceFunc, opts ...Option) *Stream {
	sctx, cancel := context.WithCancel(ctx)
	s := &Stream{
		provider: provider,
		queue:    NewQueue(),
		parent:   ctx,
		cancel:   cancel,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("component", "stream"), zap.String("provider", provider))

	if s.closer != nil {
		s.state.Store(int32(StateOpen))
	} else {
		s.state.Store(int32(StateConnecting))
	}

	// 父 ctx 取消：关闭连接并丢弃缓存，唤醒等待中的消费者
	s.stopWatch = context.AfterFunc(ctx, s.interrupt)

	sink := &Sink{stream: s, ctx: sctx}
	go func() {
		err := produce(sctx, sink)
		sink.finish(err)
	}()
	return s
}

// Provider 返回产生该流的供应商名。
func (s *Stream) Provider() string { return s.provider }

// State 返回当前状态。
func (s *Stream) State() State { return State(s.state.Load()) }

// Cancelled 报告流是否在终止事件之前被取消。
func (s *Stream) Cancelled() bool { return s.cancelled.Load() }

// Stats 返回内部队列统计。
func (s *Stream) Stats() QueueStats { return s.queue.Stats() }

// Text 返回已交付给调用方的文本。中途失败或取消时即为部分输出。
func (s *Stream) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text.String()
}

// Citations 返回已交付的引用。
func (s *Stream) Citations() []types.Citation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.citations
}

// Usage 返回供应商上报的用量，可能为 nil。
func (s *Stream) Usage() *types.Usage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage
}

// Err 返回终止错误；正常结束或取消时为 nil。
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		return nil
	}
	return s.err
}

// Next 拉取下一个事件。返回终止事件后、流被取消后或 ctx 结束时返回 false。
func (s *Stream) Next(ctx context.Context) (Event, bool) {
	s.mu.Lock()
	finished := s.finished
	s.mu.Unlock()
	if finished {
		return Event{}, false
	}
	if s.interrupted() {
		_ = s.Close()
		return Event{}, false
	}

	ev, ok := s.queue.Pop(ctx)
	if !ok || s.interrupted() {
		_ = s.Close()
		return Event{}, false
	}

	s.record(ev)
	if s.observer != nil && ev.Type != EventTextDelta {
		s.observer(ev)
	}
	if ev.IsTerminal() {
		_ = s.Close()
	}
	return ev, true
}

func (s *Stream) record(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch ev.Type {
	case EventTextDelta:
		s.text.WriteString(ev.Text)
	case EventCitations:
		s.citations = append(s.citations, ev.Citations...)
	case EventError:
		s.err = ev.Err
		s.finished = true
	case EventDone:
		s.finished = true
	}
}

// Events 以迭代器形式返回全部事件（含终止事件）。提前退出循环会关闭流。
func (s *Stream) Events(ctx context.Context) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		defer s.Close()
		for {
			ev, ok := s.Next(ctx)
			if !ok || !yield(ev) || ev.IsTerminal() {
				return
			}
		}
	}
}

// Chunks 返回文本块序列。非文本事件交给 onEvent（可为 nil）；
// 终止 Error 以 ("", err) 的形式产出一次后结束。
func (s *Stream) Chunks(ctx context.Context, onEvent func(Event)) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		defer s.Close()
		for {
			ev, ok := s.Next(ctx)
			if !ok {
				return
			}
			switch ev.Type {
			case EventTextDelta:
				if !yield(ev.Text, nil) {
					return
				}
			case EventError:
				if onEvent != nil {
					onEvent(ev)
				}
				yield("", ev.Err)
				return
			case EventDone:
				if onEvent != nil {
					onEvent(ev)
				}
				return
			default:
				if onEvent != nil {
					onEvent(ev)
				}
			}
		}
	}
}

// Collect 消费整条流并返回完整文本。取消时返回已交付的部分文本且 err 为 nil。
func (s *Stream) Collect(ctx context.Context) (string, error) {
	for _, err := range s.Chunks(ctx, nil) {
		if err != nil {
			return s.Text(), err
		}
	}
	return s.Text(), nil
}

// Close 关闭网络连接并结束序列，不产生 Error。重复调用无副作用。
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		wasFinished := s.finished
		s.finished = true
		s.mu.Unlock()

		if !wasFinished {
			s.cancelled.Store(true)
			s.advance(StateCompleted)
			s.logger.Debug("stream cancelled")
		}
		s.cancel()
		s.closeConn()
		s.queue.Drain()
		if s.stopWatch != nil {
			s.stopWatch()
		}
	})
	return nil
}

func (s *Stream) interrupt() {
	s.mu.Lock()
	finished := s.finished
	s.mu.Unlock()
	if finished {
		s.closeConn()
		return
	}
	s.cancelled.Store(true)
	s.closeConn()
	s.queue.Drain()
}

func (s *Stream) interrupted() bool {
	return s.cancelled.Load() || s.parent.Err() != nil
}

func (s *Stream) closeConn() {
	s.closerOnce.Do(func() {
		if s.closer != nil {
			_ = s.closer.Close()
		}
	})
}

// advance 推进状态，终态不可回退。
func (s *Stream) advance(next State) {
	for {
		cur := State(s.state.Load())
		if cur.IsFinal() || cur >= next && !next.IsFinal() {
			return
		}
		if s.state.CompareAndSwap(int32(cur), int32(next)) {
			if cur != next {
				s.logger.Debug("stream state", zap.Stringer("from", cur), zap.Stringer("to", next))
			}
			return
		}
	}
}

// Sink 是生产者侧句柄，保证终止事件恰好一个。
type Sink struct {
	stream *Stream
	ctx    context.Context

	mu         sync.Mutex
	terminated bool
	text       strings.Builder
	deltas     int
}

// Context 返回生产者应使用的 ctx。
func (k *Sink) Context() context.Context { return k.ctx }

// Open 标记连接已建立。
func (k *Sink) Open() { k.stream.advance(StateOpen) }

// Text 推送文本增量。空串被忽略。流已终止或被取消时返回 false。
func (k *Sink) Text(delta string) bool {
	if delta == "" {
		return k.alive()
	}
	k.stream.advance(StateDelivering)
	if !k.push(TextDelta(delta)) {
		return false
	}
	k.mu.Lock()
	k.text.WriteString(delta)
	k.deltas++
	k.mu.Unlock()
	return true
}

// Citations 推送引用列表。空列表被忽略。
func (k *Sink) Citations(c []types.Citation) bool {
	if len(c) == 0 {
		return k.alive()
	}
	k.stream.advance(StateDelivering)
	return k.push(CitationsEvent(c))
}

// Usage 记录供应商上报的用量。
func (k *Sink) Usage(u *types.Usage) {
	if u == nil {
		return
	}
	k.stream.mu.Lock()
	k.stream.usage = u
	k.stream.mu.Unlock()
}

// Done 推送正常结束事件。
func (k *Sink) Done() { k.terminate(DoneEvent(), StateCompleted) }

// Fail 将 err 归一化后推送为终止错误事件。流被取消时静默结束。
func (k *Sink) Fail(err error) {
	if err == nil {
		k.Done()
		return
	}
	if k.stream.interrupted() {
		k.silent()
		return
	}
	typed := errnorm.Normalize(err, map[string]any{"provider": k.stream.provider})
	k.stream.logger.Debug("stream failed",
		zap.String("code", string(typed.Base().Code)),
		zap.Bool("retryable", typed.Base().Retryable),
	)
	k.terminate(ErrorEvent(typed), StateFailed)
}

// Accumulated 返回生产者已推送的全部文本。
func (k *Sink) Accumulated() string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.text.String()
}

// Deltas 返回已推送的文本增量个数。
func (k *Sink) Deltas() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.deltas
}

// Terminated 报告终止事件是否已推送。
func (k *Sink) Terminated() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.terminated
}

func (k *Sink) alive() bool {
	return !k.Terminated() && !k.stream.interrupted()
}

func (k *Sink) push(ev Event) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.terminated || k.stream.interrupted() {
		return false
	}
	return k.stream.queue.Push(ev)
}

func (k *Sink) terminate(ev Event, final State) {
	k.mu.Lock()
	if k.terminated {
		k.mu.Unlock()
		return
	}
	if k.stream.interrupted() {
		k.mu.Unlock()
		k.silent()
		return
	}
	k.terminated = true
	k.stream.advance(final)
	k.stream.queue.Push(ev)
	k.mu.Unlock()

	k.stream.queue.Close()
}

func (k *Sink) silent() {
	k.mu.Lock()
	k.terminated = true
	k.mu.Unlock()
	k.stream.advance(StateCompleted)
	k.stream.queue.Drain()
}

// finish 在生产者返回后调用：补齐终止事件并释放连接。
func (k *Sink) finish(err error) {
	switch {
	case k.Terminated():
	case k.stream.interrupted():
		k.silent()
	case err != nil:
		k.Fail(err)
	default:
		k.Done()
	}
	k.stream.closeConn()
}
