// MockAdapter 是 llm.Adapter 的测试模拟实现。
//
// 支持固定响应、流式分片、按序错误注入与调用记录。
package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/BaSui01/chatbridge/llm"
	"github.com/BaSui01/chatbridge/llm/streaming"
	"github.com/BaSui01/chatbridge/types"
)

// --- MockAdapter 结构 ---

// MockAdapter 是 llm.Adapter 的模拟实现
type MockAdapter struct {
	mu sync.RWMutex

	name         string
	capabilities types.Capabilities

	// 响应配置
	response     string
	streamChunks []string
	citations    []types.Citation
	usage        *types.Usage

	// errs 按调用顺序消费，nil 表示该次成功；用完后 err 生效
	errs []error
	err  error

	// 流配置
	streamErr  error
	chunkDelay time.Duration

	sendFunc func(ctx context.Context, req *llm.SendRequest) (*llm.SendResult, error)

	calls     []MockAdapterCall
	callCount int
}

// MockAdapterCall 记录单次调用
type MockAdapterCall struct {
	Operation string
	Request   *llm.SendRequest
	Error     error
}

// --- 构造函数和 Builder 方法 ---

// NewMockAdapter 创建新的 MockAdapter
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{
		name:     "mock",
		response: "Mock response",
		capabilities: types.Capabilities{
			Streaming:    true,
			SystemPrompt: true,
		},
		usage: types.NewUsage(10, 20, 0),
	}
}

// WithName 设置供应商名
func (m *MockAdapter) WithName(name string) *MockAdapter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.name = name
	return m
}

// WithCapabilities 设置能力声明
func (m *MockAdapter) WithCapabilities(c types.Capabilities) *MockAdapter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.capabilities = c
	return m
}

// WithResponse 设置固定响应内容
func (m *MockAdapter) WithResponse(response string) *MockAdapter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.response = response
	return m
}

// WithCitations 设置响应引用
func (m *MockAdapter) WithCitations(c []types.Citation) *MockAdapter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.citations = c
	return m
}

// WithError 设置每次调用都返回的错误
func (m *MockAdapter) WithError(err error) *MockAdapter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithErrors 设置按调用顺序返回的错误序列
func (m *MockAdapter) WithErrors(errs ...error) *MockAdapter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs = errs
	return m
}

// WithStreamChunks 设置流式分片
func (m *MockAdapter) WithStreamChunks(chunks ...string) *MockAdapter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streamChunks = chunks
	return m
}

// WithStreamError 设置分片推送完后的流内错误
func (m *MockAdapter) WithStreamError(err error) *MockAdapter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streamErr = err
	return m
}

// WithChunkDelay 设置分片间隔
func (m *MockAdapter) WithChunkDelay(d time.Duration) *MockAdapter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunkDelay = d
	return m
}

// WithSendFunc 设置自定义 SendMessage 实现
func (m *MockAdapter) WithSendFunc(fn func(ctx context.Context, req *llm.SendRequest) (*llm.SendResult, error)) *MockAdapter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendFunc = fn
	return m
}

// --- Adapter 接口实现 ---

var _ llm.Adapter = (*MockAdapter)(nil)

// Name 返回供应商名
func (m *MockAdapter) Name() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.name
}

// Capabilities 返回能力声明
func (m *MockAdapter) Capabilities() types.Capabilities {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.capabilities
}

// nextErr 记录调用并返回本次应注入的错误。调用方持有锁。
func (m *MockAdapter) nextErr(op string, req *llm.SendRequest) error {
	m.callCount++
	var err error
	if len(m.errs) > 0 {
		err, m.errs = m.errs[0], m.errs[1:]
	} else {
		err = m.err
	}
	m.calls = append(m.calls, MockAdapterCall{Operation: op, Request: req, Error: err})
	return err
}

// SendMessage 返回固定响应或注入的错误
func (m *MockAdapter) SendMessage(ctx context.Context, req *llm.SendRequest) (*llm.SendResult, error) {
	m.mu.Lock()
	err := m.nextErr("send", req)
	fn := m.sendFunc
	res := &llm.SendResult{
		Response:  m.response,
		ModelUsed: req.Model,
		Usage:     m.usage,
	}
	if len(m.citations) > 0 {
		res.Metadata = &llm.ResultMetadata{Citations: m.citations}
	}
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if fn != nil {
		return fn(ctx, req)
	}
	if res.ModelUsed == "" {
		res.ModelUsed = "mock-model"
	}
	return res, nil
}

// StreamMessage 推送预设分片；未设置分片时整段推送响应
func (m *MockAdapter) StreamMessage(ctx context.Context, req *llm.SendRequest) (*streaming.Stream, error) {
	m.mu.Lock()
	err := m.nextErr("stream", req)
	chunks := m.streamChunks
	if len(chunks) == 0 {
		chunks = []string{m.response}
	}
	citations := m.citations
	usage := m.usage
	streamErr := m.streamErr
	delay := m.chunkDelay
	name := m.name
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return streaming.Start(ctx, name, func(ctx context.Context, sink *streaming.Sink) error {
		sink.Open()
		for _, c := range chunks {
			if delay > 0 {
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(delay):
				}
			}
			if !sink.Text(c) {
				return nil
			}
		}
		if streamErr != nil {
			return streamErr
		}
		sink.Citations(citations)
		sink.Usage(usage)
		return nil
	}, streaming.WithObserver(req.OnEvent)), nil
}

// --- 查询方法 ---

// GetCalls 获取所有调用记录
func (m *MockAdapter) GetCalls() []MockAdapterCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]MockAdapterCall{}, m.calls...)
}

// GetCallCount 获取调用次数
func (m *MockAdapter) GetCallCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.callCount
}

// Reset 重置调用记录与错误注入
func (m *MockAdapter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.callCount = 0
	m.err = nil
	m.errs = nil
}

// --- 预设工厂 ---

// NewSuccessAdapter 创建总是成功的 Adapter
func NewSuccessAdapter(response string) *MockAdapter {
	return NewMockAdapter().WithResponse(response)
}

// NewErrorAdapter 创建总是失败的 Adapter
func NewErrorAdapter(err error) *MockAdapter {
	return NewMockAdapter().WithError(err)
}

// NewFlakeyAdapter 创建前 failures 次失败、之后成功的 Adapter
func NewFlakeyAdapter(failures int, err error, response string) *MockAdapter {
	errs := make([]error, failures)
	for i := range errs {
		errs[i] = err
	}
	return NewMockAdapter().WithResponse(response).WithErrors(errs...)
}
