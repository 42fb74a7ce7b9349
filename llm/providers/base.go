package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/chatbridge/internal/tlsutil"
	"github.com/BaSui01/chatbridge/llm"
	"github.com/BaSui01/chatbridge/llm/errnorm"
	"github.com/BaSui01/chatbridge/llm/streaming"
	"github.com/BaSui01/chatbridge/types"
)

// DefaultTimeout 是非流式请求的整体超时。
const DefaultTimeout = 60 * time.Second

// Base 是供应商适配器共享的 HTTP 与校验基础设施。构造后只读。
type Base struct {
	Cfg          ProviderConfig
	Client       *http.Client
	StreamClient *http.Client
	Logger       *zap.Logger
	limiter      *rate.Limiter
}

// NewBase 创建 Base。未提供客户端时使用 tlsutil 的加固客户端。
func NewBase(cfg ProviderConfig, logger *zap.Logger) *Base {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.BuildHeaders == nil {
		cfg.BuildHeaders = BearerHeaders
	}
	b := &Base{
		Cfg:          cfg,
		Client:       cfg.HTTPClient,
		StreamClient: cfg.StreamClient,
		Logger:       logger.With(zap.String("component", "provider"), zap.String("provider", cfg.Name)),
	}
	if b.Client == nil {
		b.Client = tlsutil.SecureHTTPClient(cfg.Timeout)
	}
	if b.StreamClient == nil {
		b.StreamClient = tlsutil.StreamingHTTPClient(cfg.Timeout)
	}
	if cfg.RequestsPerSecond > 0 {
		b.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), max(1, int(cfg.RequestsPerSecond)))
	}
	return b
}

// Name 返回供应商名。
func (b *Base) Name() string { return b.Cfg.Name }

// Capabilities 返回声明的能力。
func (b *Base) Capabilities() types.Capabilities { return b.Cfg.Capabilities }

// ResolveModel 优先使用请求中的模型覆盖。
func (b *Base) ResolveModel(req *llm.SendRequest) string {
	if m := strings.TrimSpace(req.Model); m != "" {
		return m
	}
	return b.Cfg.DefaultModel
}

// ResolveAPIKey 优先使用 ctx 中的凭据覆盖。
func (b *Base) ResolveAPIKey(ctx context.Context) string {
	if c, ok := llm.CredentialOverrideFromContext(ctx); ok {
		if key := strings.TrimSpace(c.APIKey); key != "" {
			return key
		}
	}
	return b.Cfg.APIKey
}

// Endpoint 拼接完整 URL；path 为空时使用配置的对话端点。
func (b *Base) Endpoint(path string) string {
	if path == "" {
		path = b.Cfg.EndpointPath
	}
	return strings.TrimRight(b.Cfg.BaseURL, "/") + path
}

// Quirks 返回 model 生效的怪癖。
func (b *Base) Quirks(model string) ModelQuirks {
	return b.Cfg.Quirks.Resolve(model)
}

// wait 在限流器上等待。ctx 结束时返回归一化后的错误。
func (b *Base) wait(ctx context.Context) error {
	if b.limiter == nil {
		return nil
	}
	if err := b.limiter.Wait(ctx); err != nil {
		return errnorm.FromTransport(err, b.Name())
	}
	return nil
}

// NewRequest 序列化 body 并写入鉴权头和请求 ID。
func (b *Base) NewRequest(ctx context.Context, path string, body any) (*http.Request, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, types.NewAppError(types.ErrAppInternal, fmt.Sprintf("failed to marshal request: %v", err), err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.Endpoint(path), bytes.NewReader(payload))
	if err != nil {
		return nil, types.NewAppError(types.ErrAppInternal, fmt.Sprintf("failed to create request: %v", err), err)
	}
	b.Cfg.BuildHeaders(req, b.ResolveAPIKey(ctx))
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID, ok := types.RequestID(ctx)
	if !ok {
		requestID = uuid.NewString()
	}
	req.Header.Set("X-Request-ID", requestID)
	return req, nil
}

// PostJSON 发送一次非流式请求并把 2xx 响应解码到 out。
// 所有失败都以类型化错误返回。
func (b *Base) PostJSON(ctx context.Context, path string, body, out any) error {
	if err := b.wait(ctx); err != nil {
		return err
	}
	req, err := b.NewRequest(ctx, path, body)
	if err != nil {
		return err
	}

	start := time.Now()
	resp, err := b.Client.Do(req)
	if err != nil {
		return errnorm.FromTransport(err, b.Name())
	}
	defer resp.Body.Close()

	b.Logger.Debug("response received",
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errnorm.FromResponse(resp, b.Name())
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errnorm.FromTransport(err, b.Name())
	}
	if err := json.Unmarshal(data, out); err != nil {
		return types.NewAPIError(types.ErrAPIInvalidResponse,
			fmt.Sprintf("%s returned an undecodable response: %v", b.Name(), err),
			resp.StatusCode, b.Name(), err)
	}
	return nil
}

// OpenStream 发送流式请求并返回已确认 2xx 的响应，调用方负责关闭 Body。
// 400 且错误文本提到 stream 时返回 API_STREAMING_FAILED，供上层回退到非流式。
func (b *Base) OpenStream(ctx context.Context, path string, body any) (*http.Response, error) {
	if err := b.wait(ctx); err != nil {
		return nil, err
	}
	req, err := b.NewRequest(ctx, path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := b.StreamClient.Do(req)
	if err != nil {
		return nil, errnorm.FromTransport(err, b.Name())
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	apiErr := errnorm.FromResponse(resp, b.Name())
	if resp.StatusCode == http.StatusBadRequest && strings.Contains(strings.ToLower(apiErr.Message), "stream") {
		e := types.NewAPIError(types.ErrAPIStreamingFailed, apiErr.Message, resp.StatusCode, b.Name(), apiErr)
		e.WithContext("status", resp.StatusCode)
		return nil, e
	}
	return nil, apiErr
}

// StartStream 打开连接并在其上运行 produce。连接阶段的失败直接返回。
// onEvent 为请求的侧信道回调，可为 nil。
func (b *Base) StartStream(ctx context.Context, path string, body any, onEvent func(streaming.Event), produce func(ctx context.Context, sink *streaming.Sink, body io.Reader) error) (*streaming.Stream, error) {
	resp, err := b.OpenStream(ctx, path, body)
	if err != nil {
		return nil, err
	}
	return streaming.Start(ctx, b.Name(), func(ctx context.Context, sink *streaming.Sink) error {
		return produce(ctx, sink, resp.Body)
	}, streaming.WithCloser(resp.Body), streaming.WithLogger(b.Logger), streaming.WithObserver(onEvent)), nil
}

// PumpSSE 逐帧读取 SSE 并交给 handle。handle 返回 true 表示流已终止。
// 读到 EOF 视为正常结束；读取失败按传输错误归一化。
func PumpSSE(sink *streaming.Sink, body io.Reader, provider string, handle func(ev streaming.SSEEvent) (bool, error)) error {
	reader := streaming.NewSSEReader(body)
	for {
		ev, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errnorm.FromTransport(err, provider)
		}
		done, err := handle(ev)
		if err != nil {
			return err
		}
		if done || sink.Terminated() {
			return nil
		}
	}
}
