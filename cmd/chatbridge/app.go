package main

import (
	"context"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/BaSui01/chatbridge/config"
	"github.com/BaSui01/chatbridge/internal/metrics"
	"github.com/BaSui01/chatbridge/internal/server"
	"github.com/BaSui01/chatbridge/internal/telemetry"
	"github.com/BaSui01/chatbridge/llm"
	"github.com/BaSui01/chatbridge/llm/circuitbreaker"
	"github.com/BaSui01/chatbridge/llm/factory"
	"github.com/BaSui01/chatbridge/llm/observability"
	"github.com/BaSui01/chatbridge/llm/providers"
	"github.com/BaSui01/chatbridge/types"
)

// =============================================================================
// 🏗️ 公共参数与运行环境
// =============================================================================

// stringList 支持重复出现的 flag
type stringList []string

func (s *stringList) String() string     { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error { *s = append(*s, v); return nil }

// commonFlags 所有调用类命令共享的参数
type commonFlags struct {
	configPath  string
	provider    string
	model       string
	system      string
	maxTokens   int
	temperature float64
	attachments stringList
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "Path to config file")
	fs.StringVar(&c.provider, "provider", "", "Provider name")
	fs.StringVar(&c.model, "model", "", "Model override")
	fs.StringVar(&c.system, "system", "", "System prompt")
	fs.IntVar(&c.maxTokens, "max-tokens", 0, "Output token limit")
	fs.Float64Var(&c.temperature, "temperature", -1, "Sampling temperature (negative keeps the vendor default)")
	fs.Var(&c.attachments, "attach", "Attach a file (repeatable)")
}

// app 持有一次命令执行所需的全部组件
type app struct {
	cfg        *config.Config
	logger     *zap.Logger
	registry   *llm.AdapterRegistry
	otel       *telemetry.Providers
	metricsSrv *server.Manager
}

func newApp(ctx context.Context, flags *commonFlags) (*app, error) {
	cfg, err := config.NewLoader().
		WithConfigPath(flags.configPath).
		WithValidator((*config.Config).Validate).
		Load()
	if err != nil {
		return nil, err
	}

	logger := initLogger(cfg.Log)

	otelProviders, err := telemetry.Init(ctx, cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(cfg.Metrics.Namespace, reg, logger)

	obsMetrics, err := observability.NewMetrics(otelProviders.Tracer(), otel.Meter(telemetry.InstrumentationName))
	if err != nil {
		return nil, fmt.Errorf("create instrumentation: %w", err)
	}

	policy := cfg.RetryPolicy()
	withRetry := func(inner llm.Adapter) llm.Adapter {
		name := inner.Name()
		return providers.NewRetryableAdapter(inner, policy, func(attempt int, err error, delay time.Duration) {
			collector.RecordRetry(name, types.GetErrorCode(err))
		}, logger)
	}

	wrappers := []factory.Wrapper{withRetry}
	if cfg.CircuitBreaker.Enabled {
		// 放在重试之外：一整轮重试只计一次失败
		breakerPolicy := cfg.BreakerPolicy()
		wrappers = append(wrappers, func(inner llm.Adapter) llm.Adapter {
			name := inner.Name()
			bc := breakerPolicy
			bc.OnStateChange = func(_, to circuitbreaker.State) {
				collector.SetBreakerState(name, float64(to))
			}
			return circuitbreaker.NewAdapter(inner, bc, logger)
		})
	}
	wrappers = append(wrappers,
		observability.Wrapper(obsMetrics, observability.WithCollector(collector), observability.WithLogger(logger)))

	registry, err := factory.NewRegistryFromConfig(cfg.Registry(), logger, wrappers...)
	if err != nil {
		// 默认供应商未配置凭据时仍可通过 --provider 选择其他供应商
		logger.Warn("registry incomplete", zap.Error(err))
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		otel:     otelProviders,
	}

	if cfg.Metrics.Enabled {
		srvCfg := server.DefaultConfig()
		srvCfg.Addr = cfg.Metrics.Addr
		a.metricsSrv = server.NewMetricsManager(reg, srvCfg, logger)
		if err := a.metricsSrv.Start(); err != nil {
			logger.Warn("metrics endpoint unavailable", zap.Error(err))
			a.metricsSrv = nil
		}
	}

	return a, nil
}

// close 刷新遥测数据并关闭指标端点
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if a.metricsSrv != nil {
		_ = a.metricsSrv.Shutdown(ctx)
	}
	if err := a.otel.Shutdown(ctx); err != nil {
		a.logger.Debug("telemetry shutdown", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// adapter 按名称选择适配器，name 为空时使用默认供应商
func (a *app) adapter(name string) (llm.Adapter, error) {
	if name == "" {
		ad, err := a.registry.Default()
		if err != nil {
			return nil, fmt.Errorf("no default provider available; set providers.<name>.api_key or pass --provider: %w", err)
		}
		return ad, nil
	}
	ad, ok := a.registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("provider %q is not configured (configured: %s)", name, strings.Join(a.registry.List(), ", "))
	}
	return ad, nil
}

// request 根据参数与消息构造 SendRequest
func (a *app) request(flags *commonFlags, message string) (*llm.SendRequest, error) {
	req := &llm.SendRequest{
		Message:      message,
		Model:        flags.model,
		SystemPrompt: a.cfg.SystemPrompt,
		MaxTokens:    flags.maxTokens,
	}
	if flags.system != "" {
		req.SystemPrompt = flags.system
	}
	if flags.temperature >= 0 {
		t := flags.temperature
		req.Temperature = &t
	}
	for _, path := range flags.attachments {
		att, err := loadAttachment(path)
		if err != nil {
			return nil, err
		}
		req.Attachments = append(req.Attachments, att)
	}
	return req, nil
}

// loadAttachment 读取文件并编码为 base64 附件
func loadAttachment(path string) (types.Attachment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Attachment{}, fmt.Errorf("read attachment: %w", err)
	}

	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}

	kind := types.AttachmentDocument
	if strings.HasPrefix(mimeType, "image/") {
		kind = types.AttachmentImage
	}
	return types.Attachment{
		Type:     kind,
		URI:      "file://" + path,
		MimeType: mimeType,
		Base64:   base64.StdEncoding.EncodeToString(data),
		FileName: filepath.Base(path),
	}, nil
}

// readMessage 优先使用位置参数，否则读取 stdin
func readMessage(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if stdin == nil {
		return "", errors.New("message is required")
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	msg := strings.TrimSpace(string(data))
	if msg == "" {
		return "", errors.New("message is required")
	}
	return msg, nil
}

// displayError 返回可展示给用户的错误文本
func displayError(err error) string {
	if base, ok := types.AsAppError(err); ok {
		msg := base.UserMessage
		if msg == "" {
			msg = base.Message
		}
		if base.Retryable {
			return fmt.Sprintf("%s [%s, retryable]", msg, base.Code)
		}
		return fmt.Sprintf("%s [%s]", msg, base.Code)
	}
	return err.Error()
}
