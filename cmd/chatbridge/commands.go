package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/chatbridge/llm"
	"github.com/BaSui01/chatbridge/llm/streaming"
	"github.com/BaSui01/chatbridge/types"
)

// compareConcurrency 限制 compare 同时进行的请求数
const compareConcurrency = 4

// setup 解析参数并构建运行环境
func setup(ctx context.Context, name string, args []string, stdin io.Reader, stderr io.Writer, extra func(*flag.FlagSet)) (*app, *commonFlags, string, bool) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	flags := &commonFlags{}
	flags.register(fs)
	if extra != nil {
		extra(fs)
	}
	if err := fs.Parse(args); err != nil {
		return nil, nil, "", false
	}

	message, err := readMessage(fs.Args(), stdin)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return nil, nil, "", false
	}

	a, err := newApp(ctx, flags)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return nil, nil, "", false
	}
	return a, flags, message, true
}

// withRequestID 为一次调用生成关联 ID
func withRequestID(ctx context.Context) (context.Context, string) {
	id := uuid.NewString()
	return types.WithRequestID(ctx, id), id
}

// =============================================================================
// 📨 send 命令
// =============================================================================

func runSend(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a, flags, message, ok := setup(ctx, "send", args, stdin, stderr, nil)
	if !ok {
		return 2
	}
	defer a.close()

	adapter, err := a.adapter(flags.provider)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	req, err := a.request(flags, message)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	ctx, id := withRequestID(ctx)
	res, err := adapter.SendMessage(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return 130
		}
		a.logger.Debug("send failed", zap.String("request_id", id), zap.Error(err))
		fmt.Fprintf(stderr, "Error: %s\n", displayError(err))
		return 1
	}

	fmt.Fprintln(stdout, res.Response)
	printCitations(stdout, res.Citations())
	if res.Usage != nil {
		a.logger.Info("send completed",
			zap.String("request_id", id),
			zap.String("model", res.ModelUsed),
			zap.Int("total_tokens", res.Usage.TotalTokens))
	}
	return 0
}

// =============================================================================
// 🌊 stream 命令
// =============================================================================

func runStream(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a, flags, message, ok := setup(ctx, "stream", args, stdin, stderr, nil)
	if !ok {
		return 2
	}
	defer a.close()

	adapter, err := a.adapter(flags.provider)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	req, err := a.request(flags, message)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	ctx, id := withRequestID(ctx)
	s, err := llm.StreamWithFallback(ctx, adapter, req, a.logger)
	if err != nil {
		if ctx.Err() != nil {
			return 130
		}
		fmt.Fprintf(stderr, "Error: %s\n", displayError(err))
		return 1
	}
	defer s.Close()

	var citations []types.Citation
	onEvent := func(ev streaming.Event) {
		if ev.Type == streaming.EventCitations {
			citations = append(citations, ev.Citations...)
		}
	}
	for chunk, err := range s.Chunks(ctx, onEvent) {
		if err != nil {
			fmt.Fprintln(stdout)
			fmt.Fprintf(stderr, "Error: %s\n", displayError(err))
			return 1
		}
		fmt.Fprint(stdout, chunk)
	}
	fmt.Fprintln(stdout)

	if s.Cancelled() {
		a.logger.Debug("stream cancelled", zap.String("request_id", id))
		return 130
	}
	printCitations(stdout, citations)
	return 0
}

// =============================================================================
// ⚖️ compare 命令
// =============================================================================

type compareResult struct {
	provider string
	result   *llm.SendResult
	err      error
}

func runCompare(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var names string
	a, flags, message, ok := setup(ctx, "compare", args, stdin, stderr, func(fs *flag.FlagSet) {
		fs.StringVar(&names, "providers", "", "Comma separated providers")
	})
	if !ok {
		return 2
	}
	defer a.close()

	targets := a.registry.List()
	if names != "" {
		targets = nil
		for n := range strings.SplitSeq(names, ",") {
			if n = strings.TrimSpace(n); n != "" {
				targets = append(targets, n)
			}
		}
	}
	if len(targets) == 0 {
		fmt.Fprintln(stderr, "Error: no providers configured")
		return 2
	}

	req, err := a.request(flags, message)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	ctx, _ = withRequestID(ctx)
	results := make([]compareResult, len(targets))

	// 单个供应商失败不取消其他请求
	var g errgroup.Group
	g.SetLimit(compareConcurrency)
	for i, name := range targets {
		g.Go(func() error {
			r := compareResult{provider: name}
			adapter, err := a.adapter(name)
			if err == nil {
				r.result, r.err = adapter.SendMessage(ctx, req)
			} else {
				r.err = err
			}
			results[i] = r
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		return 130
	}

	failures := 0
	for _, r := range results {
		fmt.Fprintf(stdout, "=== %s\n", r.provider)
		if r.err != nil {
			failures++
			fmt.Fprintf(stdout, "Error: %s\n\n", displayError(r.err))
			continue
		}
		fmt.Fprintln(stdout, r.result.Response)
		printCitations(stdout, r.result.Citations())
		fmt.Fprintln(stdout)
	}
	if failures == len(results) {
		return 1
	}
	return 0
}

// =============================================================================
// 📋 providers 命令
// =============================================================================

func runProviders(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("providers", flag.ContinueOnError)
	fs.SetOutput(stderr)
	flags := &commonFlags{}
	fs.StringVar(&flags.configPath, "config", "", "Path to config file")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	a, err := newApp(ctx, flags)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return 2
	}
	defer a.close()

	def, _ := a.registry.Default()
	for _, name := range a.registry.List() {
		ad, _ := a.registry.Get(name)
		caps := ad.Capabilities()
		marker := " "
		if def != nil && def.Name() == ad.Name() {
			marker = "*"
		}
		fmt.Fprintf(stdout, "%s %-12s streaming=%t images=%t documents=%t max_tokens=%d\n",
			marker, name, caps.Streaming, caps.SupportsImages, caps.SupportsDocuments, caps.MaxTokens)
	}
	if a.registry.Len() == 0 {
		fmt.Fprintln(stderr, "No providers configured; set providers.<name>.api_key")
		return 1
	}
	return 0
}

// printCitations 以 [n] title <url> 的形式输出引用
func printCitations(w io.Writer, citations []types.Citation) {
	if len(citations) == 0 {
		return
	}
	fmt.Fprintln(w)
	for _, c := range citations {
		title := c.Title
		if title == "" {
			title = c.URL
		}
		fmt.Fprintf(w, "[%d] %s <%s>\n", c.Index, title, c.URL)
	}
}
