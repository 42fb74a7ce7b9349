// =============================================================================
// ChatBridge 命令行入口
// =============================================================================
// 通过统一适配器调用各模型供应商
//
// 使用方法:
//
//	chatbridge send "hello"                          # 非流式请求默认供应商
//	chatbridge stream --provider anthropic "hello"   # 流式输出
//	chatbridge compare --providers openai,cohere "q" # 并发对比多个供应商
//	chatbridge providers                             # 列出已配置的供应商
//	chatbridge version                               # 显示版本信息
// =============================================================================

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/BaSui01/chatbridge/internal/telemetry"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	// Ctrl-C 取消进行中的请求，流静默结束
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run 执行子命令并返回退出码
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 2
	}

	switch args[0] {
	case "send":
		return runSend(ctx, args[1:], stdin, stdout, stderr)
	case "stream":
		return runStream(ctx, args[1:], stdin, stdout, stderr)
	case "compare":
		return runCompare(ctx, args[1:], stdin, stdout, stderr)
	case "providers":
		return runProviders(ctx, args[1:], stdout, stderr)
	case "version":
		printVersion(stdout)
		return 0
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		printUsage(stderr)
		return 2
	}
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion(w io.Writer) {
	v := Version
	if v == "dev" {
		v = telemetry.Version()
	}
	fmt.Fprintf(w, "ChatBridge %s\n", v)
	fmt.Fprintf(w, "  Build Time: %s\n", BuildTime)
	fmt.Fprintf(w, "  Git Commit: %s\n", GitCommit)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `ChatBridge - multi-vendor chat adapter

Usage:
  chatbridge <command> [options] [message]

Commands:
  send        Send one message and print the full reply
  stream      Stream the reply as it arrives
  compare     Send the same message to several providers concurrently
  providers   List configured providers
  version     Show version information
  help        Show this help message

Common options:
  --config <path>      Path to configuration file (YAML)
  --provider <name>    Provider to use (defaults to default_provider)
  --model <id>         Override the provider's default model
  --system <text>      System prompt
  --max-tokens <n>     Output token limit
  --temperature <t>    Sampling temperature
  --attach <path>      Attach a file (repeatable)

Options for 'compare':
  --providers <a,b>    Comma separated providers (defaults to all configured)

The message is read from stdin when no positional argument is given.

Examples:
  chatbridge send "What is the capital of France?"
  chatbridge stream --provider perplexity "latest Go release"
  chatbridge compare --providers openai,anthropic "Explain CRDTs briefly"
  CHATBRIDGE_PROVIDERS_DEEPSEEK_API_KEY=sk-... chatbridge send --provider deepseek "hi"`)
}
