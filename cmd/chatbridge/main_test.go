package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/chatbridge/config"
	"github.com/BaSui01/chatbridge/testutil"
	"github.com/BaSui01/chatbridge/testutil/fixtures"
	"github.com/BaSui01/chatbridge/types"
)

// writeConfig 写入指向假供应商的配置文件
func writeConfig(t *testing.T, defaultProvider string, vendors map[string]string) string {
	t.Helper()
	var b strings.Builder
	fmt.Fprintf(&b, "default_provider: %s\n", defaultProvider)
	b.WriteString("log:\n  level: error\n  format: json\n")
	b.WriteString("retry:\n  max_attempts: 1\n  base_delay: 1ms\n  max_delay: 1ms\n")
	b.WriteString("providers:\n")
	for name, url := range vendors {
		fmt.Fprintf(&b, "  %s:\n    api_key: test-key\n    base_url: %s\n", name, url)
	}
	path := filepath.Join(t.TempDir(), "chatbridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(testutil.TestContext(t), args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

// --- 基本命令 ---

func TestRun_UsageAndUnknownCommand(t *testing.T) {
	code, _, stderr := runCLI(t, "")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "Usage:")

	code, _, stderr = runCLI(t, "", "launch")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "Unknown command: launch")

	code, stdout, _ := runCLI(t, "", "help")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "compare")
}

func TestRun_Version(t *testing.T) {
	code, stdout, _ := runCLI(t, "", "version")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "ChatBridge dev")
	assert.Contains(t, stdout, "Git Commit: unknown")
}

// --- send ---

func TestRun_Send(t *testing.T) {
	vendor := testutil.NewFakeVendor(t).WithJSON(http.StatusOK, fixtures.OpenAICompatCompletion("Paris.", "deepseek-chat"))
	cfg := writeConfig(t, "deepseek", map[string]string{"deepseek": vendor.URL()})

	code, stdout, stderr := runCLI(t, "", "send", "--config", cfg, "--system", "be terse", "Capital", "of", "France?")
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "Paris.\n", stdout)

	body := vendor.LastRequest().JSON(t)
	msgs := body["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "Capital of France?", msgs[1].(map[string]any)["content"])
	assert.Equal(t, "Bearer test-key", vendor.LastRequest().Header.Get("Authorization"))
}

func TestRun_SendReadsStdin(t *testing.T) {
	vendor := testutil.NewFakeVendor(t).WithJSON(http.StatusOK, fixtures.OpenAICompatCompletion("pong", "deepseek-chat"))
	cfg := writeConfig(t, "deepseek", map[string]string{"deepseek": vendor.URL()})

	code, stdout, _ := runCLI(t, "  ping\n", "send", "--config", cfg)
	require.Equal(t, 0, code)
	assert.Equal(t, "pong\n", stdout)
}

func TestRun_SendVendorError(t *testing.T) {
	vendor := testutil.NewFakeVendor(t).WithJSON(http.StatusUnauthorized, `{"error":{"message":"invalid api key"}}`)
	cfg := writeConfig(t, "mistral", map[string]string{"mistral": vendor.URL()})

	code, stdout, stderr := runCLI(t, "", "send", "--config", cfg, "hi")
	assert.Equal(t, 1, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, string(types.ErrAPIUnauthorized))
	assert.Len(t, vendor.Requests(), 1)
}

func TestRun_SendUnknownProvider(t *testing.T) {
	vendor := testutil.NewFakeVendor(t)
	cfg := writeConfig(t, "deepseek", map[string]string{"deepseek": vendor.URL()})

	code, _, stderr := runCLI(t, "", "send", "--config", cfg, "--provider", "cohere", "hi")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, `provider "cohere" is not configured`)
	assert.Empty(t, vendor.Requests())
}

func TestRun_SendWithoutMessage(t *testing.T) {
	code, _, stderr := runCLI(t, "", "send")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "message is required")
}

// --- stream ---

func TestRun_Stream(t *testing.T) {
	vendor := testutil.NewFakeVendor(t).WithSSE(fixtures.OpenAICompatFrames("Hel", "lo ", "world")...)
	cfg := writeConfig(t, "grok", map[string]string{"grok": vendor.URL()})

	code, stdout, stderr := runCLI(t, "", "stream", "--config", cfg, "greet me")
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, "Hello world\n", stdout)
	assert.Equal(t, true, vendor.LastRequest().JSON(t)["stream"])
}

func TestRun_StreamErrorEvent(t *testing.T) {
	frames := append(fixtures.OpenAICompatFrames("partial")[:2],
		fixtures.OpenAICompatErrorFrame("model overloaded", "server_error"))
	vendor := testutil.NewFakeVendor(t).WithSSE(frames...)
	cfg := writeConfig(t, "deepseek", map[string]string{"deepseek": vendor.URL()})

	code, stdout, stderr := runCLI(t, "", "stream", "--config", cfg, "hi")
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "partial")
	assert.Contains(t, stderr, string(types.ErrAPIProviderOverloaded))
}

func TestRun_StreamCancelledIsSilent(t *testing.T) {
	vendor := testutil.NewFakeVendor(t).WithReply(testutil.Reply{
		Status: http.StatusOK,
		Frames: fixtures.OpenAICompatFrames("never")[:1],
		Hang:   true,
	})
	cfg := writeConfig(t, "deepseek", map[string]string{"deepseek": vendor.URL()})

	ctx, cancel := context.WithCancel(context.Background())
	var stdout, stderr bytes.Buffer
	done := make(chan int)
	go func() {
		done <- run(ctx, []string{"stream", "--config", cfg, "hi"}, nil, &stdout, &stderr)
	}()

	testutil.AssertEventuallyTrue(t, func() bool { return len(vendor.Requests()) == 1 }, 5*time.Second)
	cancel()

	select {
	case code := <-done:
		assert.Equal(t, 130, code)
		assert.NotContains(t, stderr.String(), "Error")
	case <-testutil.TestContext(t).Done():
		t.Fatal("stream did not stop after cancellation")
	}
}

// --- compare ---

func TestRun_Compare(t *testing.T) {
	good := testutil.NewFakeVendor(t).WithJSON(http.StatusOK, fixtures.OpenAICompatCompletion("from mistral", "mistral-large-latest"))
	bad := testutil.NewFakeVendor(t).WithJSON(http.StatusTooManyRequests, `{"error":{"message":"slow down"}}`)
	cfg := writeConfig(t, "mistral", map[string]string{"mistral": good.URL(), "deepseek": bad.URL()})

	code, stdout, stderr := runCLI(t, "", "compare", "--config", cfg, "--providers", "mistral, deepseek", "hi")
	require.Equal(t, 0, code, stderr)

	mistralAt := strings.Index(stdout, "=== mistral")
	deepseekAt := strings.Index(stdout, "=== deepseek")
	require.GreaterOrEqual(t, mistralAt, 0)
	require.Greater(t, deepseekAt, mistralAt, "results keep the requested order")
	assert.Contains(t, stdout, "from mistral")
	assert.Contains(t, stdout, string(types.ErrAPIRateLimited))
}

func TestRun_CompareAllFail(t *testing.T) {
	bad := testutil.NewFakeVendor(t).WithJSON(http.StatusForbidden, `{"error":{"message":"nope"}}`)
	cfg := writeConfig(t, "grok", map[string]string{"grok": bad.URL()})

	code, stdout, _ := runCLI(t, "", "compare", "--config", cfg, "hi")
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, "=== grok")
}

// --- providers ---

func TestRun_Providers(t *testing.T) {
	vendor := testutil.NewFakeVendor(t)
	cfg := writeConfig(t, "mistral", map[string]string{"mistral": vendor.URL(), "grok": vendor.URL()})

	code, stdout, _ := runCLI(t, "", "providers", "--config", cfg)
	require.Equal(t, 0, code)
	lines := strings.Split(strings.TrimRight(stdout, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "  grok"))
	assert.True(t, strings.HasPrefix(lines[1], "* mistral"))
	assert.Contains(t, lines[1], "images=true")
}

func TestRun_ProvidersNoneConfigured(t *testing.T) {
	cfg := writeConfig(t, "", nil)
	code, _, stderr := runCLI(t, "", "providers", "--config", cfg)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "No providers configured")
}

// --- 辅助函数 ---

func TestReadMessage(t *testing.T) {
	msg, err := readMessage([]string{"a", "b"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "a b", msg)

	msg, err = readMessage(nil, strings.NewReader("\n from stdin \n"))
	require.NoError(t, err)
	assert.Equal(t, "from stdin", msg)

	_, err = readMessage(nil, strings.NewReader("   "))
	assert.Error(t, err)
}

func TestLoadAttachment(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "pixel.png")
	require.NoError(t, os.WriteFile(img, []byte("\x89PNG\r\n\x1a\nrest"), 0o644))
	doc := filepath.Join(dir, "notes.unknownext")
	require.NoError(t, os.WriteFile(doc, []byte("plain words"), 0o644))

	a, err := loadAttachment(img)
	require.NoError(t, err)
	assert.Equal(t, types.AttachmentImage, a.Type)
	assert.Equal(t, "image/png", a.MimeType)
	assert.Equal(t, "pixel.png", a.FileName)
	assert.Equal(t, 12, a.DecodedSize())

	a, err = loadAttachment(doc)
	require.NoError(t, err)
	assert.Equal(t, types.AttachmentDocument, a.Type)
	assert.Equal(t, "text/plain", a.MimeType)

	_, err = loadAttachment(filepath.Join(dir, "missing.pdf"))
	assert.Error(t, err)
}

func TestDisplayError(t *testing.T) {
	err := types.NewAPIError(types.ErrAPIRateLimited, "429 from vendor", 429, "openai", nil).
		WithUserMessage("Too many requests")
	err.Retryable = true
	assert.Equal(t, "Too many requests [API_RATE_LIMITED, retryable]", displayError(err))
	assert.Equal(t, "plain", displayError(fmt.Errorf("plain")))
}

func TestInitLogger(t *testing.T) {
	for _, cfg := range []config.LogConfig{
		config.DefaultLogConfig(),
		{Level: "debug", Format: "console"},
		{Level: "nonsense", Format: "json", OutputPaths: []string{"stderr"}},
	} {
		logger := initLogger(cfg)
		require.NotNil(t, logger)
		logger.Debug("probe")
	}
}
