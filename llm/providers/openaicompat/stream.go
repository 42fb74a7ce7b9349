package openaicompat

import (
	"fmt"
	"io"
	"net/http"

	"github.com/BaSui01/chatbridge/llm/citations"
	"github.com/BaSui01/chatbridge/llm/errnorm"
	"github.com/BaSui01/chatbridge/llm/providers"
	"github.com/BaSui01/chatbridge/llm/streaming"
	"github.com/BaSui01/chatbridge/types"
)

// StreamSSE parses an SSE stream from an OpenAI-compatible API and pushes
// canonical events into sink. The caller has already checked the response
// status.
func StreamSSE(sink *streaming.Sink, body io.Reader, provider string) error {
	n := &normalizer{sink: sink, provider: provider}
	if err := providers.PumpSSE(sink, body, provider, n.handle); err != nil {
		return err
	}
	n.finish()
	return nil
}

// normalizer 是唯一出现 chat completions 分片字段名的地方。
type normalizer struct {
	sink     *streaming.Sink
	provider string

	urls    []string
	results []citations.SearchResult
}

func (n *normalizer) handle(ev streaming.SSEEvent) (bool, error) {
	if ev.IsDone() {
		n.finish()
		return true, nil
	}

	chunk, err := providers.DecodeOpenAICompatChunk(ev.Data)
	if err != nil {
		return false, types.NewAPIError(types.ErrAPIInvalidResponse,
			fmt.Sprintf("%s sent an undecodable stream chunk: %v", n.provider, err),
			http.StatusOK, n.provider, err)
	}
	if chunk.Error != nil {
		return false, errnorm.FromStreamPayload(errorPayload(chunk.Error), n.provider)
	}

	if len(chunk.Citations) > 0 {
		n.urls = chunk.Citations
	}
	if len(chunk.SearchResults) > 0 {
		n.results = chunk.SearchResults
	}
	n.sink.Usage(chunk.Usage.ToUsage())

	n.sink.Text(chunk.FirstText())

	if len(chunk.Choices) > 0 && chunk.Choices[0].FinishReason == "content_filter" {
		return false, errnorm.FromStreamPayload(`{"error":{"type":"content_filter","message":"The response was blocked by the content filter."}}`, n.provider)
	}
	return false, nil
}

// finish 在 [DONE] 或干净的 EOF 时推送引用与 Done。
func (n *normalizer) finish() {
	if n.sink.Terminated() {
		return
	}
	if len(n.urls) > 0 || len(n.results) > 0 {
		n.sink.Citations(citations.FromSearchResults(n.urls, n.results))
	} else {
		n.sink.Citations(citations.FromMarkdown(n.sink.Accumulated()))
	}
	n.sink.Done()
}
