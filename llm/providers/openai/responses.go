package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/BaSui01/chatbridge/llm"
	"github.com/BaSui01/chatbridge/llm/citations"
	"github.com/BaSui01/chatbridge/llm/errnorm"
	"github.com/BaSui01/chatbridge/llm/providers"
	"github.com/BaSui01/chatbridge/types"
)

// --- Responses API Types ---

type responsesRequest struct {
	Model              string           `json:"model"`
	Input              []responsesInput `json:"input"`
	Instructions       string           `json:"instructions,omitempty"`
	MaxOutputTokens    int              `json:"max_output_tokens,omitempty"`
	Temperature        *float64         `json:"temperature,omitempty"`
	Stream             bool             `json:"stream,omitempty"`
	PreviousResponseID string           `json:"previous_response_id,omitempty"`
}

type responsesInput struct {
	Role    string             `json:"role"`
	Content []responsesContent `json:"content"`
}

type responsesContent struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
	Filename string `json:"filename,omitempty"`
	FileData string `json:"file_data,omitempty"`
}

type responsesResponse struct {
	ID                string                      `json:"id"`
	Model             string                      `json:"model"`
	Status            string                      `json:"status"`
	Output            []responsesOutput           `json:"output"`
	Usage             *responsesUsage             `json:"usage,omitempty"`
	Error             *responsesError             `json:"error,omitempty"`
	IncompleteDetails *responsesIncompleteDetails `json:"incomplete_details,omitempty"`
}

type responsesOutput struct {
	Type    string                   `json:"type"`
	Role    string                   `json:"role"`
	Content []responsesOutputContent `json:"content"`
}

type responsesOutputContent struct {
	Type        string                `json:"type"`
	Text        string                `json:"text,omitempty"`
	Annotations []responsesAnnotation `json:"annotations,omitempty"`
}

type responsesAnnotation struct {
	Type  string `json:"type"`
	URL   string `json:"url,omitempty"`
	Title string `json:"title,omitempty"`
}

type responsesUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

type responsesError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type responsesIncompleteDetails struct {
	Reason string `json:"reason"`
}

func (u *responsesUsage) toUsage() *types.Usage {
	if u == nil {
		return nil
	}
	return types.NewUsage(u.InputTokens, u.OutputTokens, u.TotalTokens)
}

// text 拼接所有 message 输出中的 output_text。
func (r *responsesResponse) text() string {
	var out string
	for _, o := range r.Output {
		if o.Type != "message" {
			continue
		}
		for _, c := range o.Content {
			if c.Type == "output_text" {
				out += c.Text
			}
		}
	}
	return out
}

// addAnnotations 把 url_citation 注解加入 b。
func (r *responsesResponse) addAnnotations(b *citations.Builder) {
	for _, o := range r.Output {
		for _, c := range o.Content {
			for _, a := range c.Annotations {
				if a.Type == "url_citation" {
					b.Add(a.URL, a.Title, "")
				}
			}
		}
	}
}

// failure 返回 failed / incomplete 响应对应的错误，正常响应返回 nil。
func (r *responsesResponse) failure(provider string) *types.APIError {
	switch {
	case r.Error != nil:
		return errnorm.FromStreamPayload(errorPayload(r.Error), provider)
	case r.Status == "failed":
		return errnorm.FromStreamPayload(`{"error":{"message":"response failed"}}`, provider)
	case r.Status == "incomplete" && r.IncompleteDetails != nil && r.IncompleteDetails.Reason == "content_filter":
		return errnorm.FromStreamPayload(`{"error":{"type":"content_filter","message":"The response was blocked by the content filter."}}`, provider)
	}
	return nil
}

func errorPayload(e *responsesError) string {
	data, err := json.Marshal(map[string]any{"error": e})
	if err != nil {
		return e.Message
	}
	return string(data)
}

// buildResponsesRequest 构造 /v1/responses 请求体。系统提示走 instructions 字段。
func (p *OpenAIProvider) buildResponsesRequest(ctx context.Context, req *llm.SendRequest, model string, stream bool) responsesRequest {
	q := p.Quirks(model)

	body := responsesRequest{
		Model:           model,
		Input:           responsesInputs(providers.BuildTurns(req)),
		MaxOutputTokens: req.MaxTokens,
		Temperature:     q.Temperature(req.Temperature),
		Stream:          stream,
	}
	if q.System != providers.SystemDropped && p.Capabilities().SystemPrompt {
		body.Instructions = req.SystemPrompt
	}
	if prevID, ok := PreviousResponseIDFromContext(ctx); ok {
		body.PreviousResponseID = prevID
	}

	p.Logger.Debug("responses request built",
		zap.String("model", model),
		zap.Int("input", len(body.Input)),
		zap.Bool("stream", stream),
		zap.Bool("instructions", body.Instructions != ""),
	)
	return body
}

// responsesInputs 把对话轮转换为 Responses 输入。assistant 轮使用 output_text。
func responsesInputs(turns []providers.Turn) []responsesInput {
	out := make([]responsesInput, 0, len(turns))
	for _, t := range turns {
		textType := "input_text"
		if t.Role == providers.RoleAssistant {
			textType = "output_text"
		}
		content := make([]responsesContent, 0, len(t.Attachments)+1)
		if t.Content != "" {
			content = append(content, responsesContent{Type: textType, Text: t.Content})
		}
		for _, a := range t.Attachments {
			data := providers.EncodeAttachment(a, providers.EncodingDataURI)
			if a.IsImage() {
				content = append(content, responsesContent{Type: "input_image", ImageURL: data})
				continue
			}
			content = append(content, responsesContent{Type: "input_file", Filename: a.FileName, FileData: data})
		}
		out = append(out, responsesInput{Role: string(t.Role), Content: content})
	}
	return out
}

// toResult 把 Responses API 响应转换为 SendResult.
func (p *OpenAIProvider) toResult(resp *responsesResponse, model string) (*llm.SendResult, error) {
	if err := resp.failure(p.Name()); err != nil {
		return nil, err
	}
	if len(resp.Output) == 0 {
		return nil, types.NewAPIError(types.ErrAPIInvalidResponse,
			fmt.Sprintf("%s returned no output", p.Name()), http.StatusOK, p.Name(), nil)
	}

	text := resp.text()
	result := &llm.SendResult{
		Response:  text,
		ModelUsed: model,
		Usage:     resp.Usage.toUsage(),
	}
	if resp.Model != "" {
		result.ModelUsed = resp.Model
	}

	b := citations.NewBuilder()
	resp.addAnnotations(b)
	c := b.List()
	if len(c) == 0 {
		c = citations.FromMarkdown(text)
	}
	if len(c) > 0 {
		result.Metadata = &llm.ResultMetadata{Citations: c}
	}
	return result, nil
}
