// Package openaicompat provides the shared adapter for every vendor that
// speaks the OpenAI Chat Completions wire format.
//
// DeepSeek, Mistral and xAI Grok embed openaicompat.Provider and only
// override what differs:
//
//   - Provider name, base URL and default model
//   - Capabilities (attachments, context window)
//   - Model quirk rules (strict alternation, omitted temperature)
//   - Request hooks for vendor-specific body fields
//
// The stream normalizer reduces "data:" chunks to canonical events:
// choices[0].delta.content becomes a text delta, an in-band "error" object
// becomes a single Error event, and "[DONE]" (or a clean EOF) becomes Done.
// Citations arrive either as a top-level "citations" array or inline as
// markdown links, which are extracted from the accumulated text.
//
// Usage:
//
//	p := openaicompat.New(openaicompat.Config{
//	    ProviderName: "deepseek",
//	    APIKey:       cfg.APIKey,
//	    BaseURL:      "https://api.deepseek.com",
//	    DefaultModel: "deepseek-chat",
//	}, logger)
package openaicompat
