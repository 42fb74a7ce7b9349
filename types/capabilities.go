package types

// Capabilities declares what an adapter instance accepts. Callers consult it
// before attaching files or requesting streaming.
type Capabilities struct {
	Streaming         bool `json:"streaming"`
	Attachments       bool `json:"attachments"`
	SupportsImages    bool `json:"supports_images"`
	SupportsDocuments bool `json:"supports_documents"`
	FunctionCalling   bool `json:"function_calling"`
	SystemPrompt      bool `json:"system_prompt"`
	MaxTokens         int  `json:"max_tokens"`
	ContextWindow     int  `json:"context_window"`
}

// Supports reports whether an attachment of the given kind may be sent.
func (c Capabilities) Supports(a Attachment) bool {
	if !c.Attachments {
		return false
	}
	switch a.Type {
	case AttachmentImage:
		return c.SupportsImages
	case AttachmentDocument:
		return c.SupportsDocuments
	default:
		return false
	}
}

// Citation is a source referenced by a vendor response. Index is 1-based.
type Citation struct {
	Index   int    `json:"index"`
	URL     string `json:"url"`
	Title   string `json:"title,omitempty"`
	Snippet string `json:"snippet,omitempty"`
}
