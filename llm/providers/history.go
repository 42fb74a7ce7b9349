package providers

import (
	"slices"
	"strings"

	"github.com/BaSui01/chatbridge/llm"
	"github.com/BaSui01/chatbridge/types"
)

// Role 是发往供应商的角色名。
type Role string

const (
	RoleSystem    Role = "system"
	RoleDeveloper Role = "developer"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn 是供应商无关的一轮对话；只有最后一个用户轮携带附件。
type Turn struct {
	Role        Role
	Content     string
	Attachments []types.Attachment
}

// BuildTurns 把历史、新消息和续写上下文转换为有序的对话轮。
//
// 历史按时间稳定排序；user 映射为 user，ai 映射为 assistant；空内容被跳过。
// 新消息总是作为用户轮追加（即使为空，只要带附件）。
// 有续写上下文时再追加 assistant 部分回答和一条固定的续写指令。
func BuildTurns(req *llm.SendRequest) []Turn {
	history := slices.Clone(req.History)
	slices.SortStableFunc(history, func(a, b types.Message) int {
		return a.Timestamp.Compare(b.Timestamp)
	})

	turns := make([]Turn, 0, len(history)+3)
	for _, m := range history {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		role := RoleAssistant
		if m.IsUser() {
			role = RoleUser
		}
		turns = append(turns, Turn{Role: role, Content: m.Content})
	}

	if req.Message != "" || len(req.Attachments) > 0 {
		turns = append(turns, Turn{Role: RoleUser, Content: req.Message, Attachments: req.Attachments})
	}

	if req.Resumption != nil && req.Resumption.PartialResponse != "" {
		turns = append(turns,
			Turn{Role: RoleAssistant, Content: req.Resumption.PartialResponse},
			Turn{Role: RoleUser, Content: llm.ContinuationInstruction},
		)
	}
	return turns
}

// MergeConsecutive 合并相邻的同角色轮，内容以空行连接，附件顺序保留。
func MergeConsecutive(turns []Turn) []Turn {
	out := make([]Turn, 0, len(turns))
	for _, t := range turns {
		if n := len(out); n > 0 && out[n-1].Role == t.Role {
			prev := &out[n-1]
			switch {
			case prev.Content == "":
				prev.Content = t.Content
			case t.Content != "":
				prev.Content += "\n\n" + t.Content
			}
			prev.Attachments = append(slices.Clip(prev.Attachments), t.Attachments...)
			continue
		}
		out = append(out, t)
	}
	return out
}

// EnsureAlternation 合并同角色轮并丢弃开头的 assistant 轮，
// 使序列以 user 开始且严格交替。
func EnsureAlternation(turns []Turn) []Turn {
	merged := MergeConsecutive(turns)
	for len(merged) > 0 && merged[0].Role == RoleAssistant {
		merged = merged[1:]
	}
	return merged
}

// ApplySystem 按模式把系统提示并入对话轮。
// SystemTopLevel 与 SystemDropped 不修改 turns，前者由调用方放到请求顶层字段。
func ApplySystem(turns []Turn, prompt string, mode SystemMode) []Turn {
	if prompt == "" {
		return turns
	}
	switch mode {
	case SystemAllowed:
		return append([]Turn{{Role: RoleSystem, Content: prompt}}, turns...)
	case SystemDeveloper:
		return append([]Turn{{Role: RoleDeveloper, Content: prompt}}, turns...)
	default:
		return turns
	}
}
