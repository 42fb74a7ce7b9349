// Package citations 从供应商响应中提取来源引用，统一为 1 起始、按 URL 去重的列表。
package citations

import (
	"regexp"
	"strings"

	"github.com/BaSui01/chatbridge/types"
)

// markdownLink 匹配 [title](http(s)://...) 形式的行内链接。URL 内允许一层成对括号。
var markdownLink = regexp.MustCompile(`\[([^\[\]]*)\]\((https?://(?:[^\s()]|\([^\s()]*\))+)\)`)

// Builder 按首次出现顺序收集引用并按 URL 去重。
type Builder struct {
	seen map[string]int
	list []types.Citation
}

// NewBuilder 创建空的 Builder。
func NewBuilder() *Builder {
	return &Builder{seen: make(map[string]int)}
}

// Add 追加一条引用。URL 为空的条目被忽略；重复 URL 只补全缺失的标题与摘要。
func (b *Builder) Add(url, title, snippet string) {
	url = strings.TrimSpace(url)
	if url == "" {
		return
	}
	if i, ok := b.seen[url]; ok {
		if b.list[i].Title == "" {
			b.list[i].Title = title
		}
		if b.list[i].Snippet == "" {
			b.list[i].Snippet = snippet
		}
		return
	}
	b.seen[url] = len(b.list)
	b.list = append(b.list, types.Citation{
		Index:   len(b.list) + 1,
		URL:     url,
		Title:   strings.TrimSpace(title),
		Snippet: strings.TrimSpace(snippet),
	})
}

// Len 返回已收集的引用数。
func (b *Builder) Len() int { return len(b.list) }

// List 返回引用列表；为空时返回 nil。
func (b *Builder) List() []types.Citation {
	if len(b.list) == 0 {
		return nil
	}
	out := make([]types.Citation, len(b.list))
	copy(out, b.list)
	return out
}

// FromMarkdown 从文本中的 [title](url) 链接提取引用。
func FromMarkdown(text string) []types.Citation {
	b := NewBuilder()
	for _, m := range markdownLink.FindAllStringSubmatch(text, -1) {
		b.Add(m[2], m[1], "")
	}
	return b.List()
}

// FromURLs 把纯 URL 列表转换为引用。
func FromURLs(urls []string) []types.Citation {
	b := NewBuilder()
	for _, u := range urls {
		b.Add(u, "", "")
	}
	return b.List()
}

// SearchResult 是搜索型供应商返回的检索条目。
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
	Date    string `json:"date,omitempty"`
}

// FromSearchResults 转换检索结果；urls 提供时以其顺序为准并用检索结果补全标题。
func FromSearchResults(urls []string, results []SearchResult) []types.Citation {
	b := NewBuilder()
	byURL := make(map[string]SearchResult, len(results))
	for _, r := range results {
		byURL[r.URL] = r
	}
	for _, u := range urls {
		r := byURL[u]
		b.Add(u, r.Title, r.Snippet)
	}
	for _, r := range results {
		b.Add(r.URL, r.Title, r.Snippet)
	}
	return b.List()
}

// Merge 合并多组引用并重新编号。
func Merge(groups ...[]types.Citation) []types.Citation {
	b := NewBuilder()
	for _, g := range groups {
		for _, c := range g {
			b.Add(c.URL, c.Title, c.Snippet)
		}
	}
	return b.List()
}
