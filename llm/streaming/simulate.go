package streaming

import (
	"context"
	"time"

	"github.com/BaSui01/chatbridge/types"
)

// 模拟流式的默认参数
const (
	DefaultChunkSize  = 8
	DefaultChunkDelay = 10 * time.Millisecond
)

// SimulateConfig 配置模拟流式投递。
type SimulateConfig struct {
	ChunkSize int
	Delay     time.Duration
	Citations []types.Citation
	Usage     *types.Usage
}

// ChunkText 按字符（rune）把 text 切成长度不超过 size 的片段。
func ChunkText(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	runes := []rune(text)
	chunks := make([]string, 0, len(runes)/size+1)
	for start := 0; start < len(runes); start += size {
		end := min(start+size, len(runes))
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

// SimulateProducer 返回一个把完整文本按固定长度分片、按节奏推送的生产者。
// 文本之后依次推送引用与 Done。
func SimulateProducer(text string, cfg SimulateConfig) ProduceFunc {
	return func(ctx context.Context, sink *Sink) error {
		sink.Open()
		for i, chunk := range ChunkText(text, cfg.ChunkSize) {
			if i > 0 && cfg.Delay > 0 {
				timer := time.NewTimer(cfg.Delay)
				select {
				case <-ctx.Done():
					timer.Stop()
					return nil
				case <-timer.C:
				}
			}
			if !sink.Text(chunk) {
				return nil
			}
		}
		sink.Citations(cfg.Citations)
		sink.Usage(cfg.Usage)
		sink.Done()
		return nil
	}
}

// Simulate 把已经完整取得的响应包装成流，为不支持线上流式的供应商
// 提供统一的增量投递接口。
func Simulate(ctx context.Context, provider, text string, cfg SimulateConfig, opts ...Option) *Stream {
	return Start(ctx, provider, SimulateProducer(text, cfg), opts...)
}
