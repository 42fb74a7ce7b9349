package streaming

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// DoneSentinel 是 OpenAI 兼容流的结束标记。
const DoneSentinel = "[DONE]"

// SSEEvent 是一帧 text/event-stream 数据。
type SSEEvent struct {
	Event string
	Data  string
	ID    string
}

// IsDone 报告该帧是否为 [DONE] 结束标记。
func (e SSEEvent) IsDone() bool { return strings.TrimSpace(e.Data) == DoneSentinel }

// SSEReader 逐帧读取 text/event-stream。
// 多行 data 以 "\n" 连接；注释行被忽略；不带字段名的行视为 data（兼容 NDJSON）。
type SSEReader struct {
	r *bufio.Reader
}

// NewSSEReader 创建读取器。
func NewSSEReader(r io.Reader) *SSEReader {
	return &SSEReader{r: bufio.NewReaderSize(r, 64<<10)}
}

// Next 返回下一帧。流结束时返回 io.EOF。
func (s *SSEReader) Next() (SSEEvent, error) {
	var (
		ev      SSEEvent
		data    []string
		hasData bool
	)
	for {
		line, err := s.r.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return SSEEvent{}, err
		}
		atEOF := err != nil

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			if hasData || ev.Event != "" {
				ev.Data = strings.Join(data, "\n")
				return ev, nil
			}
			if atEOF {
				return SSEEvent{}, io.EOF
			}
			continue
		}

		if !strings.HasPrefix(line, ":") {
			field, value, found := strings.Cut(line, ":")
			if !found {
				field, value = "data", line
			} else {
				value = strings.TrimPrefix(value, " ")
			}
			switch field {
			case "event":
				ev.Event = value
			case "data":
				data = append(data, value)
				hasData = true
			case "id":
				ev.ID = value
			default:
				if strings.HasPrefix(line, "{") {
					data = append(data, line)
					hasData = true
				}
			}
		}

		if atEOF {
			if hasData || ev.Event != "" {
				ev.Data = strings.Join(data, "\n")
				return ev, nil
			}
			return SSEEvent{}, io.EOF
		}
	}
}
