package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// RecordedRequest 是假供应商收到的一次请求。
type RecordedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// JSON 把请求体解码为通用 map。
func (r RecordedRequest) JSON(t *testing.T) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(r.Body, &m); err != nil {
		t.Fatalf("request body is not JSON: %v\n%s", err, r.Body)
	}
	return m
}

// Reply 描述假供应商对一次请求的响应。
type Reply struct {
	Status int
	Header map[string]string
	Body   string

	// Frames 非空时以 text/event-stream 逐帧写出并 flush。
	Frames     []string
	FrameDelay time.Duration

	// Hang 为 true 时在写完 Frames 后保持连接直到客户端断开。
	Hang bool
}

// FakeVendor 是基于 httptest 的脚本化供应商。按顺序消费 replies，
// 用完后重复最后一个。
type FakeVendor struct {
	t      *testing.T
	server *httptest.Server

	mu       sync.Mutex
	replies  []Reply
	requests []RecordedRequest

	// Disconnected 在客户端断开挂起的连接时关闭。
	Disconnected chan struct{}
	discOnce     sync.Once

	stop chan struct{}
}

// NewFakeVendor 启动假供应商，测试结束时自动关闭。
func NewFakeVendor(t *testing.T) *FakeVendor {
	t.Helper()
	v := &FakeVendor{t: t, Disconnected: make(chan struct{}), stop: make(chan struct{})}
	v.server = httptest.NewServer(http.HandlerFunc(v.handle))
	t.Cleanup(v.server.Close)
	// 先释放挂起的 handler，Close 才不会阻塞
	t.Cleanup(func() { close(v.stop) })
	return v
}

// URL 返回服务根地址。
func (v *FakeVendor) URL() string { return v.server.URL }

// Client 返回信任测试服务器的 HTTP 客户端。
func (v *FakeVendor) Client() *http.Client { return v.server.Client() }

// WithReply 追加一个响应。
func (v *FakeVendor) WithReply(r Reply) *FakeVendor {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.replies = append(v.replies, r)
	return v
}

// WithJSON 追加一个 JSON 响应。
func (v *FakeVendor) WithJSON(status int, body any) *FakeVendor {
	s, ok := body.(string)
	if !ok {
		s = MustJSON(body)
	}
	return v.WithReply(Reply{Status: status, Body: s, Header: map[string]string{"Content-Type": "application/json"}})
}

// WithSSE 追加一个 SSE 响应。
func (v *FakeVendor) WithSSE(frames ...string) *FakeVendor {
	return v.WithReply(Reply{Status: http.StatusOK, Frames: frames})
}

// Requests 返回已记录的请求副本。
func (v *FakeVendor) Requests() []RecordedRequest {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]RecordedRequest(nil), v.requests...)
}

// LastRequest 返回最近一次请求，没有时使测试失败。
func (v *FakeVendor) LastRequest() RecordedRequest {
	v.t.Helper()
	reqs := v.Requests()
	if len(reqs) == 0 {
		v.t.Fatal("fake vendor received no requests")
	}
	return reqs[len(reqs)-1]
}

func (v *FakeVendor) next() Reply {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.replies) == 0 {
		return Reply{Status: http.StatusOK, Body: "{}"}
	}
	r := v.replies[0]
	if len(v.replies) > 1 {
		v.replies = v.replies[1:]
	}
	return r
}

func (v *FakeVendor) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	v.mu.Lock()
	v.requests = append(v.requests, RecordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Header: r.Header.Clone(),
		Body:   body,
	})
	v.mu.Unlock()

	reply := v.next()
	for k, val := range reply.Header {
		w.Header().Set(k, val)
	}
	status := reply.Status
	if status == 0 {
		status = http.StatusOK
	}

	if len(reply.Frames) == 0 && !reply.Hang {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply.Body)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(status)
	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}
	for _, frame := range reply.Frames {
		if reply.FrameDelay > 0 {
			select {
			case <-r.Context().Done():
				v.markDisconnected()
				return
			case <-v.stop:
				return
			case <-time.After(reply.FrameDelay):
			}
		}
		if _, err := io.WriteString(w, frame); err != nil {
			v.markDisconnected()
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
	if reply.Hang {
		select {
		case <-r.Context().Done():
			v.markDisconnected()
		case <-v.stop:
		}
	}
}

func (v *FakeVendor) markDisconnected() {
	v.discOnce.Do(func() { close(v.Disconnected) })
}

// SSEData 把 v 编码为一个只有 data 行的 SSE 帧。
func SSEData(v any) string {
	s, ok := v.(string)
	if !ok {
		s = MustJSON(v)
	}
	return fmt.Sprintf("data: %s\n\n", s)
}

// SSENamed 编码一个带 event 名的 SSE 帧。
func SSENamed(event string, v any) string {
	return "event: " + event + "\n" + SSEData(v)
}
