package llm

import (
	"fmt"
	"sort"
	"sync"
)

// AdapterRegistry 是并发安全的适配器注册表，可指定一个默认适配器。
type AdapterRegistry struct {
	adapters       map[string]Adapter
	defaultAdapter string
	mu             sync.RWMutex
}

// NewAdapterRegistry 创建空注册表。
func NewAdapterRegistry() *AdapterRegistry {
	return &AdapterRegistry{
		adapters: make(map[string]Adapter),
	}
}

// Register 以 name 注册适配器；同名时替换。
func (r *AdapterRegistry) Register(name string, a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[name] = a
}

// Get 按名称取适配器。
func (r *AdapterRegistry) Get(name string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[name]
	return a, ok
}

// Default 返回默认适配器。未设置或已被移除时返回错误。
func (r *AdapterRegistry) Default() (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.defaultAdapter == "" {
		return nil, fmt.Errorf("no default adapter set")
	}
	a, ok := r.adapters[r.defaultAdapter]
	if !ok {
		return nil, fmt.Errorf("default adapter %q not found in registry", r.defaultAdapter)
	}
	return a, nil
}

// SetDefault 把已注册的适配器设为默认。
func (r *AdapterRegistry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.adapters[name]; !ok {
		return fmt.Errorf("adapter %q not registered", name)
	}
	r.defaultAdapter = name
	return nil
}

// List 返回排序后的已注册名称。
func (r *AdapterRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Unregister 移除适配器；移除的是默认适配器时清空默认值。
func (r *AdapterRegistry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.adapters, name)
	if r.defaultAdapter == name {
		r.defaultAdapter = ""
	}
}

// Len 返回已注册数量。
func (r *AdapterRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.adapters)
}
