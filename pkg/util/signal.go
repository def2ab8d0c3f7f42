package util

import "sync"

// SignalHandler 信号回调，sender 为事件源，params 为附加参数
type SignalHandler func(sender any, params ...any)

// Signals 进程内信号分发器，用于模型事件 -> 监听器的解耦
type Signals struct {
	mu       sync.RWMutex
	handlers map[string][]SignalHandler
}

var (
	sigOnce sync.Once
	sig     *Signals
)

// Sig 返回全局信号分发器
func Sig() *Signals {
	sigOnce.Do(func() {
		sig = &Signals{handlers: make(map[string][]SignalHandler)}
	})
	return sig
}

// Connect 注册某个信号的处理函数
func (s *Signals) Connect(name string, h SignalHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[name] = append(s.handlers[name], h)
}

// Emit 同步触发信号，调用方自行决定是否在 handler 内开协程
func (s *Signals) Emit(name string, sender any, params ...any) {
	s.mu.RLock()
	hs := make([]SignalHandler, len(s.handlers[name]))
	copy(hs, s.handlers[name])
	s.mu.RUnlock()

	for _, h := range hs {
		h(sender, params...)
	}
}
