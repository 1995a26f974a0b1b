package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"mooney-stimuli/internal/logger"
)

const component = "ShutdownManager"

// HookTimeout bounds how long a single hook may block the shutdown sequence.
var HookTimeout = 10 * time.Second

type hook struct {
	name string
	fn   func()
}

// Manager cancels the run context on SIGINT/SIGTERM and runs registered hooks
// in reverse order of registration.
type Manager struct {
	hooks  []hook
	logger logger.Logger
	mu     sync.Mutex
	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	sigs   chan os.Signal
}

func NewManager(parent context.Context, log logger.Logger) *Manager {
	if log == nil {
		log = logger.Nop()
	}
	ctx, cancel := context.WithCancel(parent)

	return &Manager{
		logger: log,
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Register adds a hook run during Shutdown, e.g. discarding staged output.
func (m *Manager) Register(name string, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.hooks = append(m.hooks, hook{name: name, fn: fn})
}

func (m *Manager) Listen() {
	m.sigs = make(chan os.Signal, 1)
	signal.Notify(m.sigs, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-m.sigs:
			m.logger.Warning(component, "shutdown signal received", map[string]interface{}{
				"signal": sig.String(),
			})
			m.Shutdown()
		case <-m.done:
		}
	}()
}

func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	select {
	case <-m.done:
		return
	default:
		close(m.done)
	}
	if m.sigs != nil {
		signal.Stop(m.sigs)
	}

	m.cancel()

	for i := len(m.hooks) - 1; i >= 0; i-- {
		h := m.hooks[i]

		finished := make(chan struct{})
		go func() {
			defer close(finished)
			h.fn()
		}()

		select {
		case <-finished:
		case <-time.After(HookTimeout):
			m.logger.Warning(component, "shutdown hook timeout", map[string]interface{}{
				"hook": h.name,
			})
		}
	}

	m.logger.Debug(component, "shutdown sequence completed", map[string]interface{}{
		"hooks": len(m.hooks),
	})
}

// Context is cancelled by a signal or by Shutdown.
func (m *Manager) Context() context.Context {
	return m.ctx
}

func (m *Manager) Done() <-chan struct{} {
	return m.done
}
