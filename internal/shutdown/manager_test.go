package shutdown

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdown_CancelsAndRunsHooksInReverse(t *testing.T) {
	m := NewManager(context.Background(), nil)

	var order []string
	m.Register("first", func() { order = append(order, "first") })
	m.Register("second", func() { order = append(order, "second") })

	m.Shutdown()
	m.Shutdown()

	assert.Equal(t, []string{"second", "first"}, order)
	require.ErrorIs(t, m.Context().Err(), context.Canceled)

	select {
	case <-m.Done():
	default:
		t.Fatal("done channel not closed")
	}
}

func TestShutdown_HookTimeout(t *testing.T) {
	old := HookTimeout
	HookTimeout = 10 * time.Millisecond
	defer func() { HookTimeout = old }()

	m := NewManager(context.Background(), nil)
	block := make(chan struct{})
	defer close(block)
	m.Register("stuck", func() { <-block })

	start := time.Now()
	m.Shutdown()
	assert.Less(t, time.Since(start), time.Second)
}

func TestParentCancellationPropagates(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	m := NewManager(parent, nil)
	cancel()
	assert.ErrorIs(t, m.Context().Err(), context.Canceled)
}
