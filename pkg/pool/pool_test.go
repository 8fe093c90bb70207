package pool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolRunsSubmittedTasks(t *testing.T) {
	p, err := New("test", &Config{Capacity: 4})
	require.NoError(t, err)
	defer p.Release()

	var count atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		err := p.Submit(func() {
			defer wg.Done()
			count.Add(1)
		})
		require.NoError(t, err)
	}
	wg.Wait()

	assert.Equal(t, int32(20), count.Load())
}

func TestPoolBoundsConcurrency(t *testing.T) {
	p, err := New("test", &Config{Capacity: 2})
	require.NoError(t, err)
	defer p.Release()

	release := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		err := p.Submit(func() {
			defer wg.Done()
			<-release
		})
		require.NoError(t, err)
	}

	assert.Eventually(t, func() bool { return p.Running() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, p.Cap())

	close(release)
	wg.Wait()
}

func TestPoolNonblockingOverload(t *testing.T) {
	p, err := New("test", &Config{Capacity: 1, Nonblocking: true})
	require.NoError(t, err)
	defer p.Release()

	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	require.NoError(t, p.Submit(func() {
		defer wg.Done()
		<-release
	}))

	require.Eventually(t, func() bool { return p.Running() == 1 }, time.Second, 5*time.Millisecond)

	err = p.Submit(func() {})
	assert.ErrorIs(t, err, ErrPoolOverload)

	close(release)
	wg.Wait()
}

func TestPoolSubmitAfterRelease(t *testing.T) {
	p, err := New("test", &Config{Capacity: 1})
	require.NoError(t, err)

	p.Release()
	p.Release()

	err = p.Submit(func() {})
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestPoolRecoversTaskPanic(t *testing.T) {
	var recovered atomic.Value
	done := make(chan struct{})
	p, err := New("test", &Config{
		Capacity: 1,
		PanicHandler: func(r interface{}) {
			recovered.Store(r)
			close(done)
		},
	})
	require.NoError(t, err)
	defer p.Release()

	require.NoError(t, p.Submit(func() { panic("boom") }))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("panic handler was not invoked")
	}
	assert.Equal(t, "boom", recovered.Load())

	// The pool keeps accepting work after a panic.
	var ran atomic.Bool
	var wg sync.WaitGroup
	wg.Add(1)
	require.NoError(t, p.Submit(func() {
		defer wg.Done()
		ran.Store(true)
	}))
	wg.Wait()
	assert.True(t, ran.Load())
}

func TestPoolDefaultConfig(t *testing.T) {
	p, err := New("test", nil)
	require.NoError(t, err)
	defer p.Release()

	assert.Greater(t, p.Cap(), 0)
}
