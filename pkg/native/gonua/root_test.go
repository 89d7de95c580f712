package gonua

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/arzzra/sofia_sip/pkg/native"
)

func newTestRoot(t *testing.T) (*Engine, native.Root) {
	t.Helper()
	e := New()
	require.NoError(t, e.Init())
	r, err := e.RootCreate(0)
	require.NoError(t, err)
	require.NotZero(t, r)
	t.Cleanup(func() { e.RootDestroy(r) })
	return e, r
}

func TestFreshRootStepNegative(t *testing.T) {
	e, r := newTestRoot(t)

	n, err := e.RootStep(r, 1)
	require.NoError(t, err)
	assert.Negative(t, n)
}

func TestRootCreateRequiresInit(t *testing.T) {
	e := New()
	r, err := e.RootCreate(0)
	assert.Zero(t, r)
	assert.ErrorIs(t, err, unix.EINVAL)
}

func TestStepOnDestroyedRoot(t *testing.T) {
	e, r := newTestRoot(t)
	e.RootDestroy(r)
	e.RootDestroy(r)

	n, err := e.RootStep(r, 1)
	assert.Equal(t, int64(-1), n)
	assert.ErrorIs(t, err, unix.EBADF)
}

func TestQueueRunsOnNextStep(t *testing.T) {
	e, r := newTestRoot(t)
	rt := e.root(r)

	var order []int
	rt.schedule(func() {
		order = append(order, 1)
		rt.schedule(func() { order = append(order, 2) })
	})

	n, _ := e.RootStep(r, 0)
	assert.Equal(t, []int{1}, order)
	assert.Equal(t, int64(0), n, "есть отложенная работа")

	n, _ = e.RootStep(r, 0)
	assert.Equal(t, []int{1, 2}, order)
	assert.Negative(t, n)
}

func TestTimerFires(t *testing.T) {
	e, r := newTestRoot(t)
	rt := e.root(r)

	fired := false
	rt.addTimer(20*time.Millisecond, func() { fired = true })

	n, _ := e.RootStep(r, 0)
	assert.False(t, fired)
	assert.GreaterOrEqual(t, n, int64(0))

	deadline := time.Now().Add(time.Second)
	for !fired && time.Now().Before(deadline) {
		e.RootStep(r, 100)
	}
	assert.True(t, fired)

	n, _ = e.RootStep(r, 0)
	assert.Negative(t, n)
}

func TestCanceledTimerDoesNotFire(t *testing.T) {
	e, r := newTestRoot(t)
	rt := e.root(r)

	fired := false
	tm := rt.addTimer(time.Millisecond, func() { fired = true })
	rt.cancelTimer(tm)

	time.Sleep(5 * time.Millisecond)
	n, _ := e.RootStep(r, 10)
	assert.False(t, fired)
	assert.Negative(t, n)
}

func TestInboxWakesStep(t *testing.T) {
	e, r := newTestRoot(t)
	rt := e.root(r)

	got := make(chan struct{})
	go rt.post(func() { close(got) })

	start := time.Now()
	for time.Since(start) < time.Second {
		e.RootStep(r, 500)
		select {
		case <-got:
			return
		default:
		}
	}
	t.Fatal("работа из горутины не выполнена")
}

func TestRunBreak(t *testing.T) {
	e, r := newTestRoot(t)
	rt := e.root(r)

	steps := 0
	var tick func()
	tick = func() {
		steps++
		if steps == 3 {
			e.RootBreak(r)
			return
		}
		rt.schedule(tick)
	}
	rt.schedule(tick)

	e.RootRun(r)
	assert.Equal(t, 3, steps)
}

func TestSleepReturnsAfterTimeout(t *testing.T) {
	e, r := newTestRoot(t)

	start := time.Now()
	e.RootSleep(r, 30)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestPostAfterDestroyIsDropped(t *testing.T) {
	e, r := newTestRoot(t)
	rt := e.root(r)
	e.RootDestroy(r)

	assert.False(t, rt.post(func() {}))
}
