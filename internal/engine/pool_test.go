package engine

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynthesizeAsync(t *testing.T) {
	e := newTestEngine(t, testConfig(), &fakeRunner{})

	h, err := e.SynthesizeAsync(NewRequest("こんにちは", "jf_alpha"))
	require.NoError(t, err)

	result := h.Wait()
	assert.Equal(t, StatusOK, result.Status)
	assert.True(t, result.HasAudio())
	assert.True(t, e.IsComplete(h.ID()))
}

func TestSubmitCallback(t *testing.T) {
	e := newTestEngine(t, testConfig(), &fakeRunner{})

	got := make(chan Result, 1)
	id, err := e.Submit(NewRequest("こんにちは", "jf_alpha"), func(r Result) {
		got <- r
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	select {
	case r := <-got:
		assert.Equal(t, StatusOK, r.Status)
	case <-time.After(5 * time.Second):
		t.Fatal("callback never fired")
	}
}

func TestCancelQueuedRequests(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConcurrentRequests = 1
	runner := &fakeRunner{delay: 2 * time.Millisecond}
	e := newTestEngine(t, cfg, runner)

	const total = 100
	handles := make([]*Handle, total)
	for i := 0; i < total; i++ {
		req := NewRequest(fmt.Sprintf("こんにちは%d", i), "jf_alpha")
		req.UseCache = false
		h, err := e.SynthesizeAsync(req)
		require.NoError(t, err)
		handles[i] = h
	}
	for i := 50; i < total; i++ {
		require.NoError(t, e.Cancel(handles[i].ID()))
	}

	for i := 0; i < 50; i++ {
		result := handles[i].Wait()
		assert.Equal(t, StatusOK, result.Status, "request %d", i)
	}
	for i := 50; i < total; i++ {
		result := handles[i].Wait()
		assert.Equal(t, StatusCancelled, result.Status, "request %d", i)
		assert.Empty(t, result.Audio.Samples)
	}
	assert.LessOrEqual(t, runner.runs.Load(), int64(50))
}

func TestCancelUnknownID(t *testing.T) {
	e := newTestEngine(t, testConfig(), &fakeRunner{})
	assert.ErrorIs(t, e.Cancel("nope"), ErrUnknownRequest)
	assert.True(t, e.IsComplete("nope"))
}

func TestCancelAfterCompletionIsNoOp(t *testing.T) {
	e := newTestEngine(t, testConfig(), &fakeRunner{})
	h, err := e.SynthesizeAsync(NewRequest("こんにちは", "jf_alpha"))
	require.NoError(t, err)
	h.Wait()

	// The task is forgotten once done; cancelling is unknown-id.
	assert.ErrorIs(t, e.Cancel(h.ID()), ErrUnknownRequest)
}

func TestShutdownCancelsQueued(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConcurrentRequests = 1
	runner := &fakeRunner{delay: 10 * time.Millisecond}
	e := newTestEngine(t, cfg, runner)

	handles := make([]*Handle, 20)
	for i := range handles {
		req := NewRequest(fmt.Sprintf("テキスト%d", i), "jf_alpha")
		req.UseCache = false
		h, err := e.SynthesizeAsync(req)
		require.NoError(t, err)
		handles[i] = h
	}

	e.Shutdown()

	cancelled := 0
	for _, h := range handles {
		result := h.Wait()
		if result.Status == StatusCancelled {
			cancelled++
		} else {
			assert.Equal(t, StatusOK, result.Status)
		}
	}
	assert.Greater(t, cancelled, 0)

	_, err := e.SynthesizeAsync(NewRequest("あと", "jf_alpha"))
	assert.Error(t, err)
}

func TestQueueDepthObservable(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConcurrentRequests = 1
	runner := &fakeRunner{delay: 20 * time.Millisecond}
	e := newTestEngine(t, cfg, runner)

	for i := 0; i < 5; i++ {
		req := NewRequest(fmt.Sprintf("キュー%d", i), "jf_alpha")
		req.UseCache = false
		_, err := e.SynthesizeAsync(req)
		require.NoError(t, err)
	}
	// With one worker busy, the rest sit in the queue.
	assert.GreaterOrEqual(t, e.QueueDepth()+e.ActiveCount(), 1)
}
