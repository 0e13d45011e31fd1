package syncexec

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicolagi/bajoo-sync/internal/syncerr"
)

func TestSubmitResolvesWithValue(t *testing.T) {
	e := New(2, 4)
	defer e.Stop()

	got, err := e.Submit(context.Background(), func(ctx context.Context) (interface{}, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestSubmitResolvesWithError(t *testing.T) {
	e := New(2, 4)
	defer e.Stop()

	boom := errors.New("boom")
	_, err := e.Submit(context.Background(), func(ctx context.Context) (interface{}, error) {
		return nil, boom
	})
	assert.Equal(t, boom, err)
}

func TestEachSubmissionResolvesExactlyOnce(t *testing.T) {
	e := New(4, 64)
	defer e.Stop()

	const n = 50
	var wg sync.WaitGroup
	results := make([]int, n)
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := e.Submit(context.Background(), func(ctx context.Context) (interface{}, error) {
				return i, nil
			})
			require.NoError(t, err)
			results[i] = got.(int)
		}()
	}
	wg.Wait()

	for i, v := range results {
		assert.Equal(t, i, v)
	}
}

func TestSubmitAfterStopReturnsServiceStopping(t *testing.T) {
	e := New(1, 1)
	e.Stop()

	_, err := e.Submit(context.Background(), func(ctx context.Context) (interface{}, error) {
		return nil, nil
	})
	assert.Equal(t, syncerr.ErrServiceStopping, err)
}

func TestSubmitHonoursCallerContextCancellation(t *testing.T) {
	e := New(1, 1)
	defer e.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	blocked := make(chan struct{})

	go func() {
		_, _ = e.Submit(context.Background(), func(ctx context.Context) (interface{}, error) {
			close(started)
			<-blocked
			return nil, nil
		})
	}()
	<-started // the single worker is now occupied

	errc := make(chan error, 1)
	go func() {
		_, err := e.Submit(ctx, func(ctx context.Context) (interface{}, error) {
			return nil, nil
		})
		errc <- err
	}()

	cancel()
	var err error
	select {
	case err = <-errc:
	case <-time.After(time.Second):
		t.Fatal("Submit did not return after context cancellation")
	}
	close(blocked)
	assert.Equal(t, context.Canceled, err)
}

func TestStopIsIdempotent(t *testing.T) {
	e := New(1, 1)
	e.Stop()
	done := make(chan struct{})
	go func() {
		e.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second Stop call did not return")
	}
}
