package main

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestRetryDelayFromError(t *testing.T) {
	assert.Zero(t, retryDelayFromError(nil))
	assert.Equal(t, 7*time.Second, retryDelayFromError(errors.New("Too Many Requests: retry after 7")))
	assert.Equal(t, 3*time.Second, retryDelayFromError(errors.New("too many requests")))
	assert.Equal(t, 2*time.Second, retryDelayFromError(timeoutErr{}))
	assert.Equal(t, time.Second, retryDelayFromError(errors.New("bad gateway")))
}

func TestShortHash(t *testing.T) {
	a := shortHash("123:abc")
	assert.Len(t, a, 16)
	assert.Equal(t, a, shortHash("123:abc"))
	assert.NotEqual(t, a, shortHash("123:abd"))
}

type fakeUpdates struct {
	calls   int
	offsets []int
	cancel  context.CancelFunc
}

func (f *fakeUpdates) GetUpdates(c tgbotapi.UpdateConfig) ([]tgbotapi.Update, error) {
	f.calls++
	f.offsets = append(f.offsets, c.Offset)
	switch f.calls {
	case 1:
		return []tgbotapi.Update{{UpdateID: 10}, {UpdateID: 11}}, nil
	case 2:
		return nil, errors.New("connection reset")
	default:
		f.cancel()
		return nil, nil
	}
}

func TestRunPollingAdvancesOffset(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := &fakeUpdates{cancel: cancel}

	var seen []int
	runPolling(ctx, f, func(u tgbotapi.Update) { seen = append(seen, u.UpdateID) })

	assert.Equal(t, []int{10, 11}, seen)
	assert.Equal(t, []int{0, 12, 12}, f.offsets)
}

func TestPoolRunsUpdatesConcurrently(t *testing.T) {
	var started sync.WaitGroup
	started.Add(2)
	release := make(chan struct{})
	dispatch, wait := pool(2, func(tgbotapi.Update) {
		started.Done()
		<-release
	})
	dispatch(tgbotapi.Update{UpdateID: 1})
	dispatch(tgbotapi.Update{UpdateID: 2})

	both := make(chan struct{})
	go func() {
		started.Wait()
		close(both)
	}()
	select {
	case <-both:
	case <-time.After(2 * time.Second):
		t.Fatal("second update waited for the first")
	}
	close(release)
	wait()
}

func TestPoolRespectsLimit(t *testing.T) {
	var inFlight, peak, done atomic.Int32
	dispatch, wait := pool(2, func(tgbotapi.Update) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		done.Add(1)
	})
	for i := 0; i < 6; i++ {
		dispatch(tgbotapi.Update{UpdateID: i})
	}
	wait()

	assert.Equal(t, int32(6), done.Load())
	assert.LessOrEqual(t, peak.Load(), int32(2))
}
