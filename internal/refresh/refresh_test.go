package refresh_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nikbrunner/marks/internal/refresh"
	"gotest.tools/v3/assert"
)

type fakeHasher struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeHasher) Hash(path string) (string, time.Time, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if path == "missing" {
		return "", time.Time{}, errors.New("no such file")
	}
	return "hash-" + path, time.Unix(100, 0), nil
}

func TestHashAll_KeepsOrderAndReportsFailures(t *testing.T) {
	jobs := []refresh.Job{
		{ID: "a", Path: "p1"},
		{ID: "b", Path: "missing"},
		{ID: "c", Path: "p3"},
	}
	var progress []int
	var mu sync.Mutex

	results := refresh.HashAll(context.Background(), jobs, &fakeHasher{}, 2, func(completed, total int) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, total, 3)
		progress = append(progress, completed)
	})

	assert.Equal(t, len(results), 3)
	assert.Equal(t, results[0].ID, "a")
	assert.Equal(t, results[0].Hash, "hash-p1")
	assert.ErrorContains(t, results[1].Err, "no such file")
	assert.Equal(t, results[2].Hash, "hash-p3")
	assert.DeepEqual(t, progress, []int{1, 2, 3})
}

func TestHashAll_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h := &fakeHasher{}

	results := refresh.HashAll(ctx, []refresh.Job{{ID: "a", Path: "p"}}, h, 4, nil)

	assert.Assert(t, errors.Is(results[0].Err, context.Canceled))
	assert.Equal(t, h.calls, 0)
}

func TestHashAll_Empty(t *testing.T) {
	assert.Assert(t, refresh.HashAll(context.Background(), nil, &fakeHasher{}, 4, nil) == nil)
}
