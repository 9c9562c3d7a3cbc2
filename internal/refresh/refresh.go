// Package refresh rehashes bookmark assets on a bounded worker pool.
package refresh

import (
	"context"
	"sync"
	"time"
)

// Hasher reads an asset and returns its hash and modification time.
type Hasher interface {
	Hash(path string) (string, time.Time, error)
}

// Job names one bookmark asset to rehash.
type Job struct {
	ID   string
	Path string
}

// Result holds the outcome for a single job.
type Result struct {
	ID      string
	Hash    string
	ModTime time.Time
	Err     error
}

// ProgressFunc is called after each asset is hashed.
// completed is the number of jobs done so far, total is the total count.
type ProgressFunc func(completed, total int)

// HashAll hashes every job concurrently and returns results in job order.
// Failures are reported per job. Jobs not started before ctx is done fail
// with the context error.
func HashAll(ctx context.Context, jobs []Job, hasher Hasher, concurrency int, onProgress ProgressFunc) []Result {
	if len(jobs) == 0 {
		return nil
	}
	if concurrency < 1 {
		concurrency = 1
	}

	results := make([]Result, len(jobs))
	queue := make(chan int, len(jobs))
	var wg sync.WaitGroup

	// Progress tracking
	var progressMu sync.Mutex
	completed := 0

	for w := 0; w < min(concurrency, len(jobs)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range queue {
				results[idx] = hashOne(ctx, jobs[idx], hasher)

				if onProgress != nil {
					progressMu.Lock()
					completed++
					onProgress(completed, len(jobs))
					progressMu.Unlock()
				}
			}
		}()
	}

	for i := range jobs {
		queue <- i
	}
	close(queue)

	wg.Wait()
	return results
}

func hashOne(ctx context.Context, job Job, hasher Hasher) Result {
	result := Result{ID: job.ID}
	if err := ctx.Err(); err != nil {
		result.Err = err
		return result
	}
	result.Hash, result.ModTime, result.Err = hasher.Hash(job.Path)
	return result
}
