// Package visitrecorder moves visit recording off the redirect path.
// Redirect handlers enqueue jobs; a single consumer goroutine drains the
// queue into the store, which also serializes all visit mutations through
// one writer.
package visitrecorder

import (
	"context"
	"time"

	"github.com/ArcaneCipher/tinyapp/internal/logger"
)

type visitKeeper interface {
	RecordVisit(id, visitorID string, now time.Time) error
}

// Job is one redirect event waiting to be recorded.
type Job struct {
	ShortID   string
	VisitorID string
	VisitedAt time.Time
}

// VisitRecorder buffers visit jobs and applies them in batches.
type VisitRecorder struct {
	queue                    chan *Job
	store                    visitKeeper
	delayBetweenQueueFetches time.Duration
	errorChannel             chan error
}

func New(
	store visitKeeper,
	channelCapacity int,
	delayBetweenQueueFetches time.Duration,
) *VisitRecorder {
	return &VisitRecorder{
		store:                    store,
		queue:                    make(chan *Job, channelCapacity),
		delayBetweenQueueFetches: delayBetweenQueueFetches,
		errorChannel:             make(chan error, channelCapacity),
	}
}

// EnqueueJob queues one visit for recording. It never blocks the caller
// for longer than the queue has capacity.
func (r *VisitRecorder) EnqueueJob(job *Job) {
	r.queue <- job
}

// ListenErrors forwards recording errors to the callback on a separate
// goroutine.
func (r *VisitRecorder) ListenErrors(callback func(error)) {
	go func() {
		for err := range r.errorChannel {
			callback(err)
		}
	}()
}

// Run starts the consumer goroutine. It drains accumulated jobs on every
// tick and once more on shutdown before returning.
func (r *VisitRecorder) Run(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(r.delayBetweenQueueFetches)
		defer ticker.Stop()

		var jobs []*Job

		for {
			select {
			case job := <-r.queue:
				jobs = append(jobs, job)
			case <-ticker.C:
				jobs = r.flush(jobs)
			case <-ctx.Done():
				for {
					select {
					case job := <-r.queue:
						jobs = append(jobs, job)
					default:
						r.flush(jobs)
						return
					}
				}
			}
		}
	}()
}

func (r *VisitRecorder) flush(jobs []*Job) []*Job {
	if len(jobs) == 0 {
		return jobs
	}

	recorded := 0
	for _, job := range jobs {
		if err := r.store.RecordVisit(job.ShortID, job.VisitorID, job.VisitedAt); err != nil {
			r.errorChannel <- err
			continue
		}
		recorded++
	}

	if recorded > 0 {
		logger.Log.Infof("recorded %d visits", recorded)
	}

	return nil
}
