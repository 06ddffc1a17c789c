package pipeline

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Job is one report to process for one user.
type Job struct {
	ReportID string `json:"reportId"`
	UserID   string `json:"userId"`
}

// JobResult is the outcome of one Job. Err is per job; one failed report
// does not stop the batch.
type JobResult struct {
	Job
	Summary ApplySummary
	Err     error
}

// Batch processes jobs with at most workers in flight and returns results
// in job order. onDone, if set, is called once per finished job and never
// concurrently.
func (s *Service) Batch(ctx context.Context, jobs []Job, workers int, onDone func(JobResult)) []JobResult {
	if workers < 1 {
		workers = 1
	}
	results := make([]JobResult, len(jobs))

	var (
		g  errgroup.Group
		mu sync.Mutex
	)
	g.SetLimit(workers)
	for i, job := range jobs {
		g.Go(func() error {
			r := JobResult{Job: job}
			if err := ctx.Err(); err != nil {
				r.Err = err
			} else {
				r.Summary, r.Err = s.ProcessReport(ctx, job.ReportID, job.UserID)
			}
			if r.Err != nil {
				s.logger.Error("report failed", "report_id", job.ReportID, "user_id", job.UserID, "error", r.Err)
			}
			results[i] = r
			if onDone != nil {
				mu.Lock()
				onDone(r)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
