package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/cozy-creator/brandgen/internal/result"
	"github.com/cozy-creator/brandgen/internal/store"
	"github.com/cozy-creator/brandgen/internal/types"
)

type JobIDInput struct {
	JobID string `json:"job_id" validate:"required" jsonschema:"description=Job ID"`
}

type JobOutput struct {
	Job *types.Job `json:"job"`
}

type JobListInput struct {
	Limit        int              `json:"limit,omitempty" validate:"min=1,max=100" jsonschema:"description=Maximum number of jobs to return,minimum=1,maximum=100,default=20"`
	StatusFilter *types.JobStatus `json:"status_filter,omitempty" validate:"omitempty,oneof=queued processing complete failed cancelled" jsonschema:"description=Only list jobs in this status,enum=queued,enum=processing,enum=complete,enum=failed,enum=cancelled"`
}

type JobListOutput struct {
	Jobs  []*types.Job `json:"jobs"`
	Total int          `json:"total"`
}

func (s *Service) registerJob(r *Registry) {
	register(r, "job.status", "Get the current status of a generation job",
		func() JobIDInput { return JobIDInput{} }, s.JobStatus)
	register(r, "job.cancel", "Cancel a queued or in-progress job",
		func() JobIDInput { return JobIDInput{} }, s.CancelJob)
	register(r, "job.list", "List recent generation jobs",
		func() JobListInput { return JobListInput{Limit: 20} }, s.ListJobs)
}

func jobNotFound(id string) *result.Result {
	return result.Fail(result.CodeJobNotFound, fmt.Sprintf("Job '%s' not found", id), "")
}

func (s *Service) JobStatus(ctx context.Context, in *JobIDInput) *result.Result {
	job, err := s.jobs.Get(in.JobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return jobNotFound(in.JobID)
		}
		return s.storageFault(ctx, "job.get", err)
	}

	return result.Success(JobOutput{Job: job}, result.WithReasoning("%s", jobReasoning(job)))
}

func jobReasoning(job *types.Job) string {
	switch job.Status {
	case types.JobStatusQueued:
		return "Job is queued, waiting to start"
	case types.JobStatusProcessing:
		return fmt.Sprintf("Job is processing (%.0f%% complete)", job.Progress)
	case types.JobStatusComplete:
		return fmt.Sprintf("Job complete with %d images", len(job.Images))
	case types.JobStatusFailed:
		msg := "Unknown error"
		if job.ErrorMessage != nil && *job.ErrorMessage != "" {
			msg = *job.ErrorMessage
		}
		return "Job failed: " + msg
	case types.JobStatusCancelled:
		return "Job was cancelled"
	}
	return fmt.Sprintf("Job status: %s", job.Status)
}

func (s *Service) CancelJob(ctx context.Context, in *JobIDInput) *result.Result {
	job, err := s.jobs.Cancel(in.JobID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return jobNotFound(in.JobID)
		case errors.Is(err, store.ErrInvalidTransition):
			switch job.Status {
			case types.JobStatusComplete:
				return result.FromTemplate(result.CodeJobAlreadyDone)
			case types.JobStatusCancelled:
				return result.FromTemplate(result.CodeJobAlreadyCancel)
			default:
				return result.FromTemplate(result.CodeJobAlreadyFailed)
			}
		}
		return s.storageFault(ctx, "job.cancel", err)
	}

	return result.Success(JobOutput{Job: job},
		result.WithReasoning("Job cancelled (was %.0f%% complete)", job.Progress))
}

func (s *Service) ListJobs(ctx context.Context, in *JobListInput) *result.Result {
	jobs := s.jobs.List(in.StatusFilter)
	total := len(jobs)
	if total > in.Limit {
		jobs = jobs[:in.Limit]
	}

	reasoning := fmt.Sprintf("Found %d jobs", total)
	if in.StatusFilter != nil {
		reasoning = fmt.Sprintf("Found %d %s jobs", total, *in.StatusFilter)
	}
	if total > in.Limit {
		reasoning += fmt.Sprintf(" (showing first %d)", in.Limit)
	}

	return result.Success(JobListOutput{Jobs: jobs, Total: total}, result.WithReasoning("%s", reasoning))
}
