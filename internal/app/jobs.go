package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/lifeledger/internal/jobs"
)

// JobRouter maps each job type to the App operation it runs. Jobs for an
// unconfigured integration fail without retries.
func (a *App) JobRouter() jobs.Router {
	return jobs.Router{
		jobs.JobTypeExportWarehouse: func(ctx context.Context, job *jobs.Job) error {
			exportID, err := a.ExportUser(ctx, job.UserID)
			if err != nil {
				return retryable(err)
			}
			job.Result = "export " + exportID
			return nil
		},
		jobs.JobTypeBackupSnapshot: func(ctx context.Context, job *jobs.Job) error {
			uri, err := a.Backups.Backup(ctx, job.UserID)
			if err != nil {
				return retryable(err)
			}
			job.Result = uri
			return nil
		},
		jobs.JobTypeSyncNotion: func(ctx context.Context, job *jobs.Job) error {
			res, err := a.SyncNotion(ctx, job.UserID, false)
			if err != nil {
				return retryable(err)
			}
			job.Result = fmt.Sprintf("created %d, updated %d, archived %d, skipped %d, failed %d",
				res.Created, res.Updated, res.Archived, res.Skipped, res.Failed)
			return nil
		},
	}
}

func retryable(err error) error {
	if errors.Is(err, ErrDisabled) {
		return jobs.Permanent(err)
	}
	return err
}
