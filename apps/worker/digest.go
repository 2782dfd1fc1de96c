package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/parokia/core"
	"github.com/trezcool/parokia/core/access"
	"github.com/trezcool/parokia/core/clock"
	"github.com/trezcool/parokia/core/digest"
	"github.com/trezcool/parokia/core/parish"
	"github.com/trezcool/parokia/core/week"
)

// digestJob drafts the weekly digest of every parish, and publishes and sends it
// when auto-publishing is on.
type digestJob struct {
	conf     *core.Config
	logger   core.Logger
	parishes *parish.Service
	weeks    *week.Service
	digests  *digest.Service
}

// run walks the parishes one after the other. A failing parish is logged and
// does not stop the others; the returned count is the number of failures.
func (job *digestJob) run(ctx context.Context) int {
	parishes, err := job.parishes.QueryAll(ctx)
	if err != nil {
		job.logger.Error("querying parishes", err)
		return 1
	}

	var failed int
	for _, p := range parishes {
		if ctx.Err() != nil {
			job.logger.Info("digest run interrupted")
			return failed
		}
		if err = job.runParish(ctx, p); err != nil {
			failed++
			job.logger.Error(fmt.Sprintf("digest of %s failed", p.Slug), err)
		}
	}
	return failed
}

func (job *digestJob) runParish(ctx context.Context, p parish.Parish) error {
	// the worker acts for the platform, not for a member
	system := access.Viewer{ParishID: p.ID, IsSuperAdmin: true}

	wk, err := job.weeks.GetForSelection(ctx, p.ID, week.Selection(job.conf.Digest.Selection), clock.Now())
	if err != nil {
		return errors.Wrap(err, "provisioning week")
	}
	d, err := job.digests.Generate(ctx, p.ID, wk.ID, system)
	if core.IsInvalidTransition(err) {
		job.logger.Info(fmt.Sprintf("digest of %s for %s already published", p.Slug, wk.Label))
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "generating digest")
	}
	job.logger.Info(fmt.Sprintf("digest of %s for %s drafted", p.Slug, wk.Label))

	if !job.conf.Digest.AutoPublish {
		return nil
	}
	if d, err = job.digests.Publish(ctx, p.ID, d.ID, system); err != nil {
		return errors.Wrap(err, "publishing digest")
	}
	emails, err := job.parishes.MemberEmails(ctx, p.ID)
	if err != nil {
		return errors.Wrap(err, "querying member emails")
	}
	if len(emails) == 0 {
		return nil
	}
	return errors.Wrap(job.digests.Send(ctx, d, emails), "sending digest")
}
