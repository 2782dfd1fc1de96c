package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/parokia/core/clock"
	"github.com/trezcool/parokia/core/week"
)

// ensureWeeks provisions the current and the next week of every parish.
func (cli *commandLine) ensureWeeks() error {
	ctx := context.Background()
	parishes, err := cli.parishes.QueryAll(ctx)
	if err != nil {
		return errors.Wrap(err, "querying parishes")
	}

	now := clock.Now()
	for _, p := range parishes {
		next, err := cli.weeks.GetForSelection(ctx, p.ID, week.SelectNext, now)
		if err != nil {
			return errors.Wrapf(err, "provisioning weeks of %s", p.Slug)
		}
		cli.printf("%s: weeks ready up to %s\n", p.Slug, next.Label)
	}
	return nil
}
