package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/robfig/cron/v3"

	dig_container "github.com/trezcool/parokia/apps/api/di/dig"
	"github.com/trezcool/parokia/core"
	"github.com/trezcool/parokia/core/digest"
	"github.com/trezcool/parokia/core/parish"
	"github.com/trezcool/parokia/core/week"
)

func main() {
	c := dig_container.New()

	must(c.Invoke(func(
		conf *core.Config,
		logger core.Logger,
		db *sqlx.DB,
		parishes *parish.Service,
		weeks *week.Service,
		digests *digest.Service,
	) {
		defer func() { _ = db.Close() }()

		job := &digestJob{conf: conf, logger: logger, parishes: parishes, weeks: weeks, digests: digests}
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sched := cron.New(cron.WithLocation(conf.Parish.Location))
		if _, err := sched.AddFunc(conf.Digest.Schedule, func() {
			if failed := job.run(ctx); failed > 0 {
				logger.Warn(fmt.Sprintf("digest run finished with %d failures", failed))
			}
		}); err != nil {
			logger.Error(fmt.Sprintf("invalid digest schedule %q", conf.Digest.Schedule), err)
			return
		}

		logger.Info(fmt.Sprintf("digest worker started : schedule %q, version %q", conf.Digest.Schedule, conf.Build))
		sched.Start()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		sig := <-shutdown
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// let a running job finish within the shutdown timeout
		cancel()
		stopCtx, stopCancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer stopCancel()
		select {
		case <-sched.Stop().Done():
		case <-stopCtx.Done():
			logger.Warn("digest run did not stop in time")
		}
		logger.Info("digest worker stopped")
	}))
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
