package dig_container

import (
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/parokia/apps/api/echo"
	"github.com/trezcool/parokia/core"
	"github.com/trezcool/parokia/core/announcement"
	"github.com/trezcool/parokia/core/clock"
	"github.com/trezcool/parokia/core/digest"
	"github.com/trezcool/parokia/core/event"
	"github.com/trezcool/parokia/core/parish"
	"github.com/trezcool/parokia/core/request"
	"github.com/trezcool/parokia/core/task"
	"github.com/trezcool/parokia/core/user"
	"github.com/trezcool/parokia/core/week"
	emailsvc "github.com/trezcool/parokia/services/email"
	logsvc "github.com/trezcool/parokia/services/logger"
	"github.com/trezcool/parokia/services/metrics"
	"github.com/trezcool/parokia/storage/database"
	sqlxrepos "github.com/trezcool/parokia/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) (*sqlx.DB, error) {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db.DB, "up"); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Error(fmt.Sprintf("setting up database: %v", err), err)
		return nil, err
	}
	return db, nil
}

func newExecutor(db *sqlx.DB) core.DBExecutor { return db }

func newMetrics() core.Metrics { return metrics.Domain{} }

func newValidator() (*validator.Validate, ut.Translator) {
	validate, translator := core.NewValidator()
	user.RegisterValidators(validate, translator)
	return validate, translator
}

// the services depend on each other through small interfaces
func asUserDirectory(svc *user.Service) parish.UserDirectory { return svc }
func asLocator(svc *parish.Service) week.Locator { return svc }
func asWeekChecker(svc *week.Service) task.WeekChecker { return svc }

func newDigestSources(
	weeks *week.Service,
	tasks *task.Service,
	events *event.Service,
	anns *announcement.Service,
	parishes *parish.Service,
) digest.Sources {
	return digest.Sources{
		Weeks:         weeks,
		Tasks:         tasks,
		Events:        events,
		Announcements: anns,
		Parishes:      parishes,
	}
}

type serverParams struct {
	dig.In

	Conf            *core.Config
	Logger          core.Logger
	Validate        *validator.Validate
	Translator      ut.Translator
	UserSvc         *user.Service
	ParishSvc       *parish.Service
	WeekSvc         *week.Service
	TaskSvc         *task.Service
	EventSvc        *event.Service
	AnnouncementSvc *announcement.Service
	RequestSvc      *request.Service
	DigestSvc       *digest.Service
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:            p.Conf,
		Logger:          p.Logger,
		Validate:        p.Validate,
		Translator:      p.Translator,
		UserSvc:         p.UserSvc,
		ParishSvc:       p.ParishSvc,
		WeekSvc:         p.WeekSvc,
		TaskSvc:         p.TaskSvc,
		EventSvc:        p.EventSvc,
		AnnouncementSvc: p.AnnouncementSvc,
		RequestSvc:      p.RequestSvc,
		DigestSvc:       p.DigestSvc,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newExecutor))
	must(c.Provide(database.NewTxRunner, dig.As(new(core.TxRunner))))
	must(c.Provide(emailsvc.NewService))
	must(c.Provide(newMetrics))
	must(c.Provide(newValidator))
	must(c.Provide(clock.NewResolver))

	// repositories
	must(c.Provide(sqlxrepos.NewUserRepository, dig.As(new(user.Repository))))
	must(c.Provide(sqlxrepos.NewParishRepository, dig.As(new(parish.Repository))))
	must(c.Provide(sqlxrepos.NewWeekRepository, dig.As(new(week.Repository))))
	must(c.Provide(sqlxrepos.NewTaskRepository, dig.As(new(task.Repository))))
	must(c.Provide(sqlxrepos.NewEventRepository, dig.As(new(event.Repository))))
	must(c.Provide(sqlxrepos.NewAnnouncementRepository, dig.As(new(announcement.Repository))))
	must(c.Provide(sqlxrepos.NewRequestRepository, dig.As(new(request.Repository))))
	must(c.Provide(sqlxrepos.NewDigestRepository, dig.As(new(digest.Repository))))

	// services
	must(c.Provide(user.NewService))
	must(c.Provide(asUserDirectory))
	must(c.Provide(parish.NewService))
	must(c.Provide(asLocator))
	must(c.Provide(week.NewService))
	must(c.Provide(asWeekChecker))
	must(c.Provide(task.NewService))
	must(c.Provide(event.NewService))
	must(c.Provide(announcement.NewService))
	must(c.Provide(request.NewService))
	must(c.Provide(newDigestSources))
	must(c.Provide(digest.NewService))

	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
