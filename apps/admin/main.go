package main

import (
	"log"
	"os"

	"github.com/trezcool/parokia/core"
	"github.com/trezcool/parokia/core/clock"
	"github.com/trezcool/parokia/core/parish"
	"github.com/trezcool/parokia/core/user"
	"github.com/trezcool/parokia/core/week"
	"github.com/trezcool/parokia/storage/database"
	sqlxrepos "github.com/trezcool/parokia/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf, err := core.NewConfig()
	errAndDie(err)

	// set up DB
	errAndDie(database.CreateIfNotExist(conf))
	db, err := database.Open(conf)
	errAndDie(err)

	validate, translator := core.NewValidator()
	user.RegisterValidators(validate, translator)

	// start CLI
	usrRepo := sqlxrepos.NewUserRepository(db)
	usrSvc := user.NewService(usrRepo)
	parishSvc := parish.NewService(sqlxrepos.NewParishRepository(db), usrSvc, clock.NewResolver(conf))
	cli := commandLine{
		db:       db.DB,
		usrRepo:  usrRepo,
		usrSvc:   usrSvc,
		parishes: parishSvc,
		weeks:    week.NewService(sqlxrepos.NewWeekRepository(db), parishSvc),
		validate: validate,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
