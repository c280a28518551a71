package main

import (
	"fmt"
	"os"

	"github.com/trezcool/sundayschool/core"
	"github.com/trezcool/sundayschool/core/enrollment"
	emailsvc "github.com/trezcool/sundayschool/services/email"
	logsvc "github.com/trezcool/sundayschool/services/logger"
	"github.com/trezcool/sundayschool/storage/database"
	sqlxrepos "github.com/trezcool/sundayschool/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(conf, "ADMIN", os.Stdout)
	logger.Enable(!conf.Debug)

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}

	usrRepo := sqlxrepos.NewUserRepository(db)
	classRepo := sqlxrepos.NewClassRepository(db)
	relRepo := sqlxrepos.NewRelationshipRepository(db)
	enrollSvc := enrollment.NewService(
		db,
		sqlxrepos.NewEnrollmentRepository(db),
		classRepo,
		usrRepo,
		relRepo,
		emailsvc.NewConsoleService(conf, logger, nil),
		logger,
	)

	// start CLI
	cli := commandLine{
		db:        db,
		usrRepo:   usrRepo,
		enrollSvc: enrollSvc,
		out:       os.Stdout,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %v", err), err)
		}
		os.Exit(1)
	}
}
