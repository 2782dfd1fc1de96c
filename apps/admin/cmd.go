package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"github.com/trezcool/parokia/core/parish"
	"github.com/trezcool/parokia/core/user"
	"github.com/trezcool/parokia/core/week"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db       *sql.DB
	usrRepo  user.Repository
	usrSvc   *user.Service
	parishes *parish.Service
	weeks    *week.Service
	validate *validator.Validate
	out      io.Writer
}

func (cli *commandLine) printf(format string, args ...interface{}) {
	out := cli.out
	if out == nil {
		out = os.Stdout
	}
	_, _ = fmt.Fprintf(out, format, args...)
}

func (cli *commandLine) printUsage() {
	cli.printf("Usage:\n")
	cli.printf("  migrate COMMAND [ARGS] - run a goose command (up, down, status, ...)\n")
	cli.printf("  adduser -name NAME -email EMAIL [-superadmin] [-parish ID -role ROLE] - create or update a user\n")
	cli.printf("  seed -file PATH - load parishes and their members from a YAML file\n")
	cli.printf("  ensureweeks - provision the current and next week of every parish\n")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserName := addUserCmd.String("name", "", "The user's full name.")
	addUserEmail := addUserCmd.String("email", "", "The user's email. The password will be prompted next.")
	addUserSuper := addUserCmd.Bool("superadmin", false, "Grant platform super-admin rights.")
	addUserParish := addUserCmd.String("parish", "", "Add the user to this parish ID.")
	addUserRole := addUserCmd.String("role", "MEMBER", "The user's role in -parish: ADMIN, SHEPHERD or MEMBER.")

	seedCmd := flag.NewFlagSet("seed", flag.ContinueOnError)
	seedFile := seedCmd.String("file", "", "Path to the YAML seed file.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printf("Usage: migrate COMMAND [ARGS]\n")
			return errHelp
		}
		return cli.migrate(args[2:])

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserEmail == "" || *addUserName == "" {
			addUserCmd.Usage()
			return errHelp
		}
		cli.printf("Enter password:")
		pwd, err := readPasswordFunc(int(syscall.Stdin))
		cli.printf("\n")
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			addUserCmd.Usage()
			return errHelp
		}
		_, err = cli.addUser(addUserArgs{
			name:       *addUserName,
			email:      *addUserEmail,
			password:   string(pwd),
			superAdmin: *addUserSuper,
			parishID:   *addUserParish,
			role:       *addUserRole,
		})
		return err

	case "seed":
		if err := seedCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *seedFile == "" {
			seedCmd.Usage()
			return errHelp
		}
		return cli.seed(*seedFile)

	case "ensureweeks":
		return cli.ensureWeeks()

	default:
		cli.printUsage()
		return errHelp
	}
}
