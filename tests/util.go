package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/parokia/core"
	"github.com/trezcool/parokia/core/clock"
	"github.com/trezcool/parokia/core/user"
	"github.com/trezcool/parokia/storage/database"
)

// DBEnvVar enables the tests that need Postgres. The connection settings
// are read like the application does, from the environment or config/.env.test.
const DBEnvVar = "PAROKIA_DB_TESTS"

// PrepareDB returns a freshly migrated database, or skips the test when
// database tests are not enabled.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	if os.Getenv(DBEnvVar) == "" || testing.Short() {
		t.Skipf("set %s to run database tests", DBEnvVar)
	}

	conf, err := core.NewConfig()
	if err != nil {
		t.Fatalf("PrepareDB() config: %v", err)
	}
	if err = database.CreateIfNotExist(conf); err != nil {
		t.Fatalf("PrepareDB() create: %v", err)
	}
	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("PrepareDB() open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db.DB, "reset"); err != nil {
		t.Fatalf("PrepareDB() reset: %v", err)
	}
	if err = database.Migrate(db.DB, "up"); err != nil {
		t.Fatalf("PrepareDB() migrate: %v", err)
	}
	return db
}

func CreateUser(t *testing.T, repo user.Repository, name, email, pwd string, isActive bool) user.User {
	t.Helper()
	now := clock.Now()
	usr := user.User{
		Name:      name,
		Email:     email,
		IsActive:  isActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}
