package cmd

import (
	"context"
	"log"

	"github.com/frahmantamala/client-portal/db"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

var (
	migrateCmd = &cobra.Command{
		RunE:  runMigration,
		Use:   "migrate",
		Short: "to run the embedded db migrations for the configured driver",
	}
	migrateRollback bool
)

func init() {
	migrateCmd.Flags().BoolVarP(&migrateRollback, "rollback", "r", false, "to rollback the latest version of sql migration")
}

func runMigration(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	cfg, err := loadConfig(configPath)
	if err != nil {
		log.Fatal(err)
	}

	driver, dialect := "pgx", "postgres"
	if cfg.Database.Driver == "sqlite" {
		driver, dialect = "sqlite3", "sqlite3"
	}

	migrations, err := db.Migrations(cfg.Database.Driver)
	if err != nil {
		log.Fatalf("goose: %v", err)
	}
	goose.SetBaseFS(migrations)
	goose.SetTableName("schema_migrations")
	if err := goose.SetDialect(dialect); err != nil {
		log.Fatalf("goose: %v", err)
	}

	conn, err := goose.OpenDBWithDriver(driver, cfg.Database.Source)
	if err != nil {
		log.Fatalf("goose: failed to open DB: %v\n", err)
	}
	defer conn.Close()

	command := "up"
	if migrateRollback {
		command = "down"
	}
	if err := goose.RunContext(ctx, command, conn, "."); err != nil {
		log.Fatalf("goose %s: %v", command, err)
	}

	return nil
}
