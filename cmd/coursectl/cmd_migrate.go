package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/designengineer/course-api/internal/app"
	"github.com/designengineer/course-api/internal/config"
	"github.com/designengineer/course-api/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create any missing MySQL tables",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if cfg.StoreDriver != "mysql" {
		return errors.New("migrate needs STORE_DRIVER=mysql")
	}
	ctx, cancel := context.WithTimeout(cmdContext(cmd), timeout)
	defer cancel()
	db, err := app.OpenDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema is up to date on %s/%s\n", cfg.DBHost, cfg.DBName)
	return nil
}
