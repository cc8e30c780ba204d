package db

import (
	"fmt"

	"github.com/cozy-creator/brandgen/internal/config"
	"github.com/cozy-creator/brandgen/internal/db"
	"github.com/cozy-creator/brandgen/internal/db/drivers"
	"github.com/cozy-creator/brandgen/internal/db/migrations"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun/extra/bundebug"
	"github.com/uptrace/bun/migrate"
)

var Cmd = &cobra.Command{
	Use:   "db",
	Short: "Utility for database management",
}

var (
	driver   drivers.Driver
	migrator *migrate.Migrator
)

func init() {
	setupMigrationCmd(Cmd)
}

func setupMigrationCmd(cmd *cobra.Command) {
	migrationCmd := &cobra.Command{
		Use:   "migration",
		Short: "Utility for handling database migrations",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := migrations.InitMigrations(); err != nil {
				return err
			}

			var err error
			driver, err = db.NewConnection(cmd.Context(), config.MustGetConfig())
			if err != nil {
				return err
			}

			bunDB := driver.GetDB()
			bunDB.AddQueryHook(bundebug.NewQueryHook(
				bundebug.WithEnabled(false),
				bundebug.FromEnv(),
			))

			migrator = migrate.NewMigrator(bunDB, migrations.Migrations)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if driver == nil {
				return nil
			}
			return driver.Close()
		},
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "create migration tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			return migrator.Init(cmd.Context())
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "migrate database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := migrator.Lock(cmd.Context()); err != nil {
				return err
			}
			defer migrator.Unlock(cmd.Context()) //nolint:errcheck

			group, err := migrator.Migrate(cmd.Context())
			if err != nil {
				return err
			}
			if group.IsZero() {
				fmt.Fprintln(cmd.OutOrStdout(), "there are no new migrations to run (database is up to date)")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrated to %s\n", group)
			return nil
		},
	}

	rollbackCmd := &cobra.Command{
		Use:   "rollback",
		Short: "rollback the last migration group",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := migrator.Lock(cmd.Context()); err != nil {
				return err
			}
			defer migrator.Unlock(cmd.Context()) //nolint:errcheck

			group, err := migrator.Rollback(cmd.Context())
			if err != nil {
				return err
			}
			if group.IsZero() {
				fmt.Fprintln(cmd.OutOrStdout(), "there are no groups to roll back")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rolled back %s\n", group)
			return nil
		},
	}

	lockCmd := &cobra.Command{
		Use:   "lock",
		Short: "Lock the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := migrator.Lock(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "locked")
			return nil
		},
	}

	unlockCmd := &cobra.Command{
		Use:   "unlock",
		Short: "Unlock the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := migrator.Unlock(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "unlocked")
			return nil
		},
	}

	createGoCmd := &cobra.Command{
		Use:   "create-go <name>",
		Short: "Create a Go migration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := migrator.CreateGoMigration(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "created migration file %s in %s\n", file.Name, file.Path)
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Print the status of the migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := migrator.MigrationsWithStatus(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrations: %s\n", status)
			fmt.Fprintf(cmd.OutOrStdout(), "unapplied migrations: %s\n", status.Unapplied())
			fmt.Fprintf(cmd.OutOrStdout(), "last migration group: %s\n", status.LastGroup())
			return nil
		},
	}

	markAppliedCmd := &cobra.Command{
		Use:   "mark-applied",
		Short: "Mark all migrations as applied without actually running them",
		RunE: func(cmd *cobra.Command, args []string) error {
			group, err := migrator.Migrate(cmd.Context(), migrate.WithNopMigration())
			if err != nil {
				return err
			}
			if group.IsZero() {
				fmt.Fprintln(cmd.OutOrStdout(), "there are no new migrations to mark as applied")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "marked as applied %s\n", group)
			return nil
		},
	}

	migrationCmd.AddCommand(
		initCmd,
		migrateCmd,
		rollbackCmd,
		lockCmd,
		unlockCmd,
		createGoCmd,
		statusCmd,
		markAppliedCmd,
	)

	cmd.AddCommand(migrationCmd)
}
