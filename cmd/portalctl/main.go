package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/dangerclosesec/portal/internal/auth"
	"github.com/dangerclosesec/portal/internal/config"
	"github.com/dangerclosesec/portal/internal/repository"
	"github.com/dangerclosesec/portal/internal/schema"
	"github.com/dangerclosesec/portal/internal/service"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	dbConnString string
	verbose      bool
	timeout      time.Duration
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&dbConnString, "db", "d", "", "Database connection string (defaults to DB_* environment)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Maximum time a command may run")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(sweepCmd)
}

var rootCmd = &cobra.Command{
	Use:   "portalctl",
	Short: "portalctl manages the report portal database",
	Long:  `portalctl applies schema migrations, seeds development data and runs the overdue sweep.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		db := openDB()
		defer db.Close()

		applied, err := schema.NewMigrator(db, slog.Default()).Migrate(ctx)
		if err != nil {
			log.Fatalf("Failed to migrate: %v", err)
		}

		if len(applied) == 0 {
			fmt.Println("Schema is up to date. Migration skipped.")
			return
		}
		fmt.Printf("Applied migrations: %v\n", applied)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the current schema version",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		db := openDB()
		defer db.Close()

		migrator := schema.NewMigrator(db, slog.Default())
		if err := migrator.InitializeSchema(ctx); err != nil {
			log.Fatalf("Failed to initialize schema: %v", err)
		}

		version, err := migrator.CurrentVersion(ctx)
		if err != nil {
			log.Fatalf("Failed to get current version: %v", err)
		}

		latest := schema.Migrations()[len(schema.Migrations())-1].Version
		fmt.Printf("Current schema version: %d (latest %d)\n", version, latest)
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert the development organizations and users",
	Long:  `Insert the default council / department tree and one account per role. Existing rows are kept.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		db := openDB()
		defer db.Close()

		migrator := schema.NewMigrator(db, slog.Default())
		if _, err := migrator.Migrate(ctx); err != nil {
			log.Fatalf("Failed to migrate: %v", err)
		}

		if err := migrator.Seed(ctx, auth.NewPasswordHasher(), schema.DefaultOrganizations, schema.DefaultUsers); err != nil {
			log.Fatalf("Failed to seed: %v", err)
		}

		fmt.Println("Seed data loaded")
		if verbose {
			for _, u := range schema.DefaultUsers {
				fmt.Printf("  - %s (%s) %s\n", u.Username, u.Role, u.Organization)
			}
		}
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Mark reports past their due date as overdue",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		db := openDB()
		defer db.Close()

		gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
			NowFunc: func() time.Time {
				return time.Now().UTC()
			},
		})
		if err != nil {
			log.Fatalf("Failed to open gorm session: %v", err)
		}

		svc := service.NewReportService(
			repository.NewReportRepository(gormDB),
			repository.NewUserRepository(gormDB),
		)

		marked, err := svc.SweepOverdue(ctx)
		if err != nil {
			log.Fatalf("Sweep failed: %v", err)
		}

		fmt.Printf("Marked %d report(s) overdue\n", marked)
	},
}

func openDB() *sql.DB {
	conn := dbConnString
	if conn == "" {
		conn = config.Load().DSN()
	}

	db, err := sql.Open("postgres", conn)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to reach database: %v", err)
	}
	return db
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
