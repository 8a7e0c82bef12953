package main

import (
	"fmt"
	"os"

	"github.com/esilogis/backend/internal/config"
	"github.com/esilogis/backend/internal/db"
	"github.com/esilogis/backend/internal/logger"
	"github.com/esilogis/backend/internal/seed"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	seedFile    string
	skipMigrate bool
)

var rootCmd = &cobra.Command{
	Use:           "seed",
	Short:         "Load persons, locations and equipment into the database",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runSeed,
}

func init() {
	rootCmd.Flags().StringVarP(&seedFile, "file", "f", "data/seed.json", "seed file to load")
	rootCmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not run migrations before seeding")
}

func runSeed(cmd *cobra.Command, args []string) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger.Initialize(cfg.LogLevel, "")

	f, err := seed.Load(seedFile)
	if err != nil {
		return err
	}

	conn, err := db.Connect(cfg.DSN())
	if err != nil {
		return err
	}
	if !skipMigrate {
		if err := db.AutoMigrate(conn); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	summary, err := seed.Apply(cmd.Context(), conn, f, func(e seed.Event) {
		switch {
		case e.Err != nil:
			fmt.Fprintf(out, "%s %s %s: %v\n", color.RedString("✗"), e.Kind, e.Name, e.Err)
		case e.Created:
			fmt.Fprintf(out, "%s %s %s\n", color.GreenString("+"), e.Kind, e.Name)
		default:
			fmt.Fprintf(out, "%s %s %s already exists\n", color.YellowString("="), e.Kind, e.Name)
		}
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\n%s created, %s skipped, %s failed\n",
		color.GreenString("%d", summary.Created),
		color.YellowString("%d", summary.Skipped),
		color.RedString("%d", summary.Failed))
	if summary.Failed > 0 {
		return fmt.Errorf("%d record(s) failed to seed", summary.Failed)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
		os.Exit(1)
	}
}
