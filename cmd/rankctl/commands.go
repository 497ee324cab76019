package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/mindengage-selection/internal/app"
	"github.com/mind-engage/mindengage-selection/internal/config"
	"github.com/mind-engage/mindengage-selection/internal/export"
	"github.com/mind-engage/mindengage-selection/internal/logging"
	"github.com/mind-engage/mindengage-selection/internal/selection"
)

var (
	recordsDriver string
	verbose       bool
)

var rootCmd = &cobra.Command{
	Use:           "rankctl",
	Short:         "Inspect and export the intern selection board",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var ranklistCmd = &cobra.Command{
	Use:   "ranklist",
	Short: "Print the ranked leaderboard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			rows := a.Service.Leaderboard(cmd.Context())
			color.Cyan("Ranklist (%d candidates)", len(rows))
			export.RenderRanklist(cmd.OutOrStdout(), rows)
			return nil
		})
	},
}

var studentBy string

var studentCmd = &cobra.Command{
	Use:   "student <chest-or-admission-no>",
	Short: "Show one candidate's scores and grades",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			res, err := a.Service.Search(cmd.Context(), selection.SearchMode(studentBy), args[0])
			if err != nil {
				return err
			}
			if !res.Found {
				color.Yellow("No candidate found for %s %q", studentBy, args[0])
				return nil
			}
			export.RenderStudent(cmd.OutOrStdout(), a.Service.Rubric(), res.Student)
			return nil
		})
	},
}

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the leaderboard to an XLSX workbook",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			f, err := os.Create(exportOut)
			if err != nil {
				return err
			}
			if err := export.WriteXLSX(f, a.Service.Leaderboard(cmd.Context())); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			color.Green("wrote %s", exportOut)
			return nil
		})
	},
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password [password]",
	Short: "Print a bcrypt hash for ADMIN_PASS_HASH",
	Long:  "Hashes the argument, or one line read from stdin when no argument is given.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var pw string
		if len(args) == 1 {
			pw = args[0]
		} else {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("read password: %w", err)
			}
			pw = strings.TrimRight(line, "\r\n")
		}
		if pw == "" {
			return fmt.Errorf("empty password")
		}
		b, err := bcrypt.GenerateFromPassword([]byte(pw), 12)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&recordsDriver, "records", "", "record store: airtable|sql|memory (default from RECORDS_DRIVER)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log store activity to stderr")

	studentCmd.Flags().StringVar(&studentBy, "by", string(selection.ByChest), "lookup key: chest|admission")
	exportCmd.Flags().StringVarP(&exportOut, "output", "o", "ranklist.xlsx", "output file")

	rootCmd.AddCommand(ranklistCmd, studentCmd, exportCmd, hashPasswordCmd)
}

func withApp(ctx context.Context, fn func(*app.App) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := config.FromEnv()
	if recordsDriver != "" {
		cfg.RecordsDriver = config.RecordsDriver(recordsDriver)
	}
	log := zap.NewNop()
	if verbose {
		var err error
		if log, err = logging.New(false, "debug"); err != nil {
			return err
		}
	}
	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
