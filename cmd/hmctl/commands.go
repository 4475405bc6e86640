package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/xzeeeeen/HM/internal/catalog"
	"github.com/xzeeeeen/HM/internal/progress"
	"github.com/xzeeeeen/HM/internal/report"
	"github.com/xzeeeeen/HM/internal/unlock"
)

var errInvalidCatalog = errors.New("catalog has invalid course files")

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "hmctl",
		Short:         "Inspect course catalogs and learner progress",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().String("catalog", "./catalog", "course catalog directory")

	root.AddCommand(newValidateCmd(), newViewCmd(), newReportCmd())
	return root
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load the catalog and report invalid course files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := loadCatalog(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, c := range cat.Courses() {
				fmt.Fprintf(out, "OK: %s %q (%s, %d modules)\n", c.ID, c.Title, c.Status, len(c.Modules))
			}
			problems := cat.Problems()
			for _, p := range problems {
				fmt.Fprintf(out, "ERROR: %s\n", p)
			}
			if len(problems) > 0 {
				return fmt.Errorf("%w: %d problem(s)", errInvalidCatalog, len(problems))
			}
			return nil
		},
	}
}

func newViewCmd() *cobra.Command {
	var progressPath, courseID string

	cmd := &cobra.Command{
		Use:   "view",
		Short: "Print the unlock view of a course for a progress snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := loadCatalog(cmd)
			if err != nil {
				return err
			}
			course, ok := cat.Course(courseID)
			if !ok {
				return fmt.Errorf("course %q not found", courseID)
			}
			p, err := readProgress(progressPath)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(unlock.Compute(course, p))
		},
	}
	cmd.Flags().StringVar(&progressPath, "progress", "", "progress snapshot JSON file")
	cmd.Flags().StringVar(&courseID, "course", "", "course id")
	_ = cmd.MarkFlagRequired("progress")
	_ = cmd.MarkFlagRequired("course")
	return cmd
}

func newReportCmd() *cobra.Command {
	var progressPath, outPath string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write an xlsx progress report for a progress snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := loadCatalog(cmd)
			if err != nil {
				return err
			}
			p, err := readProgress(progressPath)
			if err != nil {
				return err
			}

			f, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("create report: %w", err)
			}
			if err := report.Write(f, cat.Published(""), p); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("close report: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", outPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&progressPath, "progress", "", "progress snapshot JSON file")
	cmd.Flags().StringVar(&outPath, "out", "progress.xlsx", "output file")
	_ = cmd.MarkFlagRequired("progress")
	return cmd
}

func loadCatalog(cmd *cobra.Command) (*catalog.Catalog, error) {
	dir, err := cmd.Flags().GetString("catalog")
	if err != nil {
		return nil, err
	}
	return catalog.Load(dir)
}

func readProgress(path string) (*progress.Progress, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open progress: %w", err)
	}
	defer f.Close()
	return progress.Decode(f)
}
