package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Houeta/seat-watch/internal/config"
	"github.com/Houeta/seat-watch/internal/export"
	"github.com/Houeta/seat-watch/internal/models"
	"github.com/Houeta/seat-watch/internal/notify"
	"github.com/spf13/cobra"
)

var errSpecFlags = errors.New("either --subject with --course or --crns is required")

func newServeCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot and the periodic sweep",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), dryRun)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "log notifications instead of sending them, without starting the bot")

	return cmd
}

func runServe(ctx context.Context, dryRun bool) error {
	var cfg *config.Config
	if dryRun {
		cfg = config.Load()
	} else {
		cfg = config.MustLoad()
	}

	a, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	notifier, tgBot, err := a.notifier(dryRun)
	if err != nil {
		return err
	}

	watches := a.watches(notifier)
	sched := a.scheduler(notifier)

	if tgBot != nil {
		tgBot.SetWatchService(watches)
		// Start the bot in a goroutine to allow the sweep loop to run alongside.
		go tgBot.Start()
	}

	a.log.InfoContext(ctx, "Application started. Press Ctrl+C to stop.")

	done := make(chan struct{})
	go func() {
		sched.Run(ctx, cfg.Poll.Interval)
		close(done)
	}()

	// Wait for the context to be canceled (e.g., by Ctrl+C).
	<-ctx.Done()
	a.log.Info("Shutdown signal received. Stopping application...")

	if tgBot != nil {
		tgBot.Stop()
	}
	<-done
	watches.Wait()

	a.log.Info("Application stopped gracefully.")

	return nil
}

func newSweepCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run a single sweep over every watch and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()

			a, err := openApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			notifier, _, err := a.notifier(dryRun)
			if err != nil {
				return err
			}

			report, err := a.scheduler(notifier).Sweep(cmd.Context())
			if err != nil {
				return fmt.Errorf("sweep failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"listed %d, inactive %d, succeeded %d, skipped %d, failed %d, notified %d in %s\n",
				report.Listed, report.Inactive, report.Succeeded, report.Skipped, report.Failed,
				report.Notified, report.Duration.Round(time.Millisecond))

			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "log notifications instead of sending them")

	return cmd
}

func newAddCmd() *cobra.Command {
	var (
		subject   string
		course    string
		crns      []string
		recipient string
		dryRun    bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a watch and wait for its baseline",
		Example: `  seat-watch add --subject CSCE --course 411 --recipient 123456789
  seat-watch add --crns 12345,12346 --recipient 123456789`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			spec, err := specFromFlags(subject, course, crns)
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context(), config.Load())
			if err != nil {
				return err
			}
			defer a.Close()

			notifier, _, err := a.notifier(dryRun)
			if err != nil {
				return err
			}

			watches := a.watches(notifier)

			id, err := watches.Create(cmd.Context(), spec, recipient)
			if err != nil {
				return err //nolint:wrapcheck // carries its op name
			}
			watches.Wait()

			watch, err := watches.Get(cmd.Context(), id)
			if err != nil {
				return err //nolint:wrapcheck // carries its op name
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s, %d section(s)\n",
				watch.ID, watch.Spec, watch.Status, len(watch.Sections))

			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "subject code, e.g. CSCE")
	cmd.Flags().StringVar(&course, "course", "", "course number, e.g. 411")
	cmd.Flags().StringSliceVar(&crns, "crns", nil, "comma separated CRNs")
	cmd.Flags().StringVar(&recipient, "recipient", "", "notification target (Telegram chat ID)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "log the confirmation instead of sending it")
	_ = cmd.MarkFlagRequired("recipient")

	return cmd
}

func specFromFlags(subject, course string, crns []string) (models.SearchSpec, error) {
	switch {
	case len(crns) > 0 && subject == "" && course == "":
		return models.NewCRNSpec(crns)
	case len(crns) == 0 && subject != "" && course != "":
		return models.NewCourseSpec(subject, course)
	default:
		return models.SearchSpec{}, errSpecFlags
	}
}

func newListCmd() *cobra.Command {
	var recipient string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored watches",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), config.Load())
			if err != nil {
				return err
			}
			defer a.Close()

			watches, err := a.watches(notify.NewLogNotifier(a.log)).List(cmd.Context(), recipient)
			if err != nil {
				return err //nolint:wrapcheck // carries its op name
			}

			printWatches(cmd.OutOrStdout(), watches)

			return nil
		},
	}
	cmd.Flags().StringVar(&recipient, "recipient", "", "only show watches of this recipient")

	return cmd
}

func printWatches(w io.Writer, watches []models.Watch) {
	if len(watches) == 0 {
		fmt.Fprintln(w, "No watches.")
		return
	}

	for _, watch := range watches {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d section(s)\n",
			watch.ID, watch.Recipient, watch.Spec, watch.Status, len(watch.Sections))
		for _, s := range watch.Sections {
			fmt.Fprintf(w, "  %s\t%s-%s-%s\t%s\n", s.CRN, s.Subject, s.Course, s.SectionNumber, s.Status)
		}
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a watch with its snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), config.Load())
			if err != nil {
				return err
			}
			defer a.Close()

			if err = a.watches(notify.NewLogNotifier(a.log)).Delete(cmd.Context(), args[0], ""); err != nil {
				return err //nolint:wrapcheck // carries its op name
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Watch %s deleted.\n", args[0])

			return nil
		},
	}
}

func newExportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the stored sections of every watch as CSV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), config.Load())
			if err != nil {
				return err
			}
			defer a.Close()

			watches, err := a.watches(notify.NewLogNotifier(a.log)).List(cmd.Context(), "")
			if err != nil {
				return err //nolint:wrapcheck // carries its op name
			}

			if output == "" || output == "-" {
				return export.WriteCSV(cmd.OutOrStdout(), watches) //nolint:wrapcheck // carries its op name
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", output, err)
			}
			defer f.Close()

			if err = export.WriteCSV(f, watches); err != nil {
				return err //nolint:wrapcheck // carries its op name
			}

			return f.Close() //nolint:wrapcheck // close error is self-describing
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "-", "output file, - for stdout")

	return cmd
}
