// Package cmd - Saved report history commands
package cmd

import (
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"dose-calculator/adapters/storage"
	"dose-calculator/core/engine"
	"dose-calculator/core/ui"
	"dose-calculator/internal/bootstrap"
	"dose-calculator/internal/config"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse saved reports",
	Long:  "Commands for listing, showing and deleting reports saved with estimate --save.",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved reports, newest first",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a saved report",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a saved report",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryDelete,
}

var historyFilter storage.ListFilter

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)

	historyListCmd.Flags().StringVar(&historyFilter.Isotope, "isotope", "", "only reports for this isotope")
	historyListCmd.Flags().StringVar(&historyFilter.Label, "label", "", "only reports with this label")
	historyListCmd.Flags().IntVarP(&historyFilter.Limit, "limit", "n", 20, "maximum number of reports")
	historyShowCmd.Flags().BoolVar(&jsonOutput, "json", false, "print the stored report as JSON")
}

func openHistory(cmd *cobra.Command) (storage.ReportStore, error) {
	return bootstrap.OpenReports(cmd.Context(), config.Get().Reports)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	w := newWriter(cmd)

	store, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	reports, err := store.List(cmd.Context(), &historyFilter)
	if err != nil {
		return err
	}
	if len(reports) == 0 {
		w.Info("No saved reports")
		return nil
	}

	w.Header("Saved Reports")
	table := w.NewTable("ID", "Created", "Label", "Isotope", "Distance", "Dose rate")
	for _, r := range reports {
		rep := r.Report
		table.AddRow(
			r.ID,
			humanize.Time(r.CreatedAt),
			r.Label,
			rep.Source.Isotope,
			ui.FormatQuantity(rep.Source.Distance, "cm"),
			doseText(rep),
		)
	}
	table.Render()
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	w := newWriter(cmd)

	store, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	r, err := store.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	runner := ui.NewEstimationRunner(w, nil, 1)
	if jsonOutput {
		return runner.JSONOutput(r)
	}
	title := "Report " + r.ID
	if r.Label != "" {
		title = r.Label
	}
	runner.DisplayReport(title, r.Report)
	w.Println("")
	w.Dim("Saved %s", r.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	return nil
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	store, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}
	newWriter(cmd).Success("Deleted report %s", args[0])
	return nil
}

func doseText(rep *engine.RateReport) string {
	if !rep.DoseApplicable {
		return "only flux for neutrons"
	}
	return ui.FormatQuantity(rep.DoseDisplay.Value, rep.DoseDisplay.Unit)
}
