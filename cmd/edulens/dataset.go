package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/edulens/edulens/internal/dataset"
	"github.com/edulens/edulens/internal/errutil"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var datasetCmd = &cobra.Command{
	Use:     "dataset",
	Aliases: []string{"ds"},
	Short:   "Upload, list and describe datasets",
}

var datasetUploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Stores a dataset file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := args[0]
		name, err := cmd.Flags().GetString("name")
		if err != nil {
			errutil.ReportError(err, "Failed to get name flag")
			os.Exit(1)
		}
		if name == "" {
			name = filepath.Base(path)
		}

		file, err := os.Open(path)
		if err != nil {
			errutil.ReportError(err, "Failed to open dataset file")
			os.Exit(1)
		}
		defer func() {
			errutil.LogMsg(file.Close(), "Failed to close dataset file")
		}()

		size := int64(-1)
		if info, err := file.Stat(); err == nil {
			size = info.Size()
		}
		bar := progressbar.NewOptions64(
			size,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("uploading"),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(10),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionOnCompletion(func() {
				if _, err := fmt.Fprint(os.Stderr, "\n"); err != nil {
					errutil.LogMsg(err, "Failed to print newline to stderr")
				}
			}),
		)

		a := mustApp()
		defer a.Close()

		entry, err := a.Catalog.Upload(cmd.Context(), name, io.TeeReader(file, bar))
		errutil.LogMsg(bar.Finish(), "Failed to finish progress bar")
		if err != nil {
			errutil.ReportError(err, "Upload failed")
			a.Close()
			os.Exit(1)
		}

		category := entry.Category
		if category == "" {
			category = "not tabular"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "uploaded %s (%d bytes, %s)\n", entry.ObjectName, entry.Size, category)
	},
}

var datasetListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists stored datasets",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		refresh, err := cmd.Flags().GetBool("refresh")
		if err != nil {
			errutil.ReportError(err, "Failed to get refresh flag")
			os.Exit(1)
		}

		a := mustApp()
		defer a.Close()

		entries, hit, err := a.Catalog.List(cmd.Context(), refresh)
		if err != nil {
			errutil.ReportError(err, "Failed to list datasets")
			a.Close()
			os.Exit(1)
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			printJSON(cmd, entries)
			return
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tFILE\tSIZE\tCATEGORY\tMODIFIED")
		for _, e := range entries {
			category := e.Category
			if category == "" {
				category = "-"
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", e.Name, e.ObjectName, e.Size, category, formatTime(e.Modified))
		}
		errutil.LogMsg(tw.Flush(), "Failed to write output")
		if hit {
			fmt.Fprintln(os.Stderr, "(cached listing, use --refresh to reload)")
		}
	},
}

var datasetShowCmd = &cobra.Command{
	Use:   "show [name...]",
	Short: "Describes datasets (all of them if no name is given)",
	Run: func(cmd *cobra.Command, args []string) {
		a := mustApp()
		defer a.Close()

		names := args
		if len(names) == 0 {
			entries, _, err := a.Catalog.List(cmd.Context(), false)
			if err != nil {
				errutil.ReportError(err, "Failed to list datasets")
				a.Close()
				os.Exit(1)
			}
			for _, e := range entries {
				names = append(names, e.ObjectName)
			}
		}

		// One job per dataset; this loop is the only consumer of results.
		pending := 0
		for _, name := range names {
			if _, err := a.Runner.Submit(name, func(ctx context.Context) (any, error) {
				return a.Catalog.Describe(ctx, name)
			}); err != nil {
				errutil.ReportError(err, "Failed to schedule describe", "name", name)
				continue
			}
			pending++
		}

		failed := false
		for ; pending > 0; pending-- {
			res := <-a.Runner.Results()
			if res.Err != nil {
				fmt.Fprintf(os.Stderr, "%s: %v\n", res.Name, res.Err)
				failed = true
				continue
			}
			printSummary(cmd.OutOrStdout(), res.Value.(dataset.Summary))
		}
		if failed {
			a.Close()
			os.Exit(1)
		}
	},
}

var datasetRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Deletes a stored dataset",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := mustApp()
		defer a.Close()

		if err := a.Catalog.Remove(cmd.Context(), args[0]); err != nil {
			errutil.ReportError(err, "Failed to remove dataset", "name", args[0])
			a.Close()
			os.Exit(1)
		}
	},
}

var overviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Summarizes the whole dataset library",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		a := mustApp()
		defer a.Close()

		ov, err := a.Catalog.Overview(cmd.Context())
		if err != nil {
			errutil.ReportError(err, "Failed to build overview")
			a.Close()
			os.Exit(1)
		}
		for _, line := range ov.Highlights() {
			fmt.Fprintf(cmd.OutOrStdout(), "• %s\n", line)
		}
	},
}

func printSummary(w io.Writer, s dataset.Summary) {
	fmt.Fprintf(w, "%s\n  records: %d\n  columns: %d\n  type: %s\n", s.Name, s.Records, len(s.Columns), s.Category.Title())
	for i, c := range s.Columns {
		line := fmt.Sprintf("  %d. %s (%s) - %d unique values", i+1, c.Name, c.Kind, c.Unique)
		if c.Mean != nil {
			line += fmt.Sprintf(", avg=%.2f", *c.Mean)
		}
		if c.Std != nil {
			line += fmt.Sprintf(", std=%.2f", *c.Std)
		}
		fmt.Fprintln(w, line)
	}
	for i, row := range s.Sample {
		fmt.Fprintf(w, "  row %d: %s\n", i+1, strings.Join(row, ", "))
	}
}

func init() {
	rootCmd.AddCommand(datasetCmd, overviewCmd)
	datasetCmd.AddCommand(datasetUploadCmd, datasetListCmd, datasetShowCmd, datasetRemoveCmd)

	datasetUploadCmd.Flags().String("name", "", "Name to store the dataset under (default: file name)")
	datasetListCmd.Flags().Bool("refresh", false, "Bypass the cached listing")
	datasetListCmd.Flags().Bool("json", false, "Print the listing as JSON")
}
