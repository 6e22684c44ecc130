package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/edulens/edulens/internal/errutil"
	"github.com/edulens/edulens/internal/filecache"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the result cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Shows entry count and size of the cache",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		a := mustApp()
		defer a.Close()

		st := a.Cache.Stats()
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			printJSON(cmd, st)
			return
		}
		fmt.Fprintln(cmd.OutOrStdout(), st)
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Removes every cache entry",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		a := mustApp()
		defer a.Close()

		a.Cache.Clear()
		fmt.Fprintln(cmd.OutOrStdout(), a.Cache.Stats())
	},
}

var cacheGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Prints the JSON value cached under key",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := mustApp()
		defer a.Close()

		var raw json.RawMessage
		if !a.Cache.Get(args[0], &raw) {
			fmt.Fprintln(os.Stderr, "miss")
			a.Close()
			os.Exit(2)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(raw))
	},
}

var cacheSetCmd = &cobra.Command{
	Use:   "set <key> <json>",
	Short: "Caches a JSON value under key",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ttl, err := cmd.Flags().GetDuration("ttl")
		if err != nil {
			errutil.ReportError(err, "Failed to get ttl flag")
			os.Exit(1)
		}
		if !json.Valid([]byte(args[1])) {
			errutil.ReportError(fmt.Errorf("not valid JSON: %s", args[1]), "Refusing to cache value")
			os.Exit(1)
		}

		a := mustApp()
		defer a.Close()

		if !a.Cache.Set(args[0], json.RawMessage(args[1]), ttl) {
			fmt.Fprintln(os.Stderr, "not stored")
		}
	},
}

var cacheDeleteCmd = &cobra.Command{
	Use:   "delete <key>",
	Short: "Removes the entry cached under key",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := mustApp()
		defer a.Close()

		a.Cache.Delete(args[0])
	},
}

func printJSON(cmd *cobra.Command, v any) {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	errutil.LogMsg(enc.Encode(v), "Failed to write output")
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd, cacheGetCmd, cacheSetCmd, cacheDeleteCmd)

	cacheStatsCmd.Flags().Bool("json", false, "Print stats as JSON")
	cacheSetCmd.Flags().Duration("ttl", filecache.DefaultTTL, "Time to live of the entry")
}
