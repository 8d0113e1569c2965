package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/keshon/say-relay/internal/config"
	"github.com/keshon/say-relay/internal/storage"
	v "github.com/keshon/say-relay/internal/version"
	"github.com/keshon/say-relay/pkg/util"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [guild-id]",
	Short: "Show the latest commands run in a guild",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		records, err := store.GetCommandsHistory(args[0], historyLimit)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No commands recorded.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tUSER\tCHANNEL\tCOMMAND\tPARAM")
		for _, r := range records {
			fmt.Fprintf(w, "%s\t%s\t#%s\t%s\t%s\n",
				util.FormatDate(r.Datetime, "YYYY-MM-DD hh:mm:ss"),
				r.Username, r.ChannelName, r.Command, r.Param)
		}
		return w.Flush()
	},
}

var pruneKeep int

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Drop all but the newest history records of every guild",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		removed, err := store.PruneCommandsHistory(pruneKeep)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d records.\n", removed)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n%s\n", v.AppName, v.Version, v.Repository)
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of records to show")
	pruneCmd.Flags().IntVar(&pruneKeep, "keep", 500, "records to keep per guild")
}

func openStore() (*storage.Storage, error) {
	path := storagePath
	if path == "" {
		cfg, err := config.LoadStorage()
		if err != nil {
			return nil, err
		}
		path = cfg.StoragePath
	}
	return storage.New(path)
}
