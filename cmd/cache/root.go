package cache

import (
	"fmt"

	cmdUtil "github.com/ValentinKolb/dDAP/cmd/util"
	"github.com/ValentinKolb/dDAP/lib/cache"
	"github.com/ValentinKolb/dDAP/lib/store"
	"github.com/ValentinKolb/dDAP/lib/store/lstore"
	"github.com/ValentinKolb/dDAP/lib/store/mstore"
	"github.com/ValentinKolb/dDAP/rpc/server"
	"github.com/spf13/cobra"
)

var (
	responseCache cache.IResponseCache

	// CacheCommands represents the cache command group
	CacheCommands = &cobra.Command{
		Use:               "cache",
		Short:             "Inspect and maintain the function result cache",
		PersistentPreRunE: openCache,
	}
	infoCmd = &cobra.Command{
		Use:   "info",
		Short: "Print the size and the entries of the cache directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := responseCache.Stats()
			if err != nil {
				return err
			}
			fmt.Printf("%-18s: %s\n", "Directory", stats.Dir)
			fmt.Printf("%-18s: %d\n", "Entries", stats.Entries)
			fmt.Printf("%-18s: %s\n", "Size", formatBytes(stats.TotalBytes))
			fmt.Printf("%-18s: %s\n", "Accounted Size", formatBytes(stats.AccountedBytes))
			if stats.LimitBytes > 0 {
				fmt.Printf("%-18s: %s (%.1f%% used)\n", "Size Limit", formatBytes(stats.LimitBytes),
					100*float64(stats.TotalBytes)/float64(stats.LimitBytes))
			} else {
				fmt.Printf("%-18s: unlimited\n", "Size Limit")
			}
			return nil
		},
	}
	purgeCmd = &cobra.Command{
		Use:   "purge",
		Short: "Remove empty entries and, if the cache is over its size limit, the oldest entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			before, err := responseCache.Stats()
			if err != nil {
				return err
			}
			if err := responseCache.Purge(); err != nil {
				return err
			}
			after, err := responseCache.Stats()
			if err != nil {
				return err
			}
			fmt.Printf("purged %d entries (%s), %d entries left\n",
				before.Entries-after.Entries, formatBytes(before.TotalBytes-after.TotalBytes), after.Entries)
			return nil
		},
	}
	clearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Remove every entry that is not in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := responseCache.Clear()
			if err != nil {
				return err
			}
			fmt.Printf("removed %d entries\n", n)
			return nil
		},
	}
)

func init() {
	cmdUtil.SetupServerFlags(CacheCommands)

	CacheCommands.AddCommand(infoCmd)
	CacheCommands.AddCommand(purgeCmd)
	CacheCommands.AddCommand(clearCmd)
}

// openCache opens the cache the server would use with the same flags
func openCache(cmd *cobra.Command, _ []string) error {
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}
	config := cmdUtil.GetServerConfig()
	if !config.CacheEnabled() {
		return fmt.Errorf("the cache is disabled (--cache-dir is empty)")
	}

	// maintenance never opens a dataset
	var datasets store.IDatasetStore = mstore.NewMemoryStore()
	if local, err := lstore.NewLocalStore(config.DataDir); err == nil {
		datasets = local
	}
	serv, err := server.NewDAPServer(config, nil, datasets, nil)
	if err != nil {
		return err
	}
	responseCache = serv.Cache()
	return nil
}

// formatBytes prints a size with a binary unit
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
