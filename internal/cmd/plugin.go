package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/novywave/engine/internal/nwconfig"
	"github.com/novywave/engine/internal/output"
)

// pluginListingEntry is the JSON shape of `novywave plugin list`.
type pluginListingEntry struct {
	ID           string `json:"id"`
	Enabled      bool   `json:"enabled"`
	ArtifactPath string `json:"artifact_path"`
}

func addPluginCommands(rootCmd *cobra.Command) {
	pluginCmd := &cobra.Command{
		Use:   "plugin",
		Short: "Manage declared plugins in the config document",
		Args:  cobra.NoArgs,
	}

	pluginListCmd := &cobra.Command{
		Use:   "list",
		Short: "List every declared plugin and its enabled state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openConfigStore()
			if err != nil {
				return err
			}
			defer store.Close()

			section := store.Snapshot().Plugins
			ids := make([]string, 0, len(section.Entries))
			for id := range section.Entries {
				ids = append(ids, id)
			}
			sort.Strings(ids)

			if output.IsJSON() {
				listing := make([]pluginListingEntry, 0, len(ids))
				for _, id := range ids {
					e := section.Entries[id]
					listing = append(listing, pluginListingEntry{ID: id, Enabled: e.Enabled, ArtifactPath: e.ArtifactPath})
				}
				return output.PrintJSON(cmd.OutOrStdout(), listing)
			}
			if len(ids) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "(no plugins declared)")
				return nil
			}
			for _, id := range ids {
				e := section.Entries[id]
				state := "disabled"
				if e.Enabled {
					state = "enabled"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-20s %-10s %s\n", id, state, e.ArtifactPath)
			}
			return nil
		},
	}

	pluginEnableCmd := &cobra.Command{
		Use:   "enable <ID>",
		Short: "Enable a declared plugin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setPluginEnabled(cmd, args[0], true)
		},
	}

	pluginDisableCmd := &cobra.Command{
		Use:   "disable <ID>",
		Short: "Disable a declared plugin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setPluginEnabled(cmd, args[0], false)
		},
	}

	pluginCmd.AddCommand(pluginListCmd, pluginEnableCmd, pluginDisableCmd)
	rootCmd.AddCommand(pluginCmd)
}

func setPluginEnabled(cmd *cobra.Command, id string, enabled bool) error {
	store, err := openConfigStore()
	if err != nil {
		return err
	}
	defer store.Close()

	var found bool
	store.Mutate(nwconfig.ClassImmediate, func(doc *nwconfig.Document) {
		entry, ok := doc.Plugins.Entries[id]
		if !ok {
			return
		}
		found = true
		entry.Enabled = enabled
		doc.Plugins.Entries[id] = entry
	})
	if !found {
		return fmt.Errorf("no plugin declared with id %q", id)
	}
	if !output.IsQuiet() {
		state := "disabled"
		if enabled {
			state = "enabled"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", id, state)
	}
	return nil
}
