package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/novywave/engine/internal/engineio"
	"github.com/novywave/engine/internal/nwconfig"
	"github.com/novywave/engine/internal/output"
)

// checkResult is the plain-text/JSON rendering of one health check, grounded
// on the teacher's tui/screens/doctor.go checkResult — rendered to a
// terminal line or a JSON array entry instead of a bubbletea screen, since
// `novywave doctor` is a one-shot CLI command, not a navigable view.
type checkResult struct {
	Name   string `json:"name"`
	Status string `json:"status"` // "ok", "warning", "error"
	Detail string `json:"detail"`
}

func addDoctorCommand(rootCmd *cobra.Command) {
	doctorCmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that the engine can start cleanly in this directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			checks := runDoctorChecks()

			if output.IsJSON() {
				return output.PrintJSON(cmd.OutOrStdout(), checks)
			}
			for _, c := range checks {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %-10s %s\n", symbolForCheck(c.Status), c.Name, c.Detail)
			}
			return nil
		},
	}
	rootCmd.AddCommand(doctorCmd)
}

func runDoctorChecks() []checkResult {
	var checks []checkResult

	store, err := openConfigStore()
	if err != nil {
		checks = append(checks, checkResult{Name: "Config", Status: "error", Detail: err.Error()})
	} else {
		defer store.Close()
		if ce := store.TakeCorruptError(); ce != nil {
			checks = append(checks, checkResult{Name: "Config", Status: "error", Detail: ce.Error()})
		} else {
			scope := "global"
			if store.IsProjectScoped() {
				scope = "project"
			}
			checks = append(checks, checkResult{Name: "Config", Status: "ok", Detail: fmt.Sprintf("%s (%s)", store.Path(), scope)})
		}
		checks = append(checks, checkPlugins(store.Snapshot().Plugins))
	}

	checks = append(checks, checkListenAddress(serveListenAddr))

	return checks
}

func checkPlugins(section nwconfig.PluginsSection) checkResult {
	if len(section.Entries) == 0 {
		return checkResult{Name: "Plugins", Status: "ok", Detail: "none declared"}
	}
	var missing int
	for _, e := range section.Entries {
		if !e.Enabled {
			continue
		}
		if _, err := os.Stat(e.ArtifactPath); err != nil {
			missing++
		}
	}
	if missing > 0 {
		return checkResult{Name: "Plugins", Status: "error", Detail: fmt.Sprintf("%d enabled artifact(s) missing on disk", missing)}
	}
	return checkResult{Name: "Plugins", Status: "ok", Detail: fmt.Sprintf("%d declared", len(section.Entries))}
}

func checkListenAddress(addr string) checkResult {
	ln, err := engineio.Listen(addr)
	if err != nil {
		return checkResult{Name: "Listen", Status: "error", Detail: fmt.Sprintf("%s: %v", addr, err)}
	}
	ln.Close()
	return checkResult{Name: "Listen", Status: "ok", Detail: addr}
}

func symbolForCheck(status string) string {
	switch status {
	case "ok":
		return "✓"
	case "warning":
		return "⚠"
	default:
		return "✗"
	}
}
