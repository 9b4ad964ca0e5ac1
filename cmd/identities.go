package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var identitiesCmd = &cobra.Command{
	Use:   "identities",
	Short: "Inspect the identity store",
}

var identitiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enrolled identities",
	Long: `List enrolled identity keys with their record counts, in the order
they were first enrolled.`,
	Args: cobra.NoArgs,
	RunE: runIdentitiesList,
}

func init() {
	rootCmd.AddCommand(identitiesCmd)
	identitiesCmd.AddCommand(identitiesListCmd)

	identitiesListCmd.Flags().Bool("json", false, "Output as JSON")
}

type identityRow struct {
	IdentityKey string `json:"identity_key"`
	Records     int    `json:"records"`
}

func runIdentitiesList(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")

	eng, err := openEngine(cmd.Context(), nil)
	if err != nil {
		return err
	}
	defer eng.Close()

	snap := eng.store.Snapshot()
	counts := snap.KeyCounts()
	rows := make([]identityRow, 0, len(counts))
	seen := make(map[string]bool, len(counts))
	for _, key := range snap.Keys() {
		if seen[key] {
			continue
		}
		seen[key] = true
		rows = append(rows, identityRow{IdentityKey: key, Records: counts[key]})
	}

	if jsonOutput {
		return outputJSON(map[string]any{
			"identities":    rows,
			"total_records": snap.Len(),
			"dimension":     snap.Dim(),
			"backend":       eng.store.BackendName(),
		})
	}

	if len(rows) == 0 {
		fmt.Printf("No identities enrolled (%s backend)\n", eng.store.BackendName())
		return nil
	}
	fmt.Printf("%-30s %s\n", "IDENTITY", "RECORDS")
	for _, r := range rows {
		fmt.Printf("%-30s %d\n", r.IdentityKey, r.Records)
	}
	fmt.Printf("\n%d identities, %d records, dimension %d (%s backend)\n",
		len(rows), snap.Len(), snap.Dim(), eng.store.BackendName())
	return nil
}
