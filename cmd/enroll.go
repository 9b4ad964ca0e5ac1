package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <identity-key> <image>",
	Short: "Enroll a face under an identity key",
	Long: `Detect faces in an image and append the first one to the identity store.

The same key may be enrolled several times; every image adds another
reference record. A warning is printed when the face already matches a
different enrolled identity.

Examples:
  faceauth enroll 1234567890 voter.jpg
  faceauth enroll 1234567890 voter.jpg --json`,
	Args: cobra.ExactArgs(2),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().Bool("json", false, "Output as JSON")
}

func runEnroll(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")
	key, path := args[0], args[1]

	img, err := loadImage(path)
	if err != nil {
		return err
	}

	eng, err := openEngine(cmd.Context(), nil)
	if err != nil {
		return err
	}
	defer eng.Close()

	res, err := eng.enroller().Enroll(cmd.Context(), key, img)
	if err != nil {
		return fmt.Errorf("enrollment failed: %w", err)
	}

	if jsonOutput {
		return outputJSON(res)
	}

	fmt.Printf("Enrolled %q (%d records in store)\n", res.Record.IdentityKey, res.Records)
	if res.FacesDetected > 1 {
		fmt.Printf("Note: %d faces detected, the first one was used\n", res.FacesDetected)
	}
	if res.PossibleDuplicateOf != "" {
		fmt.Printf("Warning: face already matches %q (distance %.3f)\n", res.PossibleDuplicateOf, res.DuplicateDistance)
	}
	return nil
}

func outputJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}
