package cmd

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/nandhiniannika/online-voting/internal/verification"
)

// errNotVerified makes the command exit non-zero on a rejected claim.
var errNotVerified = errors.New("identity not verified")

var verifyCmd = &cobra.Command{
	Use:   "verify <identity-key>",
	Short: "Verify a claimed identity",
	Long: `Verify that the person in front of the camera is the claimed identity.

By default frames are read from the configured source for the session window
and the claim is accepted when the claimed identity is recognised at least
once. With --image a single photo is checked instead.

The command exits with status 1 when the claim is rejected.

Examples:
  # Live camera (FRAME_SOURCE=local)
  faceauth verify 1234567890

  # Remote MJPEG feed
  faceauth verify 1234567890 --source stream

  # Single image
  faceauth verify 1234567890 --image probe.jpg --json`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().String("image", "", "Verify a single image instead of a live source")
	verifyCmd.Flags().String("source", "", "Frame source: local or stream (defaults to FRAME_SOURCE)")
	verifyCmd.Flags().Bool("json", false, "Output as JSON")
}

func runVerify(cmd *cobra.Command, args []string) error {
	imagePath := mustGetString(cmd, "image")
	source := mustGetString(cmd, "source")
	jsonOutput := mustGetBool(cmd, "json")
	claimed := args[0]
	ctx := cmd.Context()

	eng, err := openEngine(ctx, nil)
	if err != nil {
		return err
	}
	defer eng.Close()

	verifier := eng.verifier()

	var verdict verification.Verdict
	if imagePath != "" {
		img, err := loadImage(imagePath)
		if err != nil {
			return err
		}
		verdict, err = verifier.VerifyImage(ctx, claimed, img)
		if err != nil {
			return fmt.Errorf("verification failed: %w", err)
		}
	} else {
		opener, err := eng.opener(source)
		if err != nil {
			return err
		}

		// Progress tracks elapsed window time (only for non-JSON output)
		var observer verification.Observer
		var bar *progressbar.ProgressBar
		if !jsonOutput {
			window := verifier.Settings.Window
			bar = progressbar.NewOptions(int(window/time.Millisecond),
				progressbar.OptionSetDescription("Looking for "+claimed),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowElapsedTimeOnFinish(),
				progressbar.OptionFullWidth(),
				progressbar.OptionClearOnFinish(),
			)
			observer = verification.ObserverFunc(func(ev verification.FrameEvent) {
				_ = bar.Set(int(ev.Elapsed / time.Millisecond))
			})
		}

		verdict, err = verifier.Verify(ctx, claimed, opener, observer)
		if bar != nil {
			_ = bar.Finish()
		}
		if err != nil {
			return fmt.Errorf("verification failed: %w", err)
		}
	}

	if jsonOutput {
		if err := outputJSON(verdict); err != nil {
			return err
		}
	} else {
		printVerdict(verdict)
	}

	if !verdict.Accepted() {
		return errNotVerified
	}
	return nil
}

func printVerdict(v verification.Verdict) {
	fmt.Printf("Identity:   %s\n", v.ClaimedIdentity)
	fmt.Printf("Outcome:    %s\n", v.Outcome)
	fmt.Printf("Frames:     %d processed, %d with faces, %d failed\n", v.FramesProcessed, v.FramesWithFaces, v.FramesFailed)
	fmt.Printf("Stopped:    %s after %s\n", v.StopReason, v.Elapsed.Round(time.Millisecond))
	if v.Match != nil {
		fmt.Printf("Nearest:    %s (distance %.3f)\n", v.Match.IdentityKey, v.Match.Distance)
	}

	if len(v.ObservationCounts) == 0 {
		fmt.Println("Recognised: nobody")
		return
	}
	keys := make([]string, 0, len(v.ObservationCounts))
	for k := range v.ObservationCounts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Println("Recognised:")
	for _, k := range keys {
		fmt.Printf("  %-20s %d\n", k, v.ObservationCounts[k])
	}
}
