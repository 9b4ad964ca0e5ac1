package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "faceauth",
	Short: "Face enrollment and verification for voter authentication",
	Long: `faceauth enrolls voters by face and verifies a claimed identity
against a live camera or MJPEG stream before a vote is cast.

Configuration is read from the environment (a .env file in the working
directory is loaded when present). See "faceauth serve --help" for the
HTTP API.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
