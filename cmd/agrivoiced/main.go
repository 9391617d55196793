package main

import (
	"fmt"
	"os"

	"github.com/agrivoice/agrivoice/internal/cli"
	"github.com/agrivoice/agrivoice/internal/cli/admin"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "agrivoiced",
		Short: "Agrivoice knowledge daemon and CLI",
		Long:  "Agrivoice daemon for running the knowledge API server and managing the indexed source corpus",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.IngestCmd())
	rootCmd.AddCommand(admin.SearchCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
