package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bft-labs/queueship/internal/adapters/fs"
	"github.com/bft-labs/queueship/internal/cliconfig"
)

func newStatusCommand(cfgPath *string) *cobra.Command {
	var statusFile string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the last status written by a running queueship",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := statusFile
			if path == "" {
				path = statusFileFromConfig(*cfgPath)
			}
			if path == "" {
				return fmt.Errorf("status-file is required")
			}

			snapshot, err := fs.NewStatusFileRepository(path).Load(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(snapshot)
		},
	}
	cmd.Flags().StringVar(&statusFile, "status-file", "", "status file to read (default: status_file from the config)")
	return cmd
}

// statusFileFromConfig returns status_file from the config file or
// QUEUESHIP_STATUS_FILE, whichever wins.
func statusFileFromConfig(cfgPath string) string {
	if v := os.Getenv(cliconfig.EnvPrefix + "STATUS_FILE"); v != "" {
		return v
	}
	if cfgPath == "" {
		cfgPath = cliconfig.DefaultConfigPath()
	}
	if cfgPath == "" || !cliconfig.FileExists(cfgPath) {
		return ""
	}
	fc, err := cliconfig.LoadFileConfig(cfgPath)
	if err != nil {
		return ""
	}
	return fc.StatusFile
}
