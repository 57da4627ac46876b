package cli

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// versionInfo is the build identity stamped into the binary via -ldflags,
// plus the runtime it is executing on.
type versionInfo struct {
	Version  string `json:"version"`
	Commit   string `json:"commit"`
	Built    string `json:"built"`
	Go       string `json:"go_version"`
	Platform string `json:"platform"`
}

// newVersionCmd prints the build identity, human-readable by default or as
// JSON for scripts.
func newVersionCmd(version, commit, date string) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build and runtime information",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := versionInfo{
				Version:  version,
				Commit:   commit,
				Built:    date,
				Go:       runtime.Version(),
				Platform: runtime.GOOS + "/" + runtime.GOARCH,
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}

			fmt.Fprintf(out, "orgdesk %s (commit %s, built %s)\n", info.Version, info.Commit, info.Built)
			fmt.Fprintf(out, "%s on %s\n", info.Go, info.Platform)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")

	return cmd
}
