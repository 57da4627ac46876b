// Command orgdesk runs the organizational workflow backend and its
// administration CLI.
package main

import (
	"fmt"
	"os"

	"github.com/orgdesk/orgdesk/cmd/orgdesk/cli"
)

// Build identity, stamped by the release pipeline via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := cli.Execute(version, commit, date); err != nil {
		fmt.Fprintln(os.Stderr, "orgdesk:", err)
		os.Exit(1)
	}
}
