package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	dataDir string
)

// Execute creates the root command tree and runs it.
func Execute(version, commit, date string) error {
	rootCmd := newRootCmd(version, commit, date)
	return rootCmd.Execute()
}

func newRootCmd(version, commit, date string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orgdesk",
		Short: "Organizational workflow backend with role-based access control",
		Long: `Orgdesk manages tasks, meetings, checklists, and reports for a
structured organization. Every operation is gated by a role/permission
matrix with locality and specialty scoping; the matrix itself can be
exported, reviewed, and re-imported as a document.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./orgdesk.yaml)")
	cmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory for the SQLite database (default: ~/.orgdesk)")

	cobra.OnInitialize(initConfig)

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newVersionCmd(version, commit, date))
	cmd.AddCommand(newUserCmd())
	cmd.AddCommand(newRoleCmd())
	cmd.AddCommand(newMatrixCmd())

	return cmd
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("orgdesk")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.orgdesk")
	}

	viper.SetEnvPrefix("ORGDESK")
	viper.AutomaticEnv()
	viper.ReadInConfig() // Ignore error - config file is optional
}
