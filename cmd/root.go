package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	nodeConfigPath    = "node.yaml"
	centralConfigPath = "central.yaml"
	socketPath        = "/var/run/routingd/routingd.sock"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "routingd",
	Short: "Link-state route computation daemon",
	Long: `routingd computes best paths, ECMP/KSP2 groups, and MPLS label-switched
routes from a link-state database and a global prefix advertisement table,
the way an IGP's route-computation core does.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Called once from main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddGroup(&cobra.Group{ID: "daemon", Title: "Daemon"})
	rootCmd.AddGroup(&cobra.Group{ID: "inspect", Title: "Inspection"})
	rootCmd.AddGroup(&cobra.Group{ID: "policy", Title: "RIB Policy"})

	rootCmd.PersistentFlags().StringVarP(&nodeConfigPath, "node-config", "n", nodeConfigPath, "node-specific config")
	rootCmd.PersistentFlags().StringVarP(&centralConfigPath, "central-config", "c", centralConfigPath, "network-global config")
	rootCmd.PersistentFlags().StringVarP(&socketPath, "socket", "s", socketPath, "control socket path")
}
