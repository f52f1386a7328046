// Package cli define los comandos de roadsphere.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version se fija en build con -ldflags
var version = "dev"

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "roadsphere",
	Short: "RoadSphere - road safety scenario analysis",
	Long: `RoadSphere analyzes road scenarios with Gemini, renders the road scene
with the recommended interventions and answers questions about uploaded data.

Run "roadsphere serve" to start the web site.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configPath != "" {
			return os.Setenv("ROADSPHERE_CONFIG", configPath)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (default: $ROADSPHERE_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	rootCmd.Version = version

	rootCmd.AddCommand(serveCmd, analyzeCmd, chatCmd, renderCmd, mcpCmd)
}

// Execute corre el comando raíz
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
