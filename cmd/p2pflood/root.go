package main

import (
	"os"

	"github.com/tkavi/p2pflood/internal/logging"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "p2pflood",
	Short: "Flooded-discovery chunk-swarm file transfer",
	Long:  `A peer-to-peer file sharing engine built on a static neighbor graph, a TTL-flooded UDP discovery protocol, and a rate-paced stream transport.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logging.Sugar.Error(err)
		os.Exit(1)
	}
}
