package main

import (
	"fmt"

	"github.com/tkavi/p2pflood/internal/config"

	"github.com/spf13/cobra"
)

var configRootDir string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the roster (config.txt + topologia.txt)",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load config.txt and topologia.txt and report any inconsistency",
	RunE: func(cmd *cobra.Command, args []string) error {
		roster, err := config.Load(configRootDir)
		if err != nil {
			return err
		}
		ids := roster.IDs()
		fmt.Printf("roster OK: %d peer(s) under %s\n", len(ids), configRootDir)
		for _, id := range ids {
			p, _ := roster.Peer(id)
			fmt.Printf("  %d: %s:%d (stream %d), rate=%d B/s, %d neighbor(s)\n",
				p.ID, p.IP, p.ControlPort, p.StreamPort, p.AdvertisedRate, len(p.Neighbors))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.PersistentFlags().StringVarP(&configRootDir, "root", "r", ".", "Shared root directory holding config.txt and topologia.txt")
}
