package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/tkavi/p2pflood/internal/config"
	"github.com/tkavi/p2pflood/internal/logging"
	"github.com/tkavi/p2pflood/internal/metrics"
	"github.com/tkavi/p2pflood/internal/peer"

	"github.com/spf13/cobra"
)

var (
	rootDir         string
	peerInteractive bool
)

var peerCmd = &cobra.Command{
	Use:   "peer <peer_id> <file_name> [file_name...]",
	Short: "Start a peer and search for the given files",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		peerID, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("peer id %q is not an integer", args[0])
		}
		files := args[1:]

		roster, err := config.Load(rootDir)
		if err != nil {
			return fmt.Errorf("load roster: %w", err)
		}

		identity, ok := roster.Peer(peerID)
		if !ok {
			return fmt.Errorf("peer %d absent from config.txt/topologia.txt under %s", peerID, rootDir)
		}

		p, err := peer.New(rootDir, identity)
		if err != nil {
			return fmt.Errorf("init peer %d: %w", peerID, err)
		}

		stop := make(chan struct{})
		go metrics.LogPeriodic(30*time.Second, stop)

		logging.Sugar.Infof("starting peer %d, searching for %v", peerID, files)
		if err := p.Start(files); err != nil {
			return fmt.Errorf("peer %d start: %w", peerID, err)
		}

		if peerInteractive {
			runShell(p)
			close(stop)
			return nil
		}

		select {}
	},
}

func init() {
	rootCmd.AddCommand(peerCmd)
	peerCmd.Flags().StringVarP(&rootDir, "root", "r", ".", "Shared root directory holding config.txt, topologia.txt, metadata sidecars and chunk directories")
	peerCmd.Flags().BoolVarP(&peerInteractive, "interactive", "i", false, "Drop into an interactive shell after starting")
}
