package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/encodeous/routingd/config"
	"github.com/encodeous/routingd/control"
	"github.com/encodeous/routingd/decision"
	"github.com/encodeous/routingd/routetypes"
	"github.com/encodeous/tint"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:     "run",
	Short:   "Run the route-computation daemon",
	Long:    `Loads central and local config, then runs the Decision engine, reading a newline-delimited-JSON publication feed from stdin and printing route deltas to stdout.`,
	GroupID: "daemon",
	Run: func(cmd *cobra.Command, args []string) {
		centralCfg, err := config.LoadCentral(centralConfigPath)
		if err != nil {
			panic(err)
		}
		localCfg, err := config.LoadLocal(nodeConfigPath)
		if err != nil {
			panic(err)
		}
		if err := config.CentralConfigValidator(&centralCfg); err != nil {
			panic(err)
		}
		if err := config.LocalConfigValidator(&localCfg); err != nil {
			panic(err)
		}

		level := slog.LevelInfo
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			level = slog.LevelDebug
		}
		logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
			Level:        level,
			TimeFormat:   "15:04:05",
			CustomPrefix: localCfg.NodeName,
		}))

		areas := make([]routetypes.Area, 0, len(centralCfg.Areas))
		for _, a := range centralCfg.Areas {
			areas = append(areas, routetypes.Area(a))
		}

		pubCh, staticCh := control.ReadFeed(os.Stdin, logger)

		dec, err := decision.Start(routetypes.NodeName(localCfg.NodeName), localCfg, areas, control.JSONCodec{}, pubCh, staticCh, logger)
		if err != nil {
			panic(err)
		}

		srv, err := control.Serve(socketPath, dec, logger)
		if err != nil {
			panic(err)
		}
		defer srv.Close()

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

		go func() {
			for delta := range dec.Outbound() {
				enc, err := json.Marshal(delta)
				if err != nil {
					logger.Error("run: failed to encode route delta", "error", err)
					continue
				}
				fmt.Println(string(enc))
			}
		}()

		<-sig
		logger.Info("run: shutting down")
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolP("verbose", "v", false, "verbose output")
}
