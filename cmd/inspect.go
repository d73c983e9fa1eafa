package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/encodeous/routingd/control"
	"github.com/encodeous/routingd/routetypes"
	"github.com/spf13/cobra"
)

func printJSON(v any) error {
	enc, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(enc))
	return nil
}

var routeDbCmd = &cobra.Command{
	Use:     "route-db",
	Short:   "Dump the locally computed RouteDb",
	GroupID: "inspect",
	RunE: func(cmd *cobra.Command, args []string) error {
		rdb, err := control.Dial(socketPath).RouteDb()
		if err != nil {
			return err
		}
		return printJSON(rdb)
	},
}

var staticRoutesCmd = &cobra.Command{
	Use:     "static-routes",
	Short:   "Dump the configured static MPLS routes",
	GroupID: "inspect",
	RunE: func(cmd *cobra.Command, args []string) error {
		routes, err := control.Dial(socketPath).StaticRoutes()
		if err != nil {
			return err
		}
		return printJSON(routes)
	},
}

var adjacencyDbsCmd = &cobra.Command{
	Use:     "adjacency-dbs [area]",
	Short:   "Dump per-area adjacency databases",
	Args:    cobra.MaximumNArgs(1),
	GroupID: "inspect",
	RunE: func(cmd *cobra.Command, args []string) error {
		var area routetypes.Area
		if len(args) == 1 {
			area = routetypes.Area(args[0])
		}
		dbs, err := control.Dial(socketPath).AdjacencyDbs(area)
		if err != nil {
			return err
		}
		return printJSON(dbs)
	},
}

var prefixDbsCmd = &cobra.Command{
	Use:     "prefix-dbs",
	Short:   "Dump the global prefix advertisement table",
	GroupID: "inspect",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbs, err := control.Dial(socketPath).PrefixDbs()
		if err != nil {
			return err
		}
		return printJSON(dbs)
	},
}

func init() {
	rootCmd.AddCommand(routeDbCmd, staticRoutesCmd, adjacencyDbsCmd, prefixDbsCmd)
}
