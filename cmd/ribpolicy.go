package cmd

import (
	"fmt"
	"strings"

	"github.com/encodeous/routingd/control"
	"github.com/encodeous/routingd/ribpolicy"
	"github.com/encodeous/routingd/routetypes"
	"github.com/spf13/cobra"
)

var (
	ribPolicyTtlSecs       int32
	ribPolicyDefaultWeight int32
	ribPolicyArea0Weight   int32
	ribPolicyPrefixes      string
)

// setRibPolicyCmd installs a single-statement RIB policy, mirroring
// original_source/examples/SetRibPolicyExample.cpp's flag set: a
// default next-hop weight, an area0 override, a TTL, and a comma
// separated prefix matcher list.
var setRibPolicyCmd = &cobra.Command{
	Use:     "set-rib-policy",
	Short:   "Install a RIB policy with a single reweighting statement",
	GroupID: "policy",
	RunE: func(cmd *cobra.Command, args []string) error {
		var prefixes []string
		if ribPolicyPrefixes != "" {
			prefixes = strings.Split(ribPolicyPrefixes, ",")
		}
		policy := &ribpolicy.Policy{
			TtlSecs: ribPolicyTtlSecs,
			Statements: []ribpolicy.Statement{
				{
					Matcher: ribpolicy.Matcher{Prefixes: prefixes},
					Action: ribpolicy.ActionWeight{
						DefaultWeight: ribPolicyDefaultWeight,
						AreaWeight: map[routetypes.Area]int32{
							routetypes.Area("0"): ribPolicyArea0Weight,
						},
					},
				},
			},
		}
		status, err := control.Dial(socketPath).SetRibPolicy(policy)
		if err != nil {
			return err
		}
		fmt.Println(status)
		return nil
	},
}

var getRibPolicyCmd = &cobra.Command{
	Use:     "get-rib-policy",
	Short:   "Print the currently active RIB policy, if any",
	GroupID: "policy",
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := control.Dial(socketPath).GetRibPolicy()
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}

func init() {
	rootCmd.AddCommand(setRibPolicyCmd, getRibPolicyCmd)

	setRibPolicyCmd.Flags().Int32Var(&ribPolicyTtlSecs, "ttl_secs", 300, "policy lifetime in seconds")
	setRibPolicyCmd.Flags().Int32Var(&ribPolicyDefaultWeight, "default_weight", 1, "default next-hop weight")
	setRibPolicyCmd.Flags().Int32Var(&ribPolicyArea0Weight, "area0_weight", 1, "next-hop weight override for area 0")
	setRibPolicyCmd.Flags().StringVar(&ribPolicyPrefixes, "prefixes", "", "comma-separated CIDR prefixes to match, empty matches all")
}
