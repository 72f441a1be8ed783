// Package commands implements the kmctl operator CLI.
package commands

import (
	"github.com/spf13/cobra"
)

var registryPath string

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "kmctl",
		Short:         "Operator tooling for the kredmitra server",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringVar(&registryPath, "registry", "configs/activity-registry.yaml", "path to the activity registry")

	root.AddCommand(registryCmd(), seedCmd(), altdataCmd(), verifyCmd())
	return root
}
