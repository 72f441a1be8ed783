package commands

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"kredmitra/pkg/registry"
)

func registryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Inspect the activity registry",
	}
	cmd.AddCommand(registryValidateCmd(), registryListCmd())
	return cmd
}

func registryValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the registry for structural problems",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(registryPath)
			if err != nil {
				return err
			}
			var doc registry.ActivityRegistry
			if err := yaml.Unmarshal(data, &doc); err != nil {
				return fmt.Errorf("decode registry: %w", err)
			}
			if problems := registry.Lint(&doc); len(problems) > 0 {
				for _, p := range problems {
					fmt.Fprintln(cmd.ErrOrStderr(), p)
				}
				return fmt.Errorf("%d problem(s) in %s", len(problems), registryPath)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d activities OK\n", registryPath, len(doc.Activities))
			return nil
		},
	}
}

func registryListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered activities",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.LoadRegistry(registryPath)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TASK TYPE\tCATEGORY\tTIMEOUT\tRETRIES\tERROR CODES")
			for _, a := range reg.Activities() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", a.TaskType, a.Category, a.Timeout, a.Retries, strings.Join(a.ErrorCodes, ","))
			}
			return w.Flush()
		},
	}
}
