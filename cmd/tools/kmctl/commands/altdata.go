package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"kredmitra/internal/altdata"
)

func altdataCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "altdata",
		Short: "Encode and decode alternative-data records",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "encrypt <json>",
		Short: "Encrypt a JSON record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var v interface{}
			if err := json.Unmarshal([]byte(args[0]), &v); err != nil {
				return fmt.Errorf("record is not valid JSON: %w", err)
			}
			blob, err := altdata.Encrypt(v)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), blob)
			return nil
		},
	}, &cobra.Command{
		Use:   "decrypt <blob>",
		Short: "Decrypt a record back to JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var v interface{}
			if err := altdata.Decrypt(args[0], &v); err != nil {
				return err
			}
			out, err := json.MarshalIndent(v, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	})
	return cmd
}
