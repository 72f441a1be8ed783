package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"kredmitra/internal/verification"
)

func verifyCmd() *cobra.Command {
	var name, aadhaar, phone, account string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check an identity tuple against the verification registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !verification.VerifyUser(name, aadhaar, phone, account) {
				return fmt.Errorf("identity not verified")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "identity verified")
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "full name")
	cmd.Flags().StringVar(&aadhaar, "aadhaar", "", "12-digit Aadhaar number")
	cmd.Flags().StringVar(&phone, "phone", "", "10-digit mobile number")
	cmd.Flags().StringVar(&account, "account", "", "bank account number")
	return cmd
}
