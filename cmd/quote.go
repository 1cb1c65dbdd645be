package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marcoioli/proyecto-programacion3-grupo12/core/billing"
)

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Price fees and hospital stays with the configured catalog",
}

var feeOpts struct {
	specialty, postgrad, contract string
	base                          float64
}

var quoteFeeCmd = &cobra.Command{
	Use:   "fee",
	Short: "Doctor fee and billed consultation",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		var d billing.Doctor
		if d.Specialty, err = billing.ParseSpecialty(feeOpts.specialty); err != nil {
			return err
		}
		if d.Postgrad, err = billing.ParsePostgrad(feeOpts.postgrad); err != nil {
			return err
		}
		if d.Contract, err = billing.ParseContract(feeOpts.contract); err != nil {
			return err
		}
		base := cfg.Billing.AssignmentCost
		if feeOpts.base > 0 {
			base = feeOpts.base
		}
		fee := billing.NewFee(base, d).Amount()
		c := billing.Consultation{Doctor: d, Fee: fee}
		fmt.Fprintf(cmd.OutOrStdout(), "fee: %.2f\nconsultation: %.2f\n", fee, c.Subtotal())
		return nil
	},
}

var roomOpts struct {
	kind string
	days int
}

var quoteRoomCmd = &cobra.Command{
	Use:   "room",
	Short: "Hospital stay cost",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		r, err := billing.NewRoom(roomOpts.kind, "quote")
		if err != nil {
			return err
		}
		cost, err := cfg.Billing.StayCost(r, roomOpts.days)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s room, %d days: %.2f\n", r.Kind(), roomOpts.days, cost)
		return nil
	},
}

func init() {
	f := quoteFeeCmd.Flags()
	f.StringVar(&feeOpts.specialty, "specialty", "clinical", "clinical, surgery or pediatrics")
	f.StringVar(&feeOpts.postgrad, "postgrad", "none", "none, master or doctor")
	f.StringVar(&feeOpts.contract, "contract", "resident", "permanent or resident")
	f.Float64Var(&feeOpts.base, "base", 0, "base fee (default: catalog assignment cost)")

	r := quoteRoomCmd.Flags()
	r.StringVar(&roomOpts.kind, "kind", "shared", "shared, private or icu")
	r.IntVar(&roomOpts.days, "days", 1, "length of the stay")

	quoteCmd.AddCommand(quoteFeeCmd, quoteRoomCmd)
	rootCmd.AddCommand(quoteCmd)
}
