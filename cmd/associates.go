package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/marcoioli/proyecto-programacion3-grupo12/core/associates"
	"github.com/marcoioli/proyecto-programacion3-grupo12/infra/store"
)

var associatesCmd = &cobra.Command{
	Use:     "associates",
	Aliases: []string{"asoc"},
	Short:   "Manage registered associates",
}

var associatesLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List associates",
	RunE: withStore(func(cmd *cobra.Command, st *store.AssociateStore, _ []string) error {
		list, err := st.List(cmd.Context())
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "DNI\tNAME\tADDRESS\tPHONE\tCITY")
		for _, a := range list {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", a.DNI, a.FullName(), a.Address, a.Phone, a.City)
		}
		return tw.Flush()
	}),
}

var newAssociate associates.Associate

var associatesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register an associate",
	RunE: withStore(func(cmd *cobra.Command, st *store.AssociateStore, _ []string) error {
		a := newAssociate.Normalize()
		if err := a.Validate(); err != nil {
			return err
		}
		if err := st.Save(cmd.Context(), a); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "added %s (%s)\n", a.DNI, a.FullName())
		return nil
	}),
}

var associatesRmCmd = &cobra.Command{
	Use:   "rm DNI...",
	Short: "Remove associates",
	Args:  cobra.MinimumNArgs(1),
	RunE: withStore(func(cmd *cobra.Command, st *store.AssociateStore, args []string) error {
		for _, dni := range args {
			if err := st.Delete(cmd.Context(), dni); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", dni)
		}
		return nil
	}),
}

var associatesInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Recreate the associates table with the example rows",
	RunE: withStore(func(cmd *cobra.Command, st *store.AssociateStore, _ []string) error {
		if err := st.Reset(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "associates table initialized")
		return nil
	}),
}

func withStore(fn func(*cobra.Command, *store.AssociateStore, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		st, err := store.NewAssociateStore(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()
		if cmd.Context() == nil {
			cmd.SetContext(context.Background())
		}
		return fn(cmd, st, args)
	}
}

func init() {
	f := associatesAddCmd.Flags()
	f.StringVar(&newAssociate.DNI, "dni", "", "DNI (required)")
	f.StringVar(&newAssociate.FirstName, "first-name", "", "first name (required)")
	f.StringVar(&newAssociate.LastName, "last-name", "", "last name (required)")
	f.StringVar(&newAssociate.Address, "address", "", "address")
	f.StringVar(&newAssociate.Phone, "phone", "", "phone")
	f.StringVar(&newAssociate.City, "city", "", "city")
	_ = associatesAddCmd.MarkFlagRequired("dni")

	associatesCmd.AddCommand(associatesLsCmd, associatesAddCmd, associatesRmCmd, associatesInitCmd)
	rootCmd.AddCommand(associatesCmd)
}
