package main

import (
	"errors"

	"github.com/spf13/cobra"
)

func allocationCmd(g *globals) *cobra.Command {
	var table string

	cmd := &cobra.Command{
		Use:   "allocation <token> <claimant>",
		Short: "Resolve a claimant's treasury allocation against the amount table",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := parseAddress("token", args[0])
			if err != nil {
				return err
			}
			claimant, err := parseAddress("claimant", args[1])
			if err != nil {
				return err
			}
			if table == "" {
				table = g.cfg.AllocationTable
			}
			if table == "" {
				return errors.New("allocation table required (--table or STAKELENS_ALLOCATION_TABLE)")
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, g)
			if err != nil {
				return err
			}
			resolver, err := a.resolver(g, table)
			if err != nil {
				return err
			}

			addrs, err := a.aggregator.Lookup(ctx, token)
			if err != nil {
				return err
			}
			res, err := resolver.Resolve(ctx, addrs.Treasury, token, claimant)
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}
	cmd.Flags().StringVar(&table, "table", "", "allocation amount table (YAML)")
	return cmd
}
