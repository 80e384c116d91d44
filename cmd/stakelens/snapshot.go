package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"stakelens/internal/aggregator"
)

func snapshotCmd(g *globals) *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "snapshot <token>",
		Short: "Aggregate one project at the latest block and print it as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := parseAddress("token", args[0])
			if err != nil {
				return err
			}
			req := aggregator.Request{Token: token}
			if user != "" {
				if req.User, err = parseAddress("user", user); err != nil {
					return err
				}
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, g)
			if err != nil {
				return err
			}

			snap, err := a.aggregator.Aggregate(ctx, req)
			if err != nil {
				return err
			}
			if len(snap.Defaulted) > 0 {
				g.log.WithField("fields", snap.Defaulted).Warn("some reads failed, defaults used")
			}
			return printJSON(snap)
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "include this address's staking position")
	return cmd
}

func parseAddress(name, v string) (common.Address, error) {
	if !common.IsHexAddress(v) {
		return common.Address{}, fmt.Errorf("invalid %s address %q", name, v)
	}
	return common.HexToAddress(v), nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
