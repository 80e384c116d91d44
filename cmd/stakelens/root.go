package main

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"stakelens/internal/config"
)

// globals filled by the root command before any subcommand runs.
type globals struct {
	envFile   string
	rpcURL    string
	factory   string
	chainID   uint64
	logLevel  string
	logFormat string

	cfg *config.Config
	log *logrus.Logger
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:          "stakelens",
		Short:        "On-chain staking project aggregation and derived metrics",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return g.load(cmd)
		},
	}

	g.bindFlags(root.PersistentFlags())

	root.AddCommand(snapshotCmd(g), allocationCmd(g), serveCmd(g))
	return root
}

func (g *globals) bindFlags(pf *pflag.FlagSet) {
	pf.StringVar(&g.envFile, "env-file", ".env", "file with KEY=VALUE defaults")
	pf.StringVar(&g.rpcURL, "rpc-url", "", "JSON-RPC HTTP endpoint (overrides STAKELENS_RPC_URL)")
	pf.StringVar(&g.factory, "factory", "", "project factory address (overrides STAKELENS_FACTORY_ADDRESS)")
	pf.Uint64Var(&g.chainID, "chain-id", 0, "chain id; 0 asks the node")
	pf.StringVar(&g.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&g.logFormat, "log-format", "", "log format (json, text)")
}

// load reads env, applies flag overrides and builds the logger.
func (g *globals) load(cmd *cobra.Command) error {
	if err := config.LoadEnvFile(g.envFile); err != nil {
		return fmt.Errorf("load %s: %w", g.envFile, err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("rpc-url") {
		cfg.RPCURL = g.rpcURL
	}
	if flags.Changed("factory") {
		if !common.IsHexAddress(g.factory) {
			return fmt.Errorf("invalid --factory %q", g.factory)
		}
		cfg.Factory = common.HexToAddress(g.factory)
	}
	if flags.Changed("chain-id") {
		cfg.ChainID = g.chainID
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = g.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = g.logFormat
	}

	log, err := newLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	g.cfg = cfg
	g.log = log
	return nil
}

func newLogger(level, format string) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(os.Stderr)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	log.SetLevel(lvl)

	switch format {
	case "text":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	return log, nil
}
