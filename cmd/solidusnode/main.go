// Package main is the solidusnode CLI entrypoint: the node's flags,
// optional TOML config file, and run loop. Grounded on cmd/kcn/main.go's
// app/flags/Action shape (urfave/cli) and cmd/ranger/config.go's
// field-name-preserving TOML decoder settings, both trimmed down to this
// node's single fixed component set rather than klaytn's pluggable service
// registry.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli"

	"github.com/solidusnet/solidus/log"
	"github.com/solidusnet/solidus/nodectx"
)

const clientIdentifier = "solidusnode"

var logger = log.NewModuleLogger("cmd")

var (
	configFileFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	dataDirFlag = cli.StringFlag{
		Name:  "datadir",
		Usage: "data directory for the node's storage",
	}
	networkFlag = cli.StringFlag{
		Name:  "network",
		Usage: "network to join (mainnet, testnet, regnet)",
		Value: nodectx.DefaultConfig.Network,
	}
	peerTypeFlag = cli.StringFlag{
		Name:  "peertype",
		Usage: "this node's overlay role (seed, seed_gateway, service_provider, user)",
		Value: nodectx.DefaultConfig.PeerType,
	}
	portFlag = cli.IntFlag{
		Name:  "port",
		Usage: "listen port for peer connections",
		Value: nodectx.DefaultConfig.Port,
	}
	maxPeersFlag = cli.IntFlag{
		Name:  "maxpeers",
		Usage: "maximum number of simultaneous peer connections",
		Value: nodectx.DefaultConfig.MaxPeers,
	}
	poolDiffFlag = cli.IntFlag{
		Name:  "pooldiff",
		Usage: "mining pool share difficulty",
		Value: int(nodectx.DefaultConfig.PoolDiff),
	}
	debugFlag = cli.BoolFlag{
		Name:  "debug",
		Usage: "enable debug-level logging",
	}
)

func main() {
	app := cli.NewApp()
	app.Name = clientIdentifier
	app.Usage = "a solidus network node: chain sync, mempool, mining pool coordination, and overlay routing"
	app.Flags = []cli.Flag{
		configFileFlag,
		dataDirFlag,
		networkFlag,
		peerTypeFlag,
		portFlag,
		maxPeersFlag,
		poolDiffFlag,
		debugFlag,
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	log.Init(ctx.Bool(debugFlag.Name))

	cfg, err := buildConfig(ctx)
	if err != nil {
		return err
	}

	nc, err := nodectx.New(cfg)
	if err != nil {
		return fmt.Errorf("solidusnode: %w", err)
	}

	nc.Start()
	logger.Info("solidusnode running", "network", cfg.Network, "port", cfg.Port)

	waitForShutdown()

	logger.Info("shutting down")
	return nc.Stop()
}

// buildConfig loads defaults, overlays an optional TOML file, then applies
// any flags explicitly set on the command line, matching
// cmd/ranger/config.go's makeConfigRanger layering order (defaults, then
// file, then flags).
func buildConfig(ctx *cli.Context) (nodectx.Config, error) {
	cfg := nodectx.DefaultConfig

	if file := ctx.String(configFileFlag.Name); file != "" {
		loaded, err := loadConfigFile(file)
		if err != nil {
			return cfg, fmt.Errorf("solidusnode: load config file: %w", err)
		}
		cfg = loaded
	}

	if ctx.IsSet(dataDirFlag.Name) {
		cfg.DataDir = ctx.String(dataDirFlag.Name)
	}
	if ctx.IsSet(networkFlag.Name) {
		cfg.Network = ctx.String(networkFlag.Name)
	}
	if ctx.IsSet(peerTypeFlag.Name) {
		cfg.PeerType = ctx.String(peerTypeFlag.Name)
	}
	if ctx.IsSet(portFlag.Name) {
		cfg.Port = ctx.Int(portFlag.Name)
	}
	if ctx.IsSet(maxPeersFlag.Name) {
		cfg.MaxPeers = ctx.Int(maxPeersFlag.Name)
	}
	if ctx.IsSet(poolDiffFlag.Name) {
		cfg.PoolDiff = int64(ctx.Int(poolDiffFlag.Name))
	}
	return cfg, nil
}

func waitForShutdown() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
}
