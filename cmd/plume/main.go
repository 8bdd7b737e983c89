// Copyright (c) 2025 The Plume developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"math/big"
	"os"
	"time"

	cli "gopkg.in/urfave/cli.v1"

	"github.com/plumenetwork/plume/api"
	"github.com/plumenetwork/plume/health"
	"github.com/plumenetwork/plume/log"
	"github.com/plumenetwork/plume/metrics"
	"github.com/plumenetwork/plume/staking"
	"github.com/plumenetwork/plume/staking/registry"
)

var (
	version   string
	gitCommit string
	gitTag    string

	logger = log.WithContext("pkg", "main")
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func main() {
	app := cli.App{
		Version:   fullVersion(),
		Name:      "Plume",
		Usage:     "Plume staking ledger & withdrawal-queue engine",
		Copyright: "2025 The Plume developers",
		Flags: []cli.Flag{
			dataDirFlag,
			memFlag,
			configFlag,
			apiAddrFlag,
			apiCorsFlag,
			verbosityFlag,
			jsonLogsFlag,
			enableMetricsFlag,
		},
		Action: defaultAction,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// staticSource serves the validator set pinned in the config file as the
// external registry.
type staticSource struct {
	validators []registry.Validator
}

func (s *staticSource) Validators() ([]registry.Validator, error) {
	return s.validators, nil
}

func defaultAction(ctx *cli.Context) error {
	initLogger(ctx)
	if ctx.Bool(enableMetricsFlag.Name) {
		metrics.InitializePrometheusMetrics()
	}

	cfg, err := loadEngineConfig(ctx)
	if err != nil {
		return err
	}

	db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer func() {
		logger.Info("closing database...")
		if err := db.Close(); err != nil {
			logger.Warn("database close", "err", err)
		}
	}()

	source := &staticSource{}
	for _, v := range cfg.Validators {
		source.validators = append(source.validators, registry.Validator{
			ID:            registry.ID(v.ID),
			CommissionBps: v.CommissionBps,
			TotalStaked:   new(big.Int),
			Active:        true,
			AddedAt:       uint64(time.Now().Unix()),
		})
	}

	admins, err := parseAddrs(cfg.Admins)
	if err != nil {
		return err
	}
	operators, err := parseAddrs(cfg.Operators)
	if err != nil {
		return err
	}
	auth := staking.NewStaticAuthorizer(admins, operators)

	minter, err := staking.New(db, source, auth)
	if err != nil {
		return err
	}
	defer minter.Close()

	if err := cfg.apply(minter, uint64(time.Now().Unix())); err != nil {
		return err
	}

	h := health.New(func() error {
		_, err := minter.Config()
		return err
	})
	handler := api.New(minter, h, api.Options{
		AllowedOrigins: ctx.String(apiCorsFlag.Name),
		EnableMetrics:  ctx.Bool(enableMetricsFlag.Name),
	})
	srv, apiURL, err := startAPIServer(ctx, handler)
	if err != nil {
		return err
	}
	defer func() {
		logger.Info("stopping API server...")
		srv.shutdown()
	}()

	logger.Info("engine started", "version", fullVersion(), "api", apiURL)
	<-handleExitSignal()
	return nil
}
