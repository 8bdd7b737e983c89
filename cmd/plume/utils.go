// Copyright (c) 2025 The Plume developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/plumenetwork/plume/co"
	"github.com/plumenetwork/plume/kv"
	"github.com/plumenetwork/plume/log"
)

func defaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".plume")
	}
	return ""
}

func initLogger(ctx *cli.Context) {
	level := log.FromLegacyLevel(ctx.Int(verbosityFlag.Name))
	lvl := new(slog.LevelVar)
	lvl.Set(level)
	var handler slog.Handler
	if ctx.Bool(jsonLogsFlag.Name) {
		handler = log.JSONHandlerWithLevel(os.Stdout, lvl)
	} else {
		useColor := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
		handler = log.NewTerminalHandlerWithLevel(os.Stdout, lvl, useColor)
	}
	log.SetDefault(log.NewLogger(handler))
}

func loadEngineConfig(ctx *cli.Context) (*Config, error) {
	path := ctx.String(configFlag.Name)
	if path == "" {
		return nil, errors.New("--config is required")
	}
	return loadConfig(path)
}

func openDB(ctx *cli.Context) (kv.GetPutCloser, error) {
	if ctx.Bool(memFlag.Name) {
		logger.Info("using in-memory database")
		return kv.NewMem(), nil
	}
	dir := ctx.String(dataDirFlag.Name)
	if dir == "" {
		return nil, errors.New("--data-dir is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrap(err, "create data dir")
	}
	path := filepath.Join(dir, "staking.db")
	logger.Info("opening database", "path", path)
	return kv.OpenLevelDB(path, 128, 512)
}

type apiServer struct {
	srv  *http.Server
	goes co.Goes
}

func (s *apiServer) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		logger.Warn("api shutdown", "err", err)
	}
	s.goes.Wait()
}

func startAPIServer(ctx *cli.Context, handler http.Handler) (*apiServer, string, error) {
	addr := ctx.String(apiAddrFlag.Name)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, "", errors.Wrap(err, "listen API addr")
	}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	server := &apiServer{srv: srv}
	server.goes.Go(func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Error("api server", "err", err)
		}
	})
	return server, "http://" + listener.Addr().String() + "/", nil
}

func handleExitSignal() <-chan struct{} {
	done := make(chan struct{})
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		s := <-sig
		logger.Info("exit signal received", "signal", s)
		close(done)
	}()
	return done
}
