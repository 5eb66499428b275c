// main.go - Beldex storage server binary.
// Copyright (C) 2024  The Beldex Project.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/carlmjohnson/versioninfo"
	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/beldex-network/storage-server/server/config"
	"github.com/beldex-network/storage-server/internal/node"
)

// cliConfig holds the command line configuration.
type cliConfig struct {
	ConfigFile string
}

func newRootCommand() *cobra.Command {
	var cfg cliConfig

	cmd := &cobra.Command{
		Use:   "storage-server",
		Short: "Beldex storage server node",
		Long: `The Beldex storage server is a master-node component that stores and
relays end-to-end encrypted messages for the Beldex messaging network.

It accepts onion-wrapped client requests over HTTPS, decrypts and relays
each layer to the next hop over the message bus, and answers requests
addressed to it directly out of local storage.`,
		Example: `  # Start the node with the default configuration path
  storage-server

  # Start with an explicit config file
  storage-server --config /etc/beldex/storage-server.toml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfg)
		},
	}

	cmd.Flags().StringVarP(&cfg.ConfigFile, "config", "f", "storage-server.toml",
		"path to the storage server configuration file (TOML format)")

	return cmd
}

func main() {
	rootCmd := newRootCommand()

	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(versioninfo.Short()),
	); err != nil {
		os.Exit(1)
	}
}

func run(cli cliConfig) error {
	if os.Getenv("GOMAXPROCS") == "" {
		nProcs := runtime.GOMAXPROCS(0)
		nCPU := runtime.NumCPU()
		if nProcs < nCPU {
			runtime.GOMAXPROCS(nCPU)
		}
	}

	cfg, err := config.LoadFile(cli.ConfigFile)
	if err != nil {
		return fmt.Errorf("failed to load config file '%v': %v", cli.ConfigFile, err)
	}

	haltCh := make(chan os.Signal, 1)
	signal.Notify(haltCh, os.Interrupt, syscall.SIGTERM)

	n, err := node.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to start storage node: %v", err)
	}
	defer n.Shutdown()

	go func() {
		<-haltCh
		n.Shutdown()
	}()

	n.Wait()
	return nil
}
