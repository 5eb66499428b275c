// config.go - Storage node configuration.
// Copyright (C) 2017  Yawning Angel and David Stainton.
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

// Package config provides the storage node's TOML configuration file
// format: the network-facing listener settings, data directory layout,
// and the handful of debug knobs a node operator needs.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	defaultIP             = "0.0.0.0"
	defaultPort           = 22021
	defaultBusPort        = 22022
	defaultLogLevel       = "NOTICE"
	defaultCertFile       = "cert.pem"
	defaultKeyFile        = "key.pem"
	defaultDHFile         = "dh.pem"
	defaultLegacyKeyFile  = "key_legacy"
	defaultEd25519KeyFile = "key_ed25519"
	defaultX25519KeyFile  = "key_x25519"
)

// Server is the storage node's network-facing configuration.
type Server struct {
	// IP is the address the HTTPS onion-request listener binds to.
	// Binding to a loopback address is rejected: a storage node with no
	// public listener can never serve swarm traffic, which the startup
	// admission guard treats as a fatal misconfiguration rather than a
	// silently half-working node.
	IP string `toml:"ip"`

	// Port is the HTTPS listener port that accepts POST /onion_req/v2.
	Port uint16 `toml:"port"`

	// BusPort is the message-bus listener port that accepts
	// mn.onion_req_v2 relay commands from peer nodes.
	BusPort uint16 `toml:"bus_port"`

	// DataDir is the absolute path to the node's state directory: its
	// long-term keys and TLS material.
	DataDir string `toml:"data_dir"`

	// Testnet marks the node as running on testnet. It is loaded and
	// stored only; no other package reads it.
	Testnet bool `toml:"testnet"`

	// BeldexdRPC is the base URL of the beldexd RPC endpoint. It is
	// loaded and stored only; the node opens no beldexd connection.
	BeldexdRPC string `toml:"beldexd_rpc"`

	// ForceStart is loaded and stored only; the node performs no
	// registration or sync checks at startup for it to skip.
	ForceStart bool `toml:"force_start"`
}

func (sCfg *Server) applyDefaults() {
	if sCfg.IP == "" {
		sCfg.IP = defaultIP
	}
	if sCfg.Port == 0 {
		sCfg.Port = defaultPort
	}
	if sCfg.BusPort == 0 {
		sCfg.BusPort = defaultBusPort
	}
}

func (sCfg *Server) validate() error {
	if sCfg.DataDir == "" {
		return errors.New("config: Server: DataDir is not set")
	}
	if !filepath.IsAbs(sCfg.DataDir) {
		return fmt.Errorf("config: Server: DataDir '%v' is not an absolute path", sCfg.DataDir)
	}

	ip := net.ParseIP(sCfg.IP)
	if ip == nil {
		return fmt.Errorf("config: Server: IP '%v' is not a valid address", sCfg.IP)
	}
	if ip.IsLoopback() {
		return fmt.Errorf("config: Server: IP '%v' is a loopback address; a storage node must bind a publicly reachable address", sCfg.IP)
	}
	if sCfg.Port == sCfg.BusPort {
		return errors.New("config: Server: Port and BusPort must differ")
	}
	return nil
}

// Logging is the storage node's logging configuration. The level is
// validated and normalized here; no package applies these settings to
// the logging backend.
type Logging struct {
	// Disable disables logging entirely.
	Disable bool `toml:"disable"`

	// File specifies the log file; if omitted stdout is used.
	File string `toml:"file"`

	// Level specifies the log level: ERROR, WARNING, NOTICE, INFO, or DEBUG.
	Level string `toml:"log_level"`
}

func (lCfg *Logging) validate() error {
	lvl := strings.ToUpper(lCfg.Level)
	switch lvl {
	case "ERROR", "WARNING", "NOTICE", "INFO", "DEBUG":
	case "":
		lvl = defaultLogLevel
	default:
		return fmt.Errorf("config: Logging: Level '%v' is invalid", lCfg.Level)
	}
	lCfg.Level = lvl
	return nil
}

// Debug holds knobs that only make sense for testing or diagnosing a
// running node; none of these have a supported reason to be set in
// production.
type Debug struct {
	// DisableRateLimit disables the token-bucket admission filter.
	DisableRateLimit bool `toml:"disable_rate_limit"`

	// FixedEncType names a ciphersuite for the node's own outbound hops.
	// It is loaded and stored only; the node builds no outbound onion
	// requests of its own, so nothing reads it.
	FixedEncType string `toml:"fixed_enc_type"`
}

// KeyFiles holds the on-disk paths for the node's three long-term
// keypairs, all relative to DataDir unless already absolute.
type KeyFiles struct {
	Legacy  string `toml:"legacy"`
	Ed25519 string `toml:"ed25519"`
	X25519  string `toml:"x25519"`
}

func (k *KeyFiles) applyDefaults(dataDir string) {
	if k.Legacy == "" {
		k.Legacy = filepath.Join(dataDir, defaultLegacyKeyFile)
	}
	if k.Ed25519 == "" {
		k.Ed25519 = filepath.Join(dataDir, defaultEd25519KeyFile)
	}
	if k.X25519 == "" {
		k.X25519 = filepath.Join(dataDir, defaultX25519KeyFile)
	}
}

// TLS holds the on-disk paths for the node's HTTPS certificate material.
// The certificate and key are generated on first startup if absent;
// DHFile is given a default path but is never read or generated.
type TLS struct {
	CertFile string `toml:"cert_file"`
	KeyFile  string `toml:"key_file"`
	DHFile   string `toml:"dh_file"`
}

func (t *TLS) applyDefaults(dataDir string) {
	if t.CertFile == "" {
		t.CertFile = filepath.Join(dataDir, defaultCertFile)
	}
	if t.KeyFile == "" {
		t.KeyFile = filepath.Join(dataDir, defaultKeyFile)
	}
	if t.DHFile == "" {
		t.DHFile = filepath.Join(dataDir, defaultDHFile)
	}
}

// Config is the top level storage node configuration.
type Config struct {
	Server  *Server   `toml:"server"`
	Logging *Logging  `toml:"logging"`
	Debug   *Debug    `toml:"debug"`
	Keys    *KeyFiles `toml:"keys"`
	TLS     *TLS      `toml:"tls"`

	// StatsAccessKeys authorizes callers of the local stats/status
	// endpoints; requests without a matching key are refused.
	StatsAccessKeys []string `toml:"stats_access_keys"`
}

// FixupAndValidate applies defaults to config entries and validates the
// supplied configuration. Most callers should use one of the Load
// variants instead of calling this directly.
func (cfg *Config) FixupAndValidate() error {
	if cfg.Server == nil {
		return errors.New("config: No Server block was present")
	}
	if cfg.Logging == nil {
		cfg.Logging = &Logging{Level: defaultLogLevel}
	}
	if cfg.Debug == nil {
		cfg.Debug = &Debug{}
	}
	if cfg.Keys == nil {
		cfg.Keys = &KeyFiles{}
	}
	if cfg.TLS == nil {
		cfg.TLS = &TLS{}
	}

	cfg.Server.applyDefaults()
	cfg.Keys.applyDefaults(cfg.Server.DataDir)
	cfg.TLS.applyDefaults(cfg.Server.DataDir)

	if err := cfg.Server.validate(); err != nil {
		return err
	}
	if err := cfg.Logging.validate(); err != nil {
		return err
	}
	return nil
}

// Load parses and validates the provided buffer as a TOML config file
// body and returns the Config.
func Load(b []byte) (*Config, error) {
	if b == nil {
		return nil, errors.New("config: no config buffer provided")
	}

	cfg := new(Config)
	if err := toml.Unmarshal(b, cfg); err != nil {
		return nil, err
	}
	if err := cfg.FixupAndValidate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads, parses, and validates the config file at path f.
func LoadFile(f string) (*Config, error) {
	b, err := os.ReadFile(f)
	if err != nil {
		return nil, err
	}
	return Load(b)
}
