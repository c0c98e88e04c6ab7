// Package cliconfig loads the CLI's settings file, the same
// jsonc-tolerant, read-file-then-Unmarshal pattern as the teacher's
// internal/config.Load.
package cliconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
)

// Settings is the on-disk shape of ~/.awf.json (or a --settings file).
// A command-line flag that is set takes priority over a matching field
// here (flag > settings > default); boolean settings are enabled when
// either the flag or this file enables them.
type Settings struct {
	AllowedDomains      []string `json:"allowedDomains"`
	BlockedDomains      []string `json:"blockedDomains"`
	AllowHostPorts      string   `json:"allowHostPorts,omitempty"`
	DNSServers          []string `json:"dnsServers,omitempty"`
	BridgeSubnetPool    []string `json:"bridgeSubnetPool,omitempty"`
	ProxyListenPort     int      `json:"proxyListenPort,omitempty"`
	CredentialIsolation bool     `json:"credentialIsolation,omitempty"`
	SSLBump             bool     `json:"sslBump,omitempty"`
	ProxyImage          string   `json:"proxyImage,omitempty"`
	CommandImage        string   `json:"commandImage,omitempty"`
	KeepArtifacts       bool     `json:"keepArtifacts,omitempty"`
}

// Default returns the zero-trust default: no domains allowed, plus a
// built-in bridge subnet pool and default proxy/command images. It is
// used only when no settings file is found.
func Default() *Settings {
	return &Settings{
		AllowedDomains: []string{},
		BlockedDomains: []string{},
		BridgeSubnetPool: []string{
			"10.200.0.0/24", "10.200.1.0/24", "10.200.2.0/24", "10.200.3.0/24",
		},
		ProxyImage:   "awf-proxy:latest",
		CommandImage: "awf-command:latest",
	}
}

// DefaultPath returns ~/.awf.json, falling back to a relative path if
// the home directory cannot be resolved.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".awf.json"
	}
	return filepath.Join(home, ".awf.json")
}

// Load reads a settings file. A missing file is not an error: it
// returns (nil, nil), matching the teacher's config.Load.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading settings file: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}

	var s Settings
	if err := json.Unmarshal(jsonc.ToJSON(data), &s); err != nil {
		return nil, fmt.Errorf("invalid JSON in settings file %s: %w", path, err)
	}
	return &s, nil
}
