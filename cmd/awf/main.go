// Package main implements the awf CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentfence/awf/internal/cliconfig"
	"github.com/agentfence/awf/internal/obslog"
	"github.com/agentfence/awf/internal/orchestrator"
	"github.com/agentfence/awf/internal/policy"
)

// Build-time variables (set via -ldflags).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

var (
	debug               bool
	settingsPath        string
	allowDomains        []string
	blockDomains        []string
	allowFile           string
	allowHostPorts      string
	dnsServers          []string
	bridgeSubnetPool    []string
	proxyListenPort     int
	credentialIsolation bool
	sslBump             bool
	proxyImage          string
	commandImage        string
	keepArtifacts       bool
	showVersion         bool
	exitCode            int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "awf [flags] -- <command...>",
		Short: "Run a command in an egress-filtered sandbox",
		Long: `awf runs a command inside a three-container sandbox (filtering proxy,
command container, optional credential sidecar) that only permits outbound
HTTP(S) traffic to an explicit allowlist of domains.

By default, no domains are allowed, and awf refuses to run until at
least one is configured with --allow, --allow-file, or ~/.awf.json.

Examples:
  awf --allow github.com,registry.npmjs.org -- npm install
  awf --allow-file domains.json -- agent-cmd
  awf --settings ci.json -- make test`,
		RunE:          runCommand,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
	}

	rootCmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	rootCmd.Flags().StringVarP(&settingsPath, "settings", "s", "", "Path to a settings file (default: ~/.awf.json)")
	rootCmd.Flags().StringSliceVar(&allowDomains, "allow", nil, "Comma-separated list of allowed domains")
	rootCmd.Flags().StringSliceVar(&blockDomains, "deny", nil, "Comma-separated list of blocked domains (checked before allow)")
	rootCmd.Flags().StringVar(&allowFile, "allow-file", "", "Path to a JSON(C) or plain-text domain list")
	rootCmd.Flags().StringVar(&allowHostPorts, "allow-host-ports", "", "Comma-separated ports/ranges to redirect to the proxy besides 80,443")
	rootCmd.Flags().StringSliceVar(&dnsServers, "dns", nil, "DNS servers reachable from the sandbox")
	rootCmd.Flags().StringSliceVar(&bridgeSubnetPool, "bridge-subnet-pool", nil, "Candidate /24 subnets for the sandbox bridge")
	rootCmd.Flags().IntVar(&proxyListenPort, "proxy-port", 0, "Proxy listen port (default: 3128)")
	rootCmd.Flags().BoolVar(&credentialIsolation, "credential-isolation", false, "Start the optional credential sidecar container")
	rootCmd.Flags().BoolVar(&sslBump, "ssl-bump", false, "Enable SSL-bump (TLS-inspecting) mode on the proxy")
	rootCmd.Flags().StringVar(&proxyImage, "proxy-image", "", "Proxy container image")
	rootCmd.Flags().StringVar(&commandImage, "command-image", "", "Command container image")
	rootCmd.Flags().BoolVar(&keepArtifacts, "keep-artifacts", false, "Preserve the work directory after teardown instead of deleting it")
	rootCmd.Flags().BoolVarP(&showVersion, "version", "v", false, "Show version information")
	rootCmd.Flags().SetInterspersed(true)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "awf: %v\n", err)
		exitCode = 1
	}
	os.Exit(exitCode)
}

func runCommand(cmd *cobra.Command, args []string) error {
	if showVersion {
		fmt.Printf("awf - egress-filtering sandbox orchestrator for AI-agent workloads\n")
		fmt.Printf("  Version: %s\n", version)
		fmt.Printf("  Built:   %s\n", buildTime)
		fmt.Printf("  Commit:  %s\n", gitCommit)
		return nil
	}

	if len(args) == 0 {
		return fmt.Errorf("no command specified; provide a command after --")
	}

	level := obslog.ParseLevel("info")
	if debug {
		level = obslog.ParseLevel("debug")
	}
	log := obslog.New(os.Stderr, "awf", level, debug)

	settings, err := loadSettings()
	if err != nil {
		return err
	}

	in := orchestrator.Inputs{
		AllowedDomains:      mergeDomains(allowDomains, settings.AllowedDomains),
		BlockedDomains:      mergeDomains(blockDomains, settings.BlockedDomains),
		AllowHostPorts:      firstNonEmpty(allowHostPorts, settings.AllowHostPorts),
		DNSServers:          mergeOrFallback(dnsServers, settings.DNSServers),
		BridgeSubnetPool:    mergeOrFallback(bridgeSubnetPool, settings.BridgeSubnetPool),
		ProxyListenPort:     firstNonZero(proxyListenPort, settings.ProxyListenPort, policy.DefaultProxyListenPort),
		CredentialIsolation: credentialIsolation || settings.CredentialIsolation,
		SSLBump:             sslBump || settings.SSLBump,
		ProxyImage:          firstNonEmpty(proxyImage, settings.ProxyImage),
		CommandImage:        firstNonEmpty(commandImage, settings.CommandImage),
		Command:             args,
		Env:                 os.Environ(),
		UID:                 os.Getuid(),
		GID:                 os.Getgid(),
		KeepArtifacts:       keepArtifacts || settings.KeepArtifacts,
	}

	if allowFile != "" {
		fileAllowed, fileBlocked, err := policy.LoadDomainFile(allowFile)
		if err != nil {
			return fmt.Errorf("loading --allow-file: %w", err)
		}
		in.AllowedDomains = append(in.AllowedDomains, fileAllowed...)
		in.BlockedDomains = append(in.BlockedDomains, fileBlocked...)
	}

	result, runErr := orchestrator.Run(context.Background(), log, in, os.Stdout, os.Stderr)
	if result.RunID != "" {
		log.Info().Str("run_id", result.RunID).Int("exit_code", int(result.ExitCode)).Msg("run finished")
	}
	exitCode = int(result.ExitCode)
	if runErr != nil && result.ExitCode != orchestrator.ExitCode(0) {
		fmt.Fprintf(os.Stderr, "awf: %v\n", runErr)
	}
	return nil
}

func loadSettings() (*cliconfig.Settings, error) {
	path := settingsPath
	if path == "" {
		path = cliconfig.DefaultPath()
	}
	settings, err := cliconfig.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	if settings == nil {
		settings = cliconfig.Default()
	}
	return settings, nil
}

func mergeDomains(fromFlag, fromSettings []string) []string {
	if len(fromFlag) > 0 {
		return fromFlag
	}
	return fromSettings
}

func mergeOrFallback(fromFlag, fromSettings []string) []string {
	if len(fromFlag) > 0 {
		return fromFlag
	}
	return fromSettings
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func firstNonZero(values ...int) int {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}
