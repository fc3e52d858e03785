package main

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sturdy-barnacle/tibok-plugins/internal/manifest"
	"github.com/sturdy-barnacle/tibok-plugins/internal/permission"
	"github.com/sturdy-barnacle/tibok-plugins/internal/signature"
	"github.com/sturdy-barnacle/tibok-plugins/internal/trust"
)

var (
	forceRefresh bool
	signKeyFile  string
	signKeyID    string
)

func init() {
	installCmd.Flags().BoolVar(&forceRefresh, "force-refresh", false, "bypass the cached catalog")
	searchCmd.Flags().BoolVar(&forceRefresh, "force-refresh", false, "bypass the cached catalog")
	signCmd.Flags().StringVar(&signKeyFile, "key", "", "path to base64-encoded Ed25519 private key")
	signCmd.Flags().StringVar(&signKeyID, "key-id", "", "public key identifier to embed")
	_ = signCmd.MarkFlagRequired("key")
	_ = signCmd.MarkFlagRequired("key-id")

	rootCmd.AddCommand(listCmd, validateCmd, searchCmd, installCmd,
		uninstallCmd, approveCmd, revokeCmd, signCmd, keysCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed plugins with their trust tier and approval state",
	RunE: func(cmd *cobra.Command, args []string) error {
		validator, err := newValidator()
		if err != nil {
			return err
		}
		entries, err := os.ReadDir(cfg.Paths.PluginsDir)
		if os.IsNotExist(err) {
			fmt.Println("No plugins installed.")
			return nil
		}
		if err != nil {
			return err
		}
		for _, ent := range entries {
			if !ent.IsDir() || strings.HasPrefix(ent.Name(), ".") {
				continue
			}
			dir := filepath.Join(cfg.Paths.PluginsDir, ent.Name())
			m, err := manifest.LoadFromDir(dir)
			if err != nil {
				fmt.Printf("%-40s (invalid: %v)\n", ent.Name(), err)
				continue
			}
			bundle, _ := os.ReadFile(filepath.Join(dir, bundleName(m)))
			res := validator.ValidateForLoading(m, trust.ProvenanceDisk, bundle)
			fmt.Printf("%-40s %-10s %-10s %-15s %s\n",
				m.Identifier, m.Version, res.Tier, res.Decision, m.Name)
		}
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate <plugin-dir>",
	Short: "Validate a plugin directory and report the loading decision",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := manifest.LoadFromDir(args[0])
		if err != nil {
			return err
		}
		validator, err := newValidator()
		if err != nil {
			return err
		}
		bundle, _ := os.ReadFile(filepath.Join(args[0], bundleName(m)))
		res := validator.ValidateForLoading(m, trust.ProvenanceDisk, bundle)

		fmt.Printf("Plugin:   %s %s (%s)\n", m.Identifier, m.Version, m.Name)
		fmt.Printf("Tier:     %s\n", res.Tier)
		fmt.Printf("Decision: %s\n", res.Decision)
		if unknown := m.UnknownPermissions(); len(unknown) > 0 {
			fmt.Printf("Ignored unknown permissions: %s\n", strings.Join(unknown, ", "))
		}
		if res.Detail != "" {
			fmt.Printf("Detail:   %s\n", res.Detail)
		}
		if !res.Required.IsEmpty() {
			fmt.Printf("Requires approval for: %s\n", res.Required)
		}
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the plugin registry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newRegistryClient()
		if forceRefresh {
			client.Invalidate()
		}
		entries, err := client.Search(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No plugins match.")
			return nil
		}
		for _, e := range entries {
			elevated := ""
			if e.Manifest.Permissions().HasElevated() {
				elevated = " [elevated]"
			}
			fmt.Printf("%-40s %-10s %-10s %s%s\n",
				e.Manifest.Identifier, e.Manifest.Version, e.Manifest.DeclaredTier,
				e.Manifest.Description, elevated)
		}
		return nil
	},
}

var installCmd = &cobra.Command{
	Use:   "install <plugin-id>",
	Short: "Download, verify, and install a plugin from the registry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newRegistryClient()
		if forceRefresh {
			client.Invalidate()
		}
		entry, err := client.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		dir, err := newInstaller().Install(cmd.Context(), entry)
		if err != nil {
			return err
		}
		fmt.Printf("Installed %s %s to %s\n", entry.Manifest.Identifier, entry.Manifest.Version, dir)
		if elevated := entry.Manifest.Permissions().Elevated(); len(elevated) > 0 {
			fmt.Printf("This plugin requests elevated permissions: %s\n", formatPermissions(elevated))
			fmt.Println("Run 'tibokplug approve' to grant them before loading.")
		}
		return nil
	},
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall <plugin-id>",
	Short: "Remove an installed plugin and revoke its approvals",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newInstaller().Uninstall(args[0]); err != nil {
			return err
		}
		validator, err := newValidator()
		if err != nil {
			return err
		}
		if err := validator.RevokeApproval(args[0]); err != nil {
			return err
		}
		fmt.Printf("Uninstalled %s\n", args[0])
		return nil
	},
}

var approveCmd = &cobra.Command{
	Use:   "approve <plugin-id> [permission...]",
	Short: "Grant permissions to an installed plugin",
	Long: `Grant permissions to an installed plugin. With no permissions listed,
the plugin's full declared set is granted. The grant replaces any prior
record for the plugin.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := filepath.Join(cfg.Paths.PluginsDir, args[0])
		m, err := manifest.LoadFromDir(dir)
		if err != nil {
			return fmt.Errorf("plugin %s is not installed: %w", args[0], err)
		}
		grant := m.Permissions()
		if len(args) > 1 {
			var unknown []string
			grant, unknown = permission.ParseAll(args[1:])
			if len(unknown) > 0 {
				return fmt.Errorf("unknown permissions: %s", strings.Join(unknown, ", "))
			}
		}
		validator, err := newValidator()
		if err != nil {
			return err
		}
		if err := validator.ApprovePermissions(m.Identifier, grant); err != nil {
			return err
		}
		fmt.Printf("Granted %s: %s\n", m.Identifier, grant)
		return nil
	},
}

var revokeCmd = &cobra.Command{
	Use:   "revoke <plugin-id>",
	Short: "Revoke all permission grants for a plugin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		validator, err := newValidator()
		if err != nil {
			return err
		}
		if err := validator.RevokeApproval(args[0]); err != nil {
			return err
		}
		fmt.Printf("Revoked all grants for %s\n", args[0])
		return nil
	},
}

var signCmd = &cobra.Command{
	Use:   "sign <plugin-dir>",
	Short: "Produce a signature block for a plugin bundle",
	Long: `Sign a plugin's bundle with an Ed25519 private key and print the
signature block to embed in plugin.json.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := manifest.LoadFromDir(args[0])
		if err != nil {
			return err
		}
		bundle, err := os.ReadFile(filepath.Join(args[0], bundleName(m)))
		if err != nil {
			return err
		}
		priv, err := loadPrivateKey(signKeyFile)
		if err != nil {
			return err
		}
		sig := signature.Sign(priv, signKeyID, m.Identifier, m.Version, bundle, time.Now().UTC())
		out, err := json.MarshalIndent(sig, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List the trusted signing key identifiers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ids := signature.NewVerifier().TrustedKeyIDs()
		sort.Strings(ids)
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	},
}

// bundleName returns the file that signature verification hashes over: the
// script entry point for script plugins, a fixed name otherwise.
func bundleName(m *manifest.Manifest) string {
	if m.EntryPoint != nil && m.EntryPoint.Script != "" {
		return filepath.Base(m.EntryPoint.Script)
	}
	return "plugin.bundle"
}

// formatPermissions renders a permission list for terminal output.
func formatPermissions(perms []permission.Permission) string {
	names := make([]string, len(perms))
	for i, p := range perms {
		names[i] = string(p)
	}
	return strings.Join(names, ", ")
}

func loadPrivateKey(path string) (ed25519.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	if len(decoded) == ed25519.SeedSize {
		return ed25519.NewKeyFromSeed(decoded), nil
	}
	if len(decoded) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("private key must be %d or %d bytes, got %d",
			ed25519.SeedSize, ed25519.PrivateKeySize, len(decoded))
	}
	return ed25519.PrivateKey(decoded), nil
}
