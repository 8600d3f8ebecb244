package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rohankatakam/featurekg/internal/config"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Interactive setup for the graph connection (with OS keychain support)",
	Long: `Walk through the graph connection settings and store the Neo4j password
securely. The password goes to the OS keychain when one is available and to
a 0600 credentials file otherwise; it is never written to config.yaml.`,
	RunE: runConfigure,
}

func runConfigure(cmd *cobra.Command, args []string) error {
	p := newPrinter(os.Stdout)
	p.Title("featurekg configuration")
	reader := bufio.NewReader(os.Stdin)

	configPath := cfgFile
	if configPath == "" {
		homeDir, _ := os.UserHomeDir()
		configPath = filepath.Join(homeDir, ".featurekg", "config.yaml")
	}

	km := config.NewKeyringManager()
	if !km.IsAvailable() {
		p.Warn("OS keychain not available; the password will be stored in a credentials file")
	}

	p.Section("Step 1/3: Graph store")
	cfg.Graph.Backend = ask(reader, "Backend (neo4j, bolt, memory)", cfg.Graph.Backend)
	switch cfg.Graph.Backend {
	case config.BackendNeo4j:
		cfg.Graph.URI = ask(reader, "Neo4j URI", cfg.Graph.URI)
		cfg.Graph.User = ask(reader, "Neo4j user", cfg.Graph.User)
		cfg.Graph.Database = ask(reader, "Neo4j database", cfg.Graph.Database)
	case config.BackendBolt:
		cfg.Graph.BoltPath = ask(reader, "Graph file", cfg.Graph.BoltPath)
	}

	creds := config.Credentials{}
	if cfg.Graph.Backend == config.BackendNeo4j {
		p.Section("Step 2/3: Neo4j password")
		source := km.GetNeo4jPasswordSource(config.NewCredentialManager().GetConfigPath())
		keep := false
		if source.Source != "none" {
			p.Field("Current source", source.Source)
			keep = strings.ToLower(ask(reader, "Keep existing password? (Y/n)", "y")) == "y"
		}
		if !keep {
			pw, err := readPassword(reader, "Neo4j password: ")
			if err != nil {
				return err
			}
			creds.Neo4jPassword = pw
		}
	}

	p.Section("Step 3/3: HTTP server")
	cfg.Server.Addr = ask(reader, "Listen address", cfg.Server.Addr)
	origins := ask(reader, "CORS origins (comma-separated)", strings.Join(cfg.Server.CORSOrigins, ","))
	cfg.Server.CORSOrigins = splitCSV(origins)

	result := cfg.Validate(config.ValidationContextServe)
	for _, w := range result.Warnings {
		p.Warn("%s", w)
	}

	if creds.Neo4jPassword != "" {
		cm := config.NewCredentialManager()
		if err := cm.SaveCredentials(creds); err != nil {
			return err
		}
		if km.IsAvailable() {
			p.OK("Password saved to OS keychain")
		} else {
			p.OK("Password saved to %s", cm.GetConfigPath())
		}
	}

	if err := cfg.Save(configPath); err != nil {
		return err
	}
	p.OK("Configuration saved to %s", configPath)
	p.Muted("Run 'featurekg status' to check the connection")
	return nil
}

// ask prompts for a value, returning def on an empty answer.
func ask(reader *bufio.Reader, prompt, def string) string {
	if def != "" {
		fmt.Printf("%s [%s]: ", prompt, def)
	} else {
		fmt.Printf("%s: ", prompt)
	}
	line, _ := reader.ReadString('\n')
	if line = strings.TrimSpace(line); line != "" {
		return line
	}
	return def
}

// readPassword reads without echo on a terminal and falls back to a plain
// line read when stdin is piped.
func readPassword(reader *bufio.Reader, prompt string) (string, error) {
	fmt.Print(prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		pw, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return strings.TrimSpace(string(pw)), nil
	}
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimSpace(line), nil
}
