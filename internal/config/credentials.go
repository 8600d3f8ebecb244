package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rohankatakam/featurekg/internal/errors"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// CredentialManager resolves secrets with a priority chain:
// environment → keychain → credentials file → interactive prompt.
type CredentialManager struct {
	mode       DeploymentMode
	keyring    *KeyringManager
	configPath string
}

// Credentials holds the secrets featurekg needs
type Credentials struct {
	Neo4jPassword string `yaml:"neo4j_password"`
	RedisPassword string `yaml:"redis_password,omitempty"`
}

// NewCredentialManager creates a new credential manager
func NewCredentialManager() *CredentialManager {
	homeDir, _ := os.UserHomeDir()
	return newCredentialManager(DetectMode(), filepath.Join(homeDir, ".config", "featurekg", "credentials.yaml"))
}

func newCredentialManager(mode DeploymentMode, configPath string) *CredentialManager {
	return &CredentialManager{
		mode:       mode,
		keyring:    NewKeyringManager(),
		configPath: configPath,
	}
}

// GetNeo4jPassword retrieves the graph password using the priority chain
func (cm *CredentialManager) GetNeo4jPassword() (string, error) {
	// 1. Environment variable (highest priority)
	if pw := os.Getenv("NEO4J_PASSWORD"); pw != "" {
		return pw, nil
	}

	// 2. Keychain
	if cm.mode != ModeCI && cm.keyring.IsAvailable() {
		if pw, err := cm.keyring.GetNeo4jPassword(); err == nil && pw != "" {
			return pw, nil
		}
	}

	// 3. Credentials file
	if creds, err := cm.loadConfigFile(); err == nil && creds.Neo4jPassword != "" {
		return creds.Neo4jPassword, nil
	}

	// 4. Interactive prompt (packaged mode only)
	if cm.mode.AllowsInteractivePrompts() && isInteractive() {
		fmt.Println("\nNeo4j password not found.")
		return cm.promptForNeo4jPassword()
	}

	return "", errors.ConfigErrorf(
		"NEO4J_PASSWORD not found. Set it via:\n"+
			"  1. Environment variable: export NEO4J_PASSWORD=...\n"+
			"  2. Run: featurekg configure (to set up keychain)\n"+
			"  3. Credentials file: %s", cm.configPath)
}

// GetRedisPassword retrieves the optional Redis password. Missing is not an error.
func (cm *CredentialManager) GetRedisPassword() string {
	if pw := os.Getenv("REDIS_PASSWORD"); pw != "" {
		return pw
	}
	if cm.mode != ModeCI && cm.keyring.IsAvailable() {
		if pw, err := cm.keyring.GetRedisPassword(); err == nil && pw != "" {
			return pw
		}
	}
	if creds, err := cm.loadConfigFile(); err == nil {
		return creds.RedisPassword
	}
	return ""
}

// SaveCredentials saves credentials to keychain (preferred) or the credentials file (fallback)
func (cm *CredentialManager) SaveCredentials(creds Credentials) error {
	if cm.keyring.IsAvailable() {
		if creds.Neo4jPassword != "" {
			if err := cm.keyring.SetNeo4jPassword(creds.Neo4jPassword); err != nil {
				return errors.Wrap(err, errors.ErrorTypeConfig, errors.SeverityHigh,
					"failed to save Neo4j password to keychain")
			}
		}
		if creds.RedisPassword != "" {
			if err := cm.keyring.SetRedisPassword(creds.RedisPassword); err != nil {
				return errors.Wrap(err, errors.ErrorTypeConfig, errors.SeverityHigh,
					"failed to save Redis password to keychain")
			}
		}
		return nil
	}

	return cm.saveConfigFile(creds)
}

func (cm *CredentialManager) loadConfigFile() (*Credentials, error) {
	data, err := os.ReadFile(cm.configPath)
	if err != nil {
		return nil, err
	}

	var creds Credentials
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return nil, err
	}
	return &creds, nil
}

func (cm *CredentialManager) saveConfigFile(creds Credentials) error {
	dir := filepath.Dir(cm.configPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return errors.FileSystemError(err, "failed to create credentials directory")
	}

	data, err := yaml.Marshal(creds)
	if err != nil {
		return err
	}

	// user-only read/write
	if err := os.WriteFile(cm.configPath, data, 0600); err != nil {
		return errors.FileSystemError(err, "failed to write credentials file")
	}
	return nil
}

func (cm *CredentialManager) promptForNeo4jPassword() (string, error) {
	fmt.Print("Enter Neo4j password: ")
	pw, err := cm.readSecurely()
	if err != nil {
		return "", err
	}
	if pw == "" {
		return "", errors.ConfigError("Neo4j password is required")
	}

	if cm.keyring.IsAvailable() {
		if err := cm.keyring.SetNeo4jPassword(pw); err == nil {
			fmt.Println("✓ Saved to keychain")
		}
	} else if err := cm.saveConfigFile(Credentials{Neo4jPassword: pw}); err == nil {
		fmt.Printf("✓ Saved to %s\n", cm.configPath)
	}

	return pw, nil
}

// readSecurely reads a secret from stdin without echoing
func (cm *CredentialManager) readSecurely() (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		bytes, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(bytes)), nil
	}

	// Piped input
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func isInteractive() bool {
	return term.IsTerminal(int(syscall.Stdin))
}

// GetMode returns the current deployment mode
func (cm *CredentialManager) GetMode() DeploymentMode {
	return cm.mode
}

// GetConfigPath returns the path to the credentials file
func (cm *CredentialManager) GetConfigPath() string {
	return cm.configPath
}

// HasCredentials reports whether a graph password is available without prompting.
func (cm *CredentialManager) HasCredentials() bool {
	if os.Getenv("NEO4J_PASSWORD") != "" {
		return true
	}
	if cm.mode != ModeCI && cm.keyring.IsAvailable() {
		if pw, err := cm.keyring.GetNeo4jPassword(); err == nil && pw != "" {
			return true
		}
	}
	if creds, err := cm.loadConfigFile(); err == nil && creds.Neo4jPassword != "" {
		return true
	}
	return false
}

// ResolveSecrets fills empty passwords in cfg from the credential chain.
// Only the neo4j backend needs a graph password.
func (cm *CredentialManager) ResolveSecrets(cfg *Config) error {
	if cfg.Graph.Backend == BackendNeo4j && cfg.Graph.Password == "" {
		pw, err := cm.GetNeo4jPassword()
		if err != nil {
			return err
		}
		cfg.Graph.Password = pw
	}
	if cfg.Cache.RedisAddr != "" && cfg.Cache.Password == "" {
		cfg.Cache.Password = cm.GetRedisPassword()
	}
	return nil
}
