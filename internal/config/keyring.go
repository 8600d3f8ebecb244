package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/zalando/go-keyring"
)

const (
	// KeyringService is the service name in the OS keychain
	KeyringService = "featurekg"

	// KeyringNeo4jPasswordItem is the key for the graph password
	KeyringNeo4jPasswordItem = "neo4j-password"

	// KeyringRedisPasswordItem is the key for the export cache password
	KeyringRedisPasswordItem = "redis-password"
)

// KeyringManager handles secure credential storage in the OS keychain
type KeyringManager struct {
	logger *slog.Logger
}

// NewKeyringManager creates a new keyring manager
func NewKeyringManager() *KeyringManager {
	return &KeyringManager{
		logger: slog.Default().With("component", "keyring"),
	}
}

func (km *KeyringManager) get(item string) (string, error) {
	secret, err := keyring.Get(KeyringService, item)
	if err == keyring.ErrNotFound {
		// Not set yet
		return "", nil
	}
	if err != nil {
		km.logger.Error("failed to read from keychain", "item", item, "error", err)
		return "", fmt.Errorf("failed to read from OS keychain: %w", err)
	}
	km.logger.Debug("secret retrieved from keychain", "item", item)
	return secret, nil
}

func (km *KeyringManager) set(item, secret string) error {
	if secret == "" {
		return fmt.Errorf("%s cannot be empty", item)
	}
	if err := keyring.Set(KeyringService, item, secret); err != nil {
		km.logger.Error("failed to save to keychain", "item", item, "error", err)
		return fmt.Errorf("failed to save to OS keychain: %w", err)
	}
	km.logger.Info("secret saved to keychain", "service", KeyringService, "item", item)
	return nil
}

func (km *KeyringManager) delete(item string) error {
	err := keyring.Delete(KeyringService, item)
	if err == keyring.ErrNotFound {
		return nil
	}
	if err != nil {
		km.logger.Error("failed to delete from keychain", "item", item, "error", err)
		return fmt.Errorf("failed to delete from OS keychain: %w", err)
	}
	km.logger.Info("secret deleted from keychain", "item", item)
	return nil
}

func (km *KeyringManager) GetNeo4jPassword() (string, error) { return km.get(KeyringNeo4jPasswordItem) }

func (km *KeyringManager) SetNeo4jPassword(pw string) error {
	return km.set(KeyringNeo4jPasswordItem, pw)
}

func (km *KeyringManager) DeleteNeo4jPassword() error { return km.delete(KeyringNeo4jPasswordItem) }

func (km *KeyringManager) GetRedisPassword() (string, error) { return km.get(KeyringRedisPasswordItem) }

func (km *KeyringManager) SetRedisPassword(pw string) error {
	return km.set(KeyringRedisPasswordItem, pw)
}

func (km *KeyringManager) DeleteRedisPassword() error { return km.delete(KeyringRedisPasswordItem) }

// IsAvailable checks if the OS keychain is available.
// Returns false on headless systems where no secret service is running.
func (km *KeyringManager) IsAvailable() bool {
	_, err := keyring.Get(KeyringService, "test-availability")
	if err == nil || err == keyring.ErrNotFound {
		return true
	}
	km.logger.Debug("keychain not available", "error", err)
	return false
}

// SecretSourceInfo describes where the graph password comes from
type SecretSourceInfo struct {
	Source      string // "env", "keychain", "config", "none"
	Secure      bool
	Recommended string
}

// GetNeo4jPasswordSource determines where the graph password is coming from
func (km *KeyringManager) GetNeo4jPasswordSource(credentialsPath string) SecretSourceInfo {
	if os.Getenv("NEO4J_PASSWORD") != "" {
		return SecretSourceInfo{
			Source:      "env",
			Secure:      true,
			Recommended: "Using environment variable (good for CI/CD)",
		}
	}

	if pw, _ := km.GetNeo4jPassword(); pw != "" {
		return SecretSourceInfo{
			Source:      "keychain",
			Secure:      true,
			Recommended: "Stored securely in OS keychain",
		}
	}

	if _, err := os.Stat(credentialsPath); err == nil {
		return SecretSourceInfo{
			Source:      "config",
			Secure:      false,
			Recommended: "Plaintext credentials file detected. Run: featurekg configure",
		}
	}

	return SecretSourceInfo{
		Source:      "none",
		Secure:      false,
		Recommended: "No Neo4j password configured. Run: featurekg configure",
	}
}

// MaskSecret masks a secret for display: first 3 and last 2 characters.
func MaskSecret(secret string) string {
	if secret == "" {
		return "(not set)"
	}
	if len(secret) < 8 {
		return "***"
	}
	return fmt.Sprintf("%s...%s", secret[:3], secret[len(secret)-2:])
}
