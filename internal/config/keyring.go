package config

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/zalando/go-keyring"

	"github.com/rohankatakam/monorel/internal/logging"
)

const (
	// KeyringService is the service name in the OS keychain
	KeyringService = "monorel"

	// KeyringGitHubTokenItem is the key for GitHub token
	KeyringGitHubTokenItem = "github-token"
)

// KeyringManager handles secure credential storage in OS keychain
type KeyringManager struct {
	logger logrus.FieldLogger
}

// NewKeyringManager creates a new keyring manager. A nil logger discards.
func NewKeyringManager(logger logrus.FieldLogger) *KeyringManager {
	if logger == nil {
		logger = logging.Discard()
	}
	return &KeyringManager{
		logger: logger.WithField("component", "keyring"),
	}
}

// registryItem names the keychain entry holding one registry secret,
// e.g. "registry/npm-public/token".
func registryItem(registry, field string) string {
	return "registry/" + registry + "/" + field
}

func (km *KeyringManager) get(item string) (string, error) {
	value, err := keyring.Get(KeyringService, item)
	if err == keyring.ErrNotFound {
		// Not an error - just not set yet
		return "", nil
	}
	if err != nil {
		km.logger.WithError(err).WithField("item", item).Error("failed to read from keychain")
		return "", fmt.Errorf("failed to read from OS keychain: %w", err)
	}
	return value, nil
}

func (km *KeyringManager) set(item, value string) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty", item)
	}
	if err := keyring.Set(KeyringService, item, value); err != nil {
		km.logger.WithError(err).WithField("item", item).Error("failed to save to keychain")
		return fmt.Errorf("failed to save to OS keychain: %w", err)
	}
	km.logger.WithField("item", item).Info("secret saved to keychain")
	return nil
}

func (km *KeyringManager) delete(item string) error {
	err := keyring.Delete(KeyringService, item)
	if err == keyring.ErrNotFound {
		// Already deleted, not an error
		return nil
	}
	if err != nil {
		km.logger.WithError(err).WithField("item", item).Error("failed to delete from keychain")
		return fmt.Errorf("failed to delete from OS keychain: %w", err)
	}
	return nil
}

// GetGitHubToken retrieves GitHub token from OS keychain
func (km *KeyringManager) GetGitHubToken() (string, error) {
	return km.get(KeyringGitHubTokenItem)
}

// SetGitHubToken stores GitHub token securely in OS keychain
func (km *KeyringManager) SetGitHubToken(token string) error {
	return km.set(KeyringGitHubTokenItem, token)
}

// DeleteGitHubToken removes GitHub token from OS keychain
func (km *KeyringManager) DeleteGitHubToken() error {
	return km.delete(KeyringGitHubTokenItem)
}

// GetRegistrySecret returns the stored secret for a registry field such as
// "token" or "password". Missing entries yield "".
func (km *KeyringManager) GetRegistrySecret(registry, field string) (string, error) {
	return km.get(registryItem(registry, field))
}

// SetRegistrySecret stores a registry secret.
func (km *KeyringManager) SetRegistrySecret(registry, field, value string) error {
	return km.set(registryItem(registry, field), value)
}

// DeleteRegistrySecret removes a registry secret.
func (km *KeyringManager) DeleteRegistrySecret(registry, field string) error {
	return km.delete(registryItem(registry, field))
}

// IsAvailable checks if OS keychain is available
// Returns false on headless systems (CI/CD) where keychain isn't available
func (km *KeyringManager) IsAvailable() bool {
	_, err := keyring.Get(KeyringService, "test-availability")
	if err == nil || err == keyring.ErrNotFound {
		return true
	}
	km.logger.WithError(err).Debug("keychain not available")
	return false
}
