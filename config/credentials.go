package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const baseCredPath = "feedpipe/creds.toml"

// Credentials holds all application credentials
type Credentials struct {
	OpenAI OpenAICredentials `toml:"openai"`
}

// OpenAICredentials holds the API credentials for the summarizer agent
type OpenAICredentials struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"` // e.g., "gpt-4o-mini"
}

// IsValid checks if OpenAI credentials are populated
func (oc OpenAICredentials) IsValid() bool {
	return oc.APIKey != ""
}

// ReadCredentials reads credentials from the specified path
func ReadCredentials(path string) (Credentials, error) {
	var creds Credentials

	data, err := os.ReadFile(path)
	if err != nil {
		return creds, err
	}

	if _, err := toml.Decode(string(data), &creds); err != nil {
		return creds, fmt.Errorf("failed to decode credentials at %s: %w", path, err)
	}

	return creds, nil
}

// WriteCredentials writes credentials to the specified path
func WriteCredentials(path string, creds Credentials) error {
	blob, err := toml.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	basePath := filepath.Dir(path)
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return fmt.Errorf("failed to create credentials directory at '%s': %w", basePath, err)
	}

	// Write with restrictive permissions (only owner can read/write)
	if err := os.WriteFile(path, blob, 0600); err != nil {
		return fmt.Errorf("failed to write credentials file at '%s': %w", path, err)
	}

	return nil
}

// DefaultCredentialsPath returns the default path for credentials file
func DefaultCredentialsPath() string {
	var xdgHome = os.Getenv("XDG_CONFIG_HOME")
	if xdgHome != "" {
		return filepath.Join(xdgHome, baseCredPath)
	}

	var home = os.Getenv("HOME")
	if home != "" {
		return filepath.Join(home, ".config", baseCredPath)
	}

	panic("unable to determine credentials file path")
}
