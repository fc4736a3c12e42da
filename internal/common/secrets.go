package common

import (
	"fmt"
	"os"
	"strings"
)

// SecretSource describes how to load a secret value.
type SecretSource struct {
	// Name is used in error messages.
	Name string
	// Value is an inline secret from config or environment.
	Value string
	// File points to a file holding the secret. It takes precedence over Value.
	File string
}

// LoadSecret resolves a secret from its file or inline value. The result is trimmed.
func LoadSecret(src SecretSource) (string, error) {
	name := strings.TrimSpace(src.Name)
	if name == "" {
		name = "secret"
	}

	file := strings.TrimSpace(src.File)
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s from file %q: %w", name, file, err)
		}
		secret := strings.TrimSpace(string(data))
		if secret == "" {
			return "", fmt.Errorf("%s file %q is empty", name, file)
		}
		return secret, nil
	}

	secret := strings.TrimSpace(src.Value)
	if secret == "" {
		return "", fmt.Errorf("%s is not configured", name)
	}
	return secret, nil
}
