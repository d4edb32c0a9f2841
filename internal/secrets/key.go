package secrets

import (
	"errors"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// Service groups the app's secrets in the OS keychain.
	KeyringService = "internwatch"

	FunctionKeyAccount = "function-key"
	FunctionKeyEnv     = "INTERNWATCH_FUNCTION_KEY"
)

var ErrNoFunctionKey = errors.New("function key not configured")

// FunctionKey returns the bearer key guarding the function endpoints: the
// environment first, then the keychain. ErrNoFunctionKey means the
// endpoints run unauthenticated.
func FunctionKey() (string, error) {
	if k := strings.TrimSpace(os.Getenv(FunctionKeyEnv)); k != "" {
		return k, nil
	}
	k, err := keyring.Get(KeyringService, FunctionKeyAccount)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNoFunctionKey
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(k) == "" {
		return "", ErrNoFunctionKey
	}
	return strings.TrimSpace(k), nil
}

func SetFunctionKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("function key is empty")
	}
	return keyring.Set(KeyringService, FunctionKeyAccount, strings.TrimSpace(key))
}

func DeleteFunctionKey() error {
	err := keyring.Delete(KeyringService, FunctionKeyAccount)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}
