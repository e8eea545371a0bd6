package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	ErrEndpointMissing = errors.New("no order store endpoint configured")
	ErrInvalidEndpoint = errors.New("order store endpoint must be an http(s) url")
)

// Endpoint resolves the order store URL: a saved override first, then the
// configured default.
type Endpoint struct {
	mu           sync.RWMutex
	defaultURL   string
	overrideFile string
	validate     *validator.Validate
}

func NewEndpoint(defaultURL, overrideFile string) *Endpoint {
	return &Endpoint{
		defaultURL:   strings.TrimSpace(defaultURL),
		overrideFile: overrideFile,
		validate:     validator.New(),
	}
}

func (e *Endpoint) Resolve() (string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.overrideFile != "" {
		data, err := os.ReadFile(e.overrideFile)
		switch {
		case err == nil:
			if u := strings.TrimSpace(string(data)); u != "" {
				return u, nil
			}
		case !errors.Is(err, fs.ErrNotExist):
			return "", fmt.Errorf("config: read endpoint override: %w", err)
		}
	}
	if e.defaultURL == "" {
		return "", ErrEndpointMissing
	}
	return e.defaultURL, nil
}

// Configured reports whether Resolve would return a URL.
func (e *Endpoint) Configured() bool {
	_, err := e.Resolve()
	return err == nil
}

// Override saves rawURL so later calls to Resolve return it.
func (e *Endpoint) Override(rawURL string) error {
	rawURL = strings.TrimSpace(rawURL)
	if err := e.validate.Var(rawURL, "required,http_url"); err != nil {
		return fmt.Errorf("config: %w: %v", ErrInvalidEndpoint, err)
	}
	if e.overrideFile == "" {
		return fmt.Errorf("config: no override file configured: %w", ErrEndpointMissing)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	dir := filepath.Dir(e.overrideFile)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("config: save endpoint override: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".endpoint-*")
	if err != nil {
		return fmt.Errorf("config: save endpoint override: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(rawURL + "\n"); err != nil {
		tmp.Close()
		return fmt.Errorf("config: save endpoint override: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("config: save endpoint override: %w", err)
	}
	if err := os.Rename(tmp.Name(), e.overrideFile); err != nil {
		return fmt.Errorf("config: save endpoint override: %w", err)
	}
	return nil
}
