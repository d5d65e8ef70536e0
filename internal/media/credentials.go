package media

import (
	"errors"
	"fmt"
	"os"
)

// stagedCredential is a temporary file holding fetcher credentials for one session.
type stagedCredential struct {
	path string
}

func stageCredential(contents string) (*stagedCredential, error) {
	f, err := os.CreateTemp("", "jimaku-cookies-*.txt")
	if err != nil {
		return nil, fmt.Errorf("create credential file: %w", err)
	}
	path := f.Name()
	if err := f.Chmod(0o600); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("restrict credential file: %w", err)
	}
	if _, err := f.WriteString(contents); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("write credential file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("close credential file: %w", err)
	}
	return &stagedCredential{path: path}, nil
}

func (c *stagedCredential) Erase() error {
	if c == nil || c.path == "" {
		return nil
	}
	err := os.Remove(c.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
