package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Identity is the locally persisted (userId, username) pair. The userId is
// generated once on first use and preserved across sessions; the username is
// user-chosen and may change.
type Identity struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// LoadIdentity reads the identity state file, generating and persisting a
// fresh userId when the file does not exist yet.
func LoadIdentity(path string) (Identity, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		id := Identity{UserID: uuid.New().String()}
		if err := SaveIdentity(path, id); err != nil {
			return Identity{}, err
		}
		return id, nil
	}
	if err != nil {
		return Identity{}, fmt.Errorf("reading identity file: %w", err)
	}

	var id Identity
	if err := json.Unmarshal(data, &id); err != nil {
		return Identity{}, fmt.Errorf("parsing identity file: %w", err)
	}
	if id.UserID == "" {
		id.UserID = uuid.New().String()
		if err := SaveIdentity(path, id); err != nil {
			return Identity{}, err
		}
	}
	return id, nil
}

// SaveIdentity writes the identity state file, creating parent directories
// as needed.
func SaveIdentity(path string, id Identity) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating identity dir: %w", err)
		}
	}
	data, err := json.MarshalIndent(id, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling identity: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing identity file: %w", err)
	}
	return nil
}
