package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

const sessionFile = "token"

var ErrNotLoggedIn = errors.New("not logged in, run chatctl login first")

// Session is what login persists between invocations.
type Session struct {
	UserID uuid.UUID `json:"userId"`
	Name   string    `json:"name"`
	Token  string    `json:"token"`
}

func SaveSession(dir string, s *Session) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if err := os.WriteFile(sessionPath(dir), data, 0o600); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

func LoadSession(dir string) (*Session, error) {
	data, err := os.ReadFile(sessionPath(dir))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotLoggedIn
	}
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil || s.Token == "" {
		return nil, ErrNotLoggedIn
	}
	return &s, nil
}

func sessionPath(dir string) string {
	return filepath.Join(dir, sessionFile)
}
