package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"taskboard/internal/util"
)

// session is what login remembers between invocations.
type session struct {
	API    string `yaml:"api,omitempty"`
	Token  string `yaml:"token,omitempty"`
	UserID string `yaml:"user_id,omitempty"`
	Name   string `yaml:"name,omitempty"`
	Email  string `yaml:"email,omitempty"`
}

func defaultSessionPath() string {
	if p := util.EnvOrDefault("TASKCTL_SESSION", ""); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".taskctl", "session.yaml")
	}
	return filepath.Join(home, ".taskctl", "session.yaml")
}

// loadSession returns an empty session when the file does not exist yet.
func loadSession(path string) (session, error) {
	var s session
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("read session: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parse session %s: %w", path, err)
	}
	return s, nil
}

func saveSession(path string, s session) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func clearSession(path string) error {
	err := os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
