package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"

	"github.com/MWade09/Live-Code-Editor-sub004/internal/client"
)

const defaultServer = "ws://localhost:8000/terminal"

// Profile is the optional YAML file holding client defaults. Flags given on
// the command line win over it.
type Profile struct {
	Server  string       `yaml:"server"`
	Cwd     string       `yaml:"cwd,omitempty"`
	Offline bool         `yaml:"offline,omitempty"`
	LogFile string       `yaml:"log_file,omitempty"`
	Local   LocalProfile `yaml:"local,omitempty"`
}

// LocalProfile configures the offline command simulation.
type LocalProfile struct {
	User  string   `yaml:"user,omitempty"`
	Host  string   `yaml:"host,omitempty"`
	Cwd   string   `yaml:"cwd,omitempty"`
	Files []string `yaml:"files,omitempty"`
}

func (p LocalProfile) options() client.LocalOptions {
	return client.LocalOptions{
		User:  p.User,
		Host:  p.Host,
		Cwd:   p.Cwd,
		Files: p.Files,
	}
}

// defaultProfilePath returns ~/.config/termclient/profile.yaml.
func defaultProfilePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "termclient", "profile.yaml")
}

// loadProfile reads path. A missing file yields the defaults when
// required is false.
func loadProfile(path string, required bool) (Profile, error) {
	profile := Profile{Server: defaultServer}
	if path == "" {
		return profile, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return profile, nil
		}
		return Profile{}, fmt.Errorf("read profile: %w", err)
	}
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return Profile{}, fmt.Errorf("parse profile %s: %w", path, err)
	}
	if profile.Server == "" {
		profile.Server = defaultServer
	}
	return profile, nil
}
