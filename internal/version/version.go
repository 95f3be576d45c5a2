package version

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/gessage/gcm/internal/format"
)

const (
	ConfigFile  = "version.cfg"
	DefaultFile = "version.txt"
	BadgeDir    = ".badges"

	ModeCommits = "commits"
	ModeDate    = "date"
)

// Config is the optional version.cfg of a repository.
type Config struct {
	// File receives the version string, relative to the repository root.
	File string `yaml:"file"`
	// Mode is commits, date or anything else for no stamping.
	Mode string `yaml:"mode"`
}

// LoadConfig reads path. A missing file is not an error; found reports
// whether it existed.
func LoadConfig(path string) (cfg Config, found bool, err error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Config{}, false, nil
	}
	if err != nil {
		return Config{}, false, errors.Wrapf(err, "read %s", path)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, true, errors.Wrapf(err, "parse %s", path)
	}
	return cfg, true, nil
}

// CommitCounter is the part of a repository the commits mode needs.
type CommitCounter interface {
	CommitCount(ctx context.Context) (int, error)
}

// Result describes a stamp that was written.
type Result struct {
	Version string
	File    string
	// Badge is the badge JSON path, empty when no badge was written.
	Badge string
}

// Stamp computes the version for cfg.Mode and writes it under dir. It
// returns a nil Result when the mode does not stamp.
func Stamp(ctx context.Context, dir string, cfg Config, counter CommitCounter, now time.Time) (*Result, error) {
	var v string
	switch cfg.Mode {
	case ModeCommits:
		n := 1
		if counter != nil {
			if c, err := counter.CommitCount(ctx); err == nil {
				n = c + 1
			}
		}
		v = format.CommitNumber(n)
	case ModeDate:
		v = now.Format("20060102150405")
	default:
		return nil, nil
	}

	file := cfg.File
	if file == "" {
		file = DefaultFile
	}
	if !filepath.IsAbs(file) {
		file = filepath.Join(dir, file)
	}
	if err := os.WriteFile(file, []byte(v), 0o644); err != nil {
		return nil, errors.Wrapf(err, "write %s", file)
	}
	res := &Result{Version: v, File: file}

	badges := filepath.Join(dir, BadgeDir)
	if fi, err := os.Stat(badges); err == nil && fi.IsDir() {
		path, err := writeBadge(badges, v)
		if err != nil {
			return res, err
		}
		res.Badge = path
	}
	return res, nil
}

type badge struct {
	SchemaVersion int    `json:"schemaVersion"`
	Label         string `json:"label"`
	Message       string `json:"message"`
	Color         string `json:"color"`
}

// writeBadge writes a shields.io endpoint badge for v.
func writeBadge(dir, v string) (string, error) {
	b, err := json.MarshalIndent(badge{SchemaVersion: 1, Label: "version", Message: v, Color: "blue"}, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "encode badge")
	}
	path := filepath.Join(dir, "version.json")
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return "", errors.Wrapf(err, "write %s", path)
	}
	return path, nil
}
