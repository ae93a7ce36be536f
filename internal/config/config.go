// Package config loads giskard task file profiles.
//
// A profile names a task file, an optional done file and whether finished
// tasks should be discarded when no done file is given. Profiles are read from
// a TOML or YAML file:
//
//	[[taskfiles]]
//	name = "personal"
//	task_file = "~/todo/todo.txt"
//	done_file = "~/todo/done.txt"
//	discard_done = false
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"

	"github.com/bryan-cox/giskard/internal/taskfile"
)

// AppName is the directory giskard looks for under the XDG config dirs.
const AppName = "giskard"

// configNames are searched in order under each XDG config directory.
var configNames = []string{"config.toml", "config.yaml", "config.yml"}

var (
	// ErrNoConfig is returned when no configuration file can be found.
	ErrNoConfig = errors.New("no configuration file found")
	// ErrMalformed is matched by decode and validation errors.
	ErrMalformed = errors.New("malformed configuration")
	// ErrUnknownTaskFile is returned by Select for a name no profile carries.
	ErrUnknownTaskFile = errors.New("unknown task file")
)

// TaskFile is one named task file profile.
type TaskFile struct {
	Name        string `toml:"name" yaml:"name"`
	TaskFile    string `toml:"task_file" yaml:"task_file"`
	DoneFile    string `toml:"done_file" yaml:"done_file"`
	DiscardDone bool   `toml:"discard_done" yaml:"discard_done"`
}

// Config is the top-level configuration file structure.
type Config struct {
	TaskFiles []TaskFile `toml:"taskfiles" yaml:"taskfiles"`

	// Path is the file the configuration was read from.
	Path string `toml:"-" yaml:"-"`
}

// DefaultPath returns where the configuration file is expected when none
// exists yet.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, configNames[0])
}

// Find returns the first configuration file under the XDG config dirs.
func Find() (string, error) {
	for _, name := range configNames {
		if path, err := xdg.SearchConfigFile(filepath.Join(AppName, name)); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: create %s or pass --config", ErrNoConfig, DefaultPath())
}

// Load reads the configuration at path, or the one found by Find when path
// is empty. The format follows the file extension; anything that is not
// .yaml or .yml is read as TOML.
func Load(path string) (*Config, error) {
	if path == "" {
		found, err := Find()
		if err != nil {
			return nil, err
		}
		path = found
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config file '%s': %w", path, err)
	}

	cfg, err := Decode(data, formatOf(path))
	if err != nil {
		return nil, fmt.Errorf("could not parse config file '%s': %w", path, err)
	}
	cfg.Path = path
	return cfg, nil
}

// Format is a configuration file syntax.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

func formatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatTOML
	}
}

// Decode parses and validates configuration data.
func Decode(data []byte, format Format) (*Config, error) {
	var cfg Config
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
	case FormatTOML:
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", format)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that every profile is usable and names are unique.
func (c *Config) Validate() error {
	if len(c.TaskFiles) == 0 {
		return fmt.Errorf("%w: no taskfiles defined", ErrMalformed)
	}
	seen := make(map[string]bool, len(c.TaskFiles))
	for i, tf := range c.TaskFiles {
		if tf.Name == "" {
			return fmt.Errorf("%w: taskfiles[%d]: missing name", ErrMalformed, i)
		}
		if seen[tf.Name] {
			return fmt.Errorf("%w: taskfiles[%d]: duplicate name %q", ErrMalformed, i, tf.Name)
		}
		seen[tf.Name] = true
		if tf.TaskFile == "" {
			return fmt.Errorf("%w: taskfiles[%d] (%s): missing task_file", ErrMalformed, i, tf.Name)
		}
	}
	return nil
}

// Select returns the profile called name, or the first profile when name
// is empty.
func (c *Config) Select(name string) (TaskFile, error) {
	if len(c.TaskFiles) == 0 {
		return TaskFile{}, fmt.Errorf("%w: no taskfiles defined", ErrMalformed)
	}
	if name == "" {
		return c.TaskFiles[0], nil
	}
	for _, tf := range c.TaskFiles {
		if tf.Name == name {
			return tf, nil
		}
	}
	return TaskFile{}, fmt.Errorf("%w: there is no taskfile named %q in %s", ErrUnknownTaskFile, name, c.Path)
}

// StoreOptions resolves the profile into the task file path and the store
// options. Finished tasks go to the done file when one is set, stay in the
// task file unless discard_done is set, and are dropped otherwise.
func (tf TaskFile) StoreOptions() (string, taskfile.Options, error) {
	path, err := homedir.Expand(tf.TaskFile)
	if err != nil {
		return "", taskfile.Options{}, fmt.Errorf("could not expand task_file '%s': %w", tf.TaskFile, err)
	}

	var opts taskfile.Options
	switch {
	case tf.DoneFile != "":
		done, err := homedir.Expand(tf.DoneFile)
		if err != nil {
			return "", taskfile.Options{}, fmt.Errorf("could not expand done_file '%s': %w", tf.DoneFile, err)
		}
		opts.ArchivePath = done
	case !tf.DiscardDone:
		opts.ArchivePath = path
	}
	return path, opts, nil
}
