// Package config loads optional defaults for command line flags from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/pflag"
	"sigs.k8s.io/yaml"
)

// DefaultPath is read when --config is not given
const DefaultPath = "~/.config/mvsync/config.yaml"

type Config struct {
	DryRun      *bool      `json:"dryrun"`
	Verbose     *bool      `json:"verbose"`
	Quiet       *bool      `json:"quiet"`
	NoChecksums *bool      `json:"noChecksums"`
	SizeOnly    *bool      `json:"sizeOnly"`
	Exclude     []string   `json:"exclude"`
	SSH         *SSHConfig `json:"ssh"`
	AWS         *AWSConfig `json:"aws"`
}

type SSHConfig struct {
	Command       string `json:"command"`
	Port          *int   `json:"port"`
	RemoteCommand string `json:"remoteCommand"`
}

type AWSConfig struct {
	Profile string `json:"profile"`
	Region  string `json:"region"`
}

// Load reads the config file at path. A missing file is only an error when
// the path was given explicitly.
func Load(path string, explicit bool) (*Config, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("error expanding %s: %w", path, err)
	}

	var config Config
	data, err := os.ReadFile(expanded)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return &config, nil
		}
		return nil, fmt.Errorf("error reading %s: %w", expanded, err)
	}

	if err := yaml.UnmarshalStrict(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", expanded, err)
	}
	return &config, nil
}

// Apply sets every flag the user did not pass on the command line from the config
func (c *Config) Apply(flags *pflag.FlagSet) error {
	set := func(name, value string) error {
		f := flags.Lookup(name)
		if f == nil || f.Changed {
			return nil
		}
		if err := flags.Set(name, value); err != nil {
			return fmt.Errorf("config %s: %w", name, err)
		}
		return nil
	}
	setBool := func(name string, v *bool) error {
		if v == nil {
			return nil
		}
		return set(name, strconv.FormatBool(*v))
	}
	setString := func(name, v string) error {
		if v == "" {
			return nil
		}
		return set(name, v)
	}

	if err := setBool("dryrun", c.DryRun); err != nil {
		return err
	}
	if err := setBool("verbose", c.Verbose); err != nil {
		return err
	}
	if err := setBool("quiet", c.Quiet); err != nil {
		return err
	}
	if err := setBool("no-checksums", c.NoChecksums); err != nil {
		return err
	}
	if err := setBool("size-only", c.SizeOnly); err != nil {
		return err
	}

	if f := flags.Lookup("exclude"); f != nil && !f.Changed {
		for _, pattern := range c.Exclude {
			if err := flags.Set("exclude", pattern); err != nil {
				return fmt.Errorf("config exclude: %w", err)
			}
		}
	}

	if c.SSH != nil {
		if err := setString("ssh-command", c.SSH.Command); err != nil {
			return err
		}
		if err := setString("remote-command", c.SSH.RemoteCommand); err != nil {
			return err
		}
		if c.SSH.Port != nil {
			if err := set("ssh-port", strconv.Itoa(*c.SSH.Port)); err != nil {
				return err
			}
		}
	}

	if c.AWS != nil {
		if err := setString("profile", c.AWS.Profile); err != nil {
			return err
		}
		if err := setString("region", c.AWS.Region); err != nil {
			return err
		}
	}

	return nil
}
