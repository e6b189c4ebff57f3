// Package config loads camview settings from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Settings holds the whole configuration. Zero values are filled from the
// default tags before the file is applied.
type Settings struct {
	Scenes     Scenes     `yaml:"scenes"`
	Visibility Visibility `yaml:"visibility"`
	Server     Server     `yaml:"server"`
	Log        Log        `yaml:"log"`
}

// Scenes says where scene documents come from. When Minio is set the
// documents are read from the bucket instead of Dir.
type Scenes struct {
	Dir      string `yaml:"dir" default:"scenes" validate:"required"`
	Validate bool   `yaml:"validate" default:"true"`
	Minio    *Minio `yaml:"minio"`
}

type Minio struct {
	Endpoint  string `yaml:"endpoint" validate:"required,hostname_port"`
	Bucket    string `yaml:"bucket" validate:"required"`
	Prefix    string `yaml:"prefix"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type Visibility struct {
	Strict        bool `yaml:"strict"`
	ApplyOverscan bool `yaml:"apply_overscan" default:"false"`
	ApplySqueeze  bool `yaml:"apply_squeeze" default:"true"`
}

type Server struct {
	Addr            string        `yaml:"addr" default:":8080" validate:"required"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s" validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"5s" validate:"gte=0"`
}

type Log struct {
	Level       string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Encoding    string `yaml:"encoding" default:"console" validate:"oneof=console json"`
	Development bool   `yaml:"development"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Default returns the settings used when no file is given.
func Default() *Settings {
	s := &Settings{}
	if err := defaults.Set(s); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return s
}

// Load reads settings from path. An empty path yields Default().
func Load(path string) (*Settings, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes YAML over the defaults and validates the result. Unknown
// keys are rejected.
func Parse(data []byte) (*Settings, error) {
	s := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(s); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
