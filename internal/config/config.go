package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/suenchunyu/wordcount/internal/model"
	"github.com/suenchunyu/wordcount/internal/process"
)

const (
	defaultSplitSize   = 32 << 20
	defaultStatusEvery = 100
)

var (
	ErrMissingInput    = errors.New("input location is required")
	ErrMissingOutput   = errors.New("output location is required")
	ErrMissingArtifact = errors.New("external artifact is required")
	ErrParamCount      = errors.New("exactly two artifact parameters are required")
	ErrUnknownCadence  = errors.New("unknown invocation cadence")
	ErrUnknownNetwork  = errors.New("unknown monitor network")
)

type Config struct {
	Job struct {
		Name          string   `yaml:"name"`
		Input         string   `yaml:"input"`
		Output        string   `yaml:"output"`
		CaseSensitive bool     `yaml:"case_sensitive"`
		SkipFiles     []string `yaml:"skip_files"`
		Mappers       int      `yaml:"mappers"`
		Reducers      int      `yaml:"reducers"`
		SplitSize     int64    `yaml:"split_size"`
		StatusEvery   int64    `yaml:"status_every"`
	} `yaml:"job"`
	Exec struct {
		Command  string   `yaml:"command"`
		Args     []string `yaml:"args"`
		Artifact string   `yaml:"artifact"`
		Params   []string `yaml:"params"`
		Dir      string   `yaml:"dir"`
		Cadence  string   `yaml:"cadence"`
	} `yaml:"exec"`
	Cache struct {
		Dir          string `yaml:"dir"`
		S3Endpoint   string `yaml:"s3_endpoint"`
		AccessKey    string `yaml:"access_key"`
		AccessSecret string `yaml:"access_secret"`
		UseSSL       bool   `yaml:"use_ssl"`
	} `yaml:"cache"`
	Result struct {
		Enabled bool   `yaml:"enabled"`
		Bucket  string `yaml:"bucket"`
		Prefix  string `yaml:"prefix"`
	} `yaml:"result"`
	Monitor struct {
		Enabled bool   `yaml:"enabled"`
		Network string `yaml:"network"`
		Host    string `yaml:"host"`
		Port    int    `yaml:"port"`
	} `yaml:"monitor"`
}

// Default returns the configuration the job runs with when no config
// file is given: java -Djava.awt.headless=false -jar <artifact> <p1> <p2>,
// case-sensitive counting and a status line every 100 records.
func Default() *Config {
	c := new(Config)
	c.Job.Name = "wordcount"
	c.Job.CaseSensitive = true
	c.Job.Mappers = 4
	c.Job.Reducers = 1
	c.Job.SplitSize = defaultSplitSize
	c.Job.StatusEvery = defaultStatusEvery
	c.Exec.Command = "java"
	c.Exec.Args = []string{"-Djava.awt.headless=false", "-jar"}
	c.Exec.Dir = "."
	c.Exec.Cadence = process.CadencePerRecord.String()
	c.Cache.Dir = os.TempDir()
	c.Monitor.Network = "tcp"
	c.Monitor.Host = "127.0.0.1"
	c.Monitor.Port = 7070
	return c
}

// Load reads a YAML file over c. Fields missing from the file keep
// whatever c already holds, so callers usually pass Default().
func Load(filename string, c *Config) error {
	bytes, err := os.ReadFile(filename)
	if err != nil {
		return model.NewError(model.KindConfiguration, "load", filename, err)
	}

	if err = yaml.Unmarshal(bytes, c); err != nil {
		return model.NewError(model.KindConfiguration, "parse", filename, err)
	}
	return nil
}

// Validate checks everything the job needs before any record is read.
func (c *Config) Validate() error {
	fail := func(err error) error {
		return model.NewError(model.KindConfiguration, "validate", "", err)
	}

	switch {
	case c.Job.Input == "":
		return fail(ErrMissingInput)
	case c.Job.Output == "":
		return fail(ErrMissingOutput)
	case c.Exec.Artifact == "":
		return fail(ErrMissingArtifact)
	case len(c.Exec.Params) != 2:
		return fail(fmt.Errorf("%w, got %d", ErrParamCount, len(c.Exec.Params)))
	case c.Job.Mappers <= 0:
		return fail(fmt.Errorf("mappers must be positive, got %d", c.Job.Mappers))
	case c.Job.Reducers <= 0:
		return fail(fmt.Errorf("reducers must be positive, got %d", c.Job.Reducers))
	case c.Job.SplitSize <= 0:
		return fail(fmt.Errorf("split size must be positive, got %d", c.Job.SplitSize))
	case c.Job.StatusEvery <= 0:
		return fail(fmt.Errorf("status interval must be positive, got %d", c.Job.StatusEvery))
	}

	if process.CadenceFromString(c.Exec.Cadence).String() != strings.ToLower(c.Exec.Cadence) {
		return fail(fmt.Errorf("%w: %q", ErrUnknownCadence, c.Exec.Cadence))
	}

	if c.Monitor.Enabled {
		switch strings.ToLower(c.Monitor.Network) {
		case "tcp", "tcp4", "unix":
		default:
			return fail(fmt.Errorf("%w: %q", ErrUnknownNetwork, c.Monitor.Network))
		}
	}

	if c.Result.Enabled && c.Result.Bucket == "" {
		return fail(errors.New("result upload needs a bucket"))
	}
	if (c.Result.Enabled || c.hasRemoteSkipFiles()) && c.Cache.S3Endpoint == "" {
		return fail(errors.New("s3 endpoint is required for s3:// references and result upload"))
	}

	return nil
}

func (c *Config) hasRemoteSkipFiles() bool {
	for _, ref := range c.Job.SkipFiles {
		if strings.HasPrefix(ref, "s3://") {
			return true
		}
	}
	return false
}

// Job is the validated, immutable view of a Config handed to every
// component. Slices are copied so later edits to the Config do not leak in.
type Job struct {
	Name          string
	Input         string
	Output        string
	CaseSensitive bool
	SkipFiles     []string
	Mappers       int
	Reducers      int
	SplitSize     int64
	StatusEvery   int64

	Command  string
	Args     []string // command arguments, artifact and params appended
	Artifact string
	Dir      string
	Cadence  process.Cadence
}

// Freeze validates c and returns its immutable Job view.
func (c *Config) Freeze() (Job, error) {
	if err := c.Validate(); err != nil {
		return Job{}, err
	}

	// Without an interpreter the artifact itself is launched with the
	// params alone.
	command, args := c.Exec.Artifact, append([]string(nil), c.Exec.Params...)
	if c.Exec.Command != "" {
		command = c.Exec.Command
		args = make([]string, 0, len(c.Exec.Args)+1+len(c.Exec.Params))
		args = append(args, c.Exec.Args...)
		args = append(args, c.Exec.Artifact)
		args = append(args, c.Exec.Params...)
	}

	return Job{
		Name:          c.Job.Name,
		Input:         c.Job.Input,
		Output:        c.Job.Output,
		CaseSensitive: c.Job.CaseSensitive,
		SkipFiles:     append([]string(nil), c.Job.SkipFiles...),
		Mappers:       c.Job.Mappers,
		Reducers:      c.Job.Reducers,
		SplitSize:     c.Job.SplitSize,
		StatusEvery:   c.Job.StatusEvery,
		Command:       command,
		Args:          args,
		Artifact:      c.Exec.Artifact,
		Dir:           c.Exec.Dir,
		Cadence:       process.CadenceFromString(c.Exec.Cadence),
	}, nil
}
