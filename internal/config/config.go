// Package config loads deployment settings from redeploy.yaml, REDEPLOY_*
// environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/docker/go-units"
	"github.com/docker/docker/api/types/container"
	"github.com/spf13/viper"

	"github.com/melih/redeploy/internal/core/domain"
	"github.com/melih/redeploy/internal/core/ports"
	"github.com/melih/redeploy/internal/core/services/lifecycle"
)

// EnvPrefix is the prefix of environment overrides, e.g. REDEPLOY_CONTAINER_NAME.
const EnvPrefix = "REDEPLOY"

// Config is the full set of settings of one managed deployment.
type Config struct {
	ContainerName string        `mapstructure:"container_name"`
	ImageTag      string        `mapstructure:"image_tag"`
	VolumeName    string        `mapstructure:"volume_name"`
	EnvFile       string        `mapstructure:"env_file"`
	LogMountPath  string        `mapstructure:"log_mount_path"`
	RequiredEnv   []string      `mapstructure:"required_env"`
	StopTimeout   time.Duration `mapstructure:"stop_timeout"`
	RestartPolicy string        `mapstructure:"restart_policy"`
	Ports         []string      `mapstructure:"ports"`
	Memory        string        `mapstructure:"memory"`
	CPUs          float64       `mapstructure:"cpus"`

	Source     SourceConfig  `mapstructure:"source"`
	Dockerfile string        `mapstructure:"dockerfile"`
	NoCache    bool          `mapstructure:"no_cache"`
	Recipe     domain.Recipe `mapstructure:"recipe"`

	StateDir string        `mapstructure:"state_dir"`
	LockWait time.Duration `mapstructure:"lock_wait"`

	Log   LogConfig   `mapstructure:"log"`
	Serve ServeConfig `mapstructure:"serve"`
}

// SourceConfig locates the build context.
type SourceConfig struct {
	Dir  string `mapstructure:"dir"`
	Repo string `mapstructure:"repo"`
	Ref  string `mapstructure:"ref"`
}

// LogConfig configures the tool's own logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServeConfig configures the control API.
type ServeConfig struct {
	Addr string `mapstructure:"addr"`
}

// SetDefaults registers the defaults on v: the five-letters bot container,
// image and log volume names.
func SetDefaults(v *viper.Viper) {
	r := domain.DefaultRecipe()

	v.SetDefault("container_name", "five-letters-bot")
	v.SetDefault("image_tag", "five-letters-bot")
	v.SetDefault("volume_name", "five-letters-logs")
	v.SetDefault("env_file", ".env")
	v.SetDefault("log_mount_path", "")
	v.SetDefault("required_env", []string{"TELEGRAM_BOT_TOKEN"})
	v.SetDefault("stop_timeout", 10*time.Second)
	v.SetDefault("restart_policy", "no")
	v.SetDefault("ports", []string{})
	v.SetDefault("memory", "")
	v.SetDefault("cpus", 0.0)

	v.SetDefault("source.dir", ".")
	v.SetDefault("source.repo", "")
	v.SetDefault("source.ref", "")
	v.SetDefault("dockerfile", "")
	v.SetDefault("no_cache", false)

	v.SetDefault("recipe.base_image", r.BaseImage)
	v.SetDefault("recipe.workdir", r.WorkDir)
	v.SetDefault("recipe.manifest", r.Manifest)
	v.SetDefault("recipe.install", r.Install)
	v.SetDefault("recipe.sources", r.Sources)
	v.SetDefault("recipe.assets", r.Assets)
	v.SetDefault("recipe.log_dir", r.LogDir)
	v.SetDefault("recipe.command", r.Command)

	v.SetDefault("state_dir", ".redeploy")
	v.SetDefault("lock_wait", time.Duration(0))

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("serve.addr", ":3000")
}

// New returns a viper instance with defaults and environment overrides set
// up. When file is empty, redeploy.yaml is looked up in the working directory.
func New(file string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("redeploy")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Read loads the config file into v. A missing default file is not an error;
// a missing file named explicitly is.
func Read(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Load decodes and validates the settings held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Recipe.Env = upperKeys(cfg.Recipe.Env)
	if _, ok := cfg.Recipe.Env["LOG_DIR"]; !ok {
		cfg.Recipe.Env["LOG_DIR"] = cfg.Recipe.LogDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.ContainerName) == "" {
		errs = append(errs, errors.New("container_name must not be empty"))
	}
	if strings.TrimSpace(c.ImageTag) == "" {
		errs = append(errs, errors.New("image_tag must not be empty"))
	}
	if c.LogMountPath != "" && !path.IsAbs(c.LogMountPath) {
		errs = append(errs, fmt.Errorf("log_mount_path %q must be absolute", c.LogMountPath))
	}
	if c.StopTimeout < 0 {
		errs = append(errs, errors.New("stop_timeout must not be negative"))
	}
	if c.LockWait < 0 {
		errs = append(errs, errors.New("lock_wait must not be negative"))
	}
	if c.CPUs < 0 {
		errs = append(errs, errors.New("cpus must not be negative"))
	}
	if c.Memory != "" {
		if _, err := units.RAMInBytes(c.Memory); err != nil {
			errs = append(errs, fmt.Errorf("memory %q: %w", c.Memory, err))
		}
	}
	if len(c.Ports) > 0 {
		if _, _, err := nat.ParsePortSpecs(c.Ports); err != nil {
			errs = append(errs, fmt.Errorf("ports: %w", err))
		}
	}
	if c.RestartPolicy != "" {
		policy := container.RestartPolicy{Name: container.RestartPolicyMode(c.RestartPolicy)}
		if err := container.ValidateRestartPolicy(policy); err != nil {
			errs = append(errs, fmt.Errorf("restart_policy: %w", err))
		}
	}
	if c.Source.Repo == "" && c.Source.Dir == "" {
		errs = append(errs, errors.New("source.dir or source.repo is required"))
	}
	if c.StateDir == "" {
		errs = append(errs, errors.New("state_dir must not be empty"))
	}
	if c.Dockerfile == "" {
		if err := c.Recipe.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("recipe: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Options maps the settings onto the lifecycle service.
func (c *Config) Options() lifecycle.Options {
	return lifecycle.Options{
		ContainerName: c.ContainerName,
		ImageTag:      c.ImageTag,
		VolumeName:    c.VolumeName,
		EnvFile:       c.EnvFile,
		LogMountPath:  c.LogMountPath,
		RequiredEnv:   c.RequiredEnv,
		RestartPolicy: c.RestartPolicy,
		Ports:         c.Ports,
		Memory:        c.Memory,
		CPUs:          c.CPUs,
		Recipe:        c.Recipe,
		Source: ports.Source{
			Dir:     c.Source.Dir,
			RepoURL: c.Source.Repo,
			Ref:     c.Source.Ref,
		},
		Dockerfile: c.Dockerfile,
		NoCache:    c.NoCache,
	}
}

// viper folds map keys to lower case; image environment names are upper case.
func upperKeys(m map[string]string) map[string]string {
	out := make(map[string]string, len(m)+1)
	for k, v := range m {
		out[strings.ToUpper(k)] = v
	}
	return out
}
