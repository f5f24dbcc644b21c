package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode        string        `mapstructure:"mode"`
	Port        int           `mapstructure:"port"`
	StaticPath  string        `mapstructure:"static_path"`
	ReadLimit   int64         `mapstructure:"read_limit"`
	PingPeriod  time.Duration `mapstructure:"ping_period"`
	WriteWait   time.Duration `mapstructure:"write_wait"`
	SendBuffer  int           `mapstructure:"send_buffer"`
	Secret      string        `mapstructure:"secret"`
	Store       string        `mapstructure:"store"`
	DBPath      string        `mapstructure:"db_path"`
	AskLimit    int           `mapstructure:"ask_limit"`
	AskInterval time.Duration `mapstructure:"ask_interval"`
	SlowPolicy  string        `mapstructure:"slow_policy"`
	LogLevel    string        `mapstructure:"log_level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("write_wait", "5s")
	v.SetDefault("send_buffer", 32)
	v.SetDefault("secret", "doubts-dev-secret")
	v.SetDefault("store", "sqlite")
	v.SetDefault("db_path", "./doubts.db")
	v.SetDefault("ask_limit", 5)
	v.SetDefault("ask_interval", "10s")
	v.SetDefault("slow_policy", "close")
	v.SetDefault("log_level", "info")
}

// Load reads config/config.<CONFIG_ENV>.yaml, or file when it is set, on top
// of defaults. DOUBTS_* environment variables override both.
func Load(v *viper.Viper, file string) (*Config, error) {
	v.SetConfigType("yaml")
	setDefaults(v)

	explicit := file != ""
	if !explicit {
		env := os.Getenv("CONFIG_ENV")
		if env == "" {
			env = "dev"
		}
		file = fmt.Sprintf("config/config.%s.yaml", env)
	}
	v.SetConfigFile(file)
	v.SetEnvPrefix("doubts")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// only a missing per-env default file may be skipped
		if explicit || !isNotFound(err) {
			return nil, fmt.Errorf("failed to read config %s: %w", file, err)
		}
		log.Warn().Str("module", "config").Str("file", file).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", file).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.PingPeriod < 0 || cfg.WriteWait <= 0 {
		return nil, fmt.Errorf("invalid timings: ping_period=%s write_wait=%s", cfg.PingPeriod, cfg.WriteWait)
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Str("store", cfg.Store).Msg("config ready")
	return &cfg, nil
}

func isNotFound(err error) bool {
	var nf viper.ConfigFileNotFoundError
	return errors.As(err, &nf) || errors.Is(err, fs.ErrNotExist)
}
