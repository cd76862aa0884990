package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

const (
	LogFileName   = "log.txt"
	HistoryDBName = "history.db"
)

type Config struct {
	Source   string        `mapstructure:"-"`
	Replica  string        `mapstructure:"-"`
	LogDir   string        `mapstructure:"-"`
	Interval time.Duration `mapstructure:"-"`

	DaemonPort    int           `mapstructure:"daemon_port"`
	DBPath        string        `mapstructure:"db_path"`
	IgnoreList    []string      `mapstructure:"ignore_list"`
	Watch         bool          `mapstructure:"watch"`
	WatchDebounce time.Duration `mapstructure:"watch_debounce"`

	// HistoryRetention drops older tick history at startup. Zero keeps everything.
	HistoryRetention time.Duration `mapstructure:"history_retention"`
}

var Default = Config{
	DaemonPort:    9401,
	DBPath:        "",
	IgnoreList:    []string{},
	Watch:         false,
	WatchDebounce: 500 * time.Millisecond,

	HistoryRetention: 0,
}

// Load reads the ambient settings. An explicit file must exist; otherwise
// config.yaml is looked up in ~/.foldersync and the working directory.
func Load(file string) (*Config, error) {
	v := viper.New()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".foldersync"))
		}
		v.AddConfigPath(".")
	}

	v.SetDefault("daemon_port", Default.DaemonPort)
	v.SetDefault("db_path", Default.DBPath)
	v.SetDefault("ignore_list", Default.IgnoreList)
	v.SetDefault("watch", Default.Watch)
	v.SetDefault("watch_debounce", Default.WatchDebounce)
	v.SetDefault("history_retention", Default.HistoryRetention)

	v.SetEnvPrefix("FOLDERSYNC")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if ok := errors.As(err, &notFound); !ok || file != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.DaemonPort < 0 || cfg.DaemonPort > 65535 {
		return nil, fmt.Errorf("invalid daemon_port %d", cfg.DaemonPort)
	}

	return &cfg, nil
}

// WithArgs returns a copy of c filled from the four positional arguments:
// source, replica, log directory and interval in seconds.
func (c Config) WithArgs(args []string) (Config, error) {
	if len(args) != 4 {
		return Config{}, &ArgumentError{Msg: UsageMessage}
	}

	seconds, err := ParseInterval(args[3])
	if err != nil {
		return Config{}, err
	}

	c.Source = args[0]
	c.Replica = args[1]
	c.LogDir = args[2]
	c.Interval = time.Duration(seconds) * time.Second
	c.IgnoreList = append([]string(nil), c.IgnoreList...)

	return c, nil
}

// ParseInterval accepts a positive 32-bit whole number of seconds.
func ParseInterval(s string) (int, error) {
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil || n <= 0 {
		return 0, &ArgumentError{Msg: InvalidIntervalMessage}
	}

	return int(n), nil
}

func (c Config) LogFile() string {
	return filepath.Join(c.LogDir, LogFileName)
}

func (c Config) HistoryDB() string {
	if c.DBPath != "" {
		return c.DBPath
	}

	return filepath.Join(c.LogDir, HistoryDBName)
}

// Directories lists the directories bootstrapped at startup. The log
// directory comes first so later bootstrap lines reach the log file.
func (c Config) Directories() []string {
	return []string{c.LogDir, c.Source, c.Replica}
}
