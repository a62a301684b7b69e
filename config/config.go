package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"shen-meme-go/slogger"
)

var logger = slogger.New("config")

// Config holds all configuration for the application
type Config struct {
	App    AppConfig    `mapstructure:"app"`
	OneBot OneBotConfig `mapstructure:"onebot"`
	Shen   ShenConfig   `mapstructure:"shen"`
}

// AppConfig holds application-specific configuration
type AppConfig struct {
	RedisURL string `mapstructure:"redis"`
	Debug    bool   `mapstructure:"debug"`
	DataDir  string `mapstructure:"dataDir"`
	LogLevel string `mapstructure:"logLevel"`
}

type OneBotConfig struct {
	Server        string        `mapstructure:"server"`
	AccessToken   string        `mapstructure:"accessToken"`
	ActionTimeout time.Duration `mapstructure:"actionTimeout"`
}

type ShenConfig struct {
	Trigger     string        `mapstructure:"trigger"`
	ApiBaseURL  string        `mapstructure:"apiBaseUrl"`
	Timeout     time.Duration `mapstructure:"timeout"`
	SendGroupId bool          `mapstructure:"sendGroupId"`
	// card (group display name) wins over nickname when set
	PreferCard    bool          `mapstructure:"preferCard"`
	CleanupCron   string        `mapstructure:"cleanupCron"`
	CleanupMaxAge time.Duration `mapstructure:"cleanupMaxAge"`
}

const DefaultApiBaseURL = "http://47.105.107.105:8000"

// LoadConfig loads the configuration from the specified file
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set default configuration values
	setDefaults(v)

	v.SetConfigType("toml")
	v.SetEnvPrefix("SHEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.shen-meme")
		v.AddConfigPath("/etc/shen-meme")
	}

	if err := v.ReadInConfig(); err != nil {
		// If the config file wasn't found, initialize and create one
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			fmt.Println("Config file not found, creating default configuration")
			return createDefaultConfig(v)
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	return decode(v)
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.redis", "")
	v.SetDefault("app.dataDir", "$HOME/.shen-meme")
	v.SetDefault("app.logLevel", "info")
	v.SetDefault("app.debug", false)

	v.SetDefault("onebot.server", "ws://127.0.0.1:3001")
	v.SetDefault("onebot.accessToken", "")
	v.SetDefault("onebot.actionTimeout", "10s")

	v.SetDefault("shen.trigger", "神")
	v.SetDefault("shen.apiBaseUrl", DefaultApiBaseURL)
	v.SetDefault("shen.timeout", "20s")
	v.SetDefault("shen.sendGroupId", false)
	v.SetDefault("shen.preferCard", false)
	v.SetDefault("shen.cleanupCron", "")
	v.SetDefault("shen.cleanupMaxAge", "24h")
}

// createDefaultConfig creates a default configuration file if none exists
func createDefaultConfig(v *viper.Viper) (*Config, error) {
	configDir := os.ExpandEnv("$HOME/.shen-meme")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("error creating config directory: %w", err)
	}

	configFile := filepath.Join(configDir, "config.toml")
	if err := v.WriteConfigAs(configFile); err != nil {
		return nil, fmt.Errorf("error creating default config file: %w", err)
	}

	logger.Info("Created default config file", "path", configFile)

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.App.DataDir = os.ExpandEnv(config.App.DataDir)
	if strings.TrimSpace(config.Shen.ApiBaseURL) == "" {
		config.Shen.ApiBaseURL = DefaultApiBaseURL
	}
	if config.Shen.Trigger == "" {
		return nil, fmt.Errorf("shen.trigger must not be empty")
	}
	return &config, nil
}

// TmpDir is where generated images are written.
func (c *Config) TmpDir() string {
	return filepath.Join(c.App.DataDir, "shen_meme", "tmp")
}
