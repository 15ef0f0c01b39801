package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// ConnectorSettings tunes one external platform connector.
type ConnectorSettings struct {
	BaseURL    string        `mapstructure:"base_url"`
	APIVersion string        `mapstructure:"api_version"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Rate       float64       `mapstructure:"rate"`
	Burst      int           `mapstructure:"burst"`
}

type ConnectorConfig struct {
	Targets map[string]ConnectorSettings `mapstructure:"targets"`
}

func DefaultConnectorConfig() ConnectorConfig {
	return ConnectorConfig{
		Targets: map[string]ConnectorSettings{
			"shopify": {
				APIVersion: "2024-10",
				Timeout:    15 * time.Second,
				Rate:       2,
				Burst:      40,
			},
			"amazon": {
				Timeout: 20 * time.Second,
				Rate:    0.5,
				Burst:   10,
			},
		},
	}
}

// Settings returns the tuning for target, falling back to the defaults when
// the loaded file does not mention it.
func (c ConnectorConfig) Settings(target string) ConnectorSettings {
	target = strings.ToLower(strings.TrimSpace(target))
	if s, ok := c.Targets[target]; ok {
		return s
	}
	return DefaultConnectorConfig().Targets[target]
}

type ConnectorConfigHolder struct {
	current atomic.Value // holds ConnectorConfig
}

func NewConnectorConfigHolder() (*ConnectorConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("connectors")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/pricesync")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PRICESYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	holder := &ConnectorConfigHolder{}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		holder.current.Store(DefaultConnectorConfig())
		return holder, nil
	}

	cfg, err := decodeConnectorConfig(v)
	if err != nil {
		return nil, err
	}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeConnectorConfig(v)
		if err != nil {
			log.Printf("[connector-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[connector-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticConnectorConfigHolder pins a config without watching any file.
func NewStaticConnectorConfigHolder(cfg ConnectorConfig) *ConnectorConfigHolder {
	holder := &ConnectorConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *ConnectorConfigHolder) Get() ConnectorConfig {
	if h == nil {
		return DefaultConnectorConfig()
	}
	return h.current.Load().(ConnectorConfig)
}

func (h *ConnectorConfigHolder) Settings(target string) ConnectorSettings {
	return h.Get().Settings(target)
}

func decodeConnectorConfig(v *viper.Viper) (ConnectorConfig, error) {
	var cfg ConnectorConfig
	if err := v.UnmarshalKey("connectors", &cfg); err != nil {
		return ConnectorConfig{}, err
	}
	if err := validateConnectorConfig(cfg); err != nil {
		return ConnectorConfig{}, err
	}
	return cfg, nil
}

func validateConnectorConfig(cfg ConnectorConfig) error {
	if len(cfg.Targets) == 0 {
		return errors.New("connectors.targets cannot be empty")
	}
	for name, s := range cfg.Targets {
		if s.Timeout < 0 {
			return fmt.Errorf("connectors.targets.%s.timeout must not be negative", name)
		}
		if s.Rate < 0 || s.Burst < 0 {
			return fmt.Errorf("connectors.targets.%s rate and burst must not be negative", name)
		}
	}
	return nil
}
