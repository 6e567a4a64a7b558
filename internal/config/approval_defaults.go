package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// ApprovalDefaults is the fallback approval policy applied to organizations
// that have not stored their own settings yet.
type ApprovalDefaults struct {
	RequireApproval   bool               `mapstructure:"requireApproval"`
	AmountThresholds  AmountThresholds   `mapstructure:"amountThresholds"`
	RequiredApprovers RequiredApprovers  `mapstructure:"requiredApprovers"`
	FallbackApprovers []string           `mapstructure:"fallbackApprovers"`
	AutoApprove       AutoApproveDefault `mapstructure:"autoApprove"`
}

type AmountThresholds struct {
	Low    int64 `mapstructure:"low"`
	Medium int64 `mapstructure:"medium"`
	High   int64 `mapstructure:"high"`
}

type RequiredApprovers struct {
	Low    int `mapstructure:"low"`
	Medium int `mapstructure:"medium"`
	High   int `mapstructure:"high"`
}

type AutoApproveDefault struct {
	Enabled     bool  `mapstructure:"enabled"`
	AmountLimit int64 `mapstructure:"amountLimit"`
}

func DefaultApprovalDefaults() ApprovalDefaults {
	return ApprovalDefaults{
		RequireApproval:   true,
		AmountThresholds:  AmountThresholds{Low: 1_000, Medium: 10_000, High: 100_000},
		RequiredApprovers: RequiredApprovers{Low: 1, Medium: 2, High: 3},
	}
}

// ApprovalDefaultsHolder exposes the current defaults and hot-reloads them
// when the config file changes on disk.
type ApprovalDefaultsHolder struct {
	current atomic.Value // holds ApprovalDefaults
}

func NewApprovalDefaultsHolder() (*ApprovalDefaultsHolder, error) {
	v := viper.New()

	v.SetConfigName("approval")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/chriis/config")
	v.AddConfigPath("/etc/chriis")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CHRIIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultApprovalDefaults()
		v.SetDefault("approval.requireApproval", defaults.RequireApproval)
		v.SetDefault("approval.amountThresholds", defaults.AmountThresholds)
		v.SetDefault("approval.requiredApprovers", defaults.RequiredApprovers)
	}

	var cfg ApprovalDefaults
	if err := v.UnmarshalKey("approval", &cfg); err != nil {
		return nil, err
	}
	if err := validateApprovalDefaults(cfg); err != nil {
		return nil, err
	}

	holder := &ApprovalDefaultsHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var next ApprovalDefaults
		if err := v.UnmarshalKey("approval", &next); err != nil {
			log.Printf("approval defaults reload failed: %v", err)
			return
		}
		if err := validateApprovalDefaults(next); err != nil {
			log.Printf("approval defaults reload rejected: %v", err)
			return
		}
		holder.current.Store(next)
		log.Printf("approval defaults reloaded from %s", e.Name)
	})

	return holder, nil
}

// Current returns the active defaults.
func (h *ApprovalDefaultsHolder) Current() ApprovalDefaults {
	if h == nil {
		return DefaultApprovalDefaults()
	}
	if cfg, ok := h.current.Load().(ApprovalDefaults); ok {
		return cfg
	}
	return DefaultApprovalDefaults()
}

func validateApprovalDefaults(cfg ApprovalDefaults) error {
	t := cfg.AmountThresholds
	if t.Low <= 0 || t.Medium <= t.Low || t.High <= t.Medium {
		return errors.New("amount thresholds must be strictly increasing and positive")
	}
	r := cfg.RequiredApprovers
	if r.Low < 1 || r.Medium < 1 || r.High < 1 {
		return errors.New("required approver counts must be at least 1")
	}
	if cfg.AutoApprove.Enabled && cfg.AutoApprove.AmountLimit <= 0 {
		return errors.New("auto-approve amount limit must be positive when enabled")
	}
	return nil
}
