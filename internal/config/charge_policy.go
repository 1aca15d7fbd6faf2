package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// ChargeRule is a currency and amount pair in the smallest currency unit.
type ChargeRule struct {
	Country  string `mapstructure:"country"`
	Currency string `mapstructure:"currency"`
	Amount   int64  `mapstructure:"amount"`
}

// ChargePolicy maps a card country to the amount charged off-session.
type ChargePolicy struct {
	Default   ChargeRule   `mapstructure:"default"`
	Countries []ChargeRule `mapstructure:"countries"`
}

func DefaultChargePolicy() ChargePolicy {
	return ChargePolicy{
		Default: ChargeRule{Currency: "usd", Amount: 1000},
		Countries: []ChargeRule{
			{Country: "GB", Currency: "eur", Amount: 10000},
		},
	}
}

// Resolve returns the rule for the given ISO country code, falling back to Default.
func (p ChargePolicy) Resolve(country string) ChargeRule {
	country = strings.ToUpper(strings.TrimSpace(country))
	if country != "" {
		for _, rule := range p.Countries {
			if strings.EqualFold(strings.TrimSpace(rule.Country), country) {
				return ChargeRule{Country: country, Currency: rule.Currency, Amount: rule.Amount}
			}
		}
	}
	return ChargeRule{Country: country, Currency: p.Default.Currency, Amount: p.Default.Amount}
}

type ChargePolicyHolder struct {
	current atomic.Value // holds ChargePolicy
}

// NewStaticChargePolicyHolder returns a holder that never reloads.
func NewStaticChargePolicyHolder(policy ChargePolicy) (*ChargePolicyHolder, error) {
	policy = normalizeChargePolicy(policy)
	if err := validateChargePolicy(policy); err != nil {
		return nil, err
	}
	holder := &ChargePolicyHolder{}
	holder.current.Store(policy)
	return holder, nil
}

func NewChargePolicyHolder(cfg Config, log *zap.Logger) (*ChargePolicyHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("charge.policy")
	v := viper.New()

	if path := strings.TrimSpace(cfg.Charge.PolicyFile); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("charge_policy")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/offsession")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("OFFSESSION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultChargePolicy()
	v.SetDefault("charge.default.currency", defaults.Default.Currency)
	v.SetDefault("charge.default.amount", defaults.Default.Amount)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read charge policy: %w", err)
		}
		fileLoaded = false
		v.SetDefault("charge.countries", defaults.Countries)
	}

	policy, err := unmarshalChargePolicy(v)
	if err != nil {
		return nil, err
	}

	holder := &ChargePolicyHolder{}
	holder.current.Store(policy)

	if fileLoaded {
		v.OnConfigChange(func(e fsnotify.Event) {
			updated, err := unmarshalChargePolicy(v)
			if err != nil {
				log.Warn("invalid charge policy ignored", zap.String("file", e.Name), zap.Error(err))
				return
			}
			holder.current.Store(updated)
			log.Info("charge policy reloaded", zap.String("file", e.Name))
		})
		v.WatchConfig()
	}

	return holder, nil
}

func (h *ChargePolicyHolder) Get() ChargePolicy {
	return h.current.Load().(ChargePolicy)
}

func unmarshalChargePolicy(v *viper.Viper) (ChargePolicy, error) {
	var policy ChargePolicy
	if err := v.UnmarshalKey("charge", &policy); err != nil {
		return ChargePolicy{}, err
	}
	policy = normalizeChargePolicy(policy)
	if err := validateChargePolicy(policy); err != nil {
		return ChargePolicy{}, err
	}
	return policy, nil
}

func normalizeChargePolicy(policy ChargePolicy) ChargePolicy {
	policy.Default.Currency = strings.ToLower(strings.TrimSpace(policy.Default.Currency))
	rules := make([]ChargeRule, 0, len(policy.Countries))
	for _, rule := range policy.Countries {
		rules = append(rules, ChargeRule{
			Country:  strings.ToUpper(strings.TrimSpace(rule.Country)),
			Currency: strings.ToLower(strings.TrimSpace(rule.Currency)),
			Amount:   rule.Amount,
		})
	}
	policy.Countries = rules
	return policy
}

func validateChargePolicy(policy ChargePolicy) error {
	if policy.Default.Currency == "" || policy.Default.Amount <= 0 {
		return errors.New("charge.default requires a currency and a positive amount")
	}
	for _, rule := range policy.Countries {
		if rule.Country == "" {
			return errors.New("charge.countries entries require a country")
		}
		if rule.Currency == "" || rule.Amount <= 0 {
			return fmt.Errorf("charge rule for %s requires a currency and a positive amount", rule.Country)
		}
	}
	return nil
}
