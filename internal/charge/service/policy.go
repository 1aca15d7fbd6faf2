package service

import (
	"github.com/smallbiznis/offsession/internal/charge/domain"
	"github.com/smallbiznis/offsession/internal/config"
)

type configPolicy struct {
	holder *config.ChargePolicyHolder
}

// NewConfigPolicy resolves amounts from the hot-reloaded charge policy file.
func NewConfigPolicy(holder *config.ChargePolicyHolder) domain.Policy {
	return &configPolicy{holder: holder}
}

func (p *configPolicy) Resolve(country string) domain.Amount {
	policy := config.DefaultChargePolicy()
	if p.holder != nil {
		policy = p.holder.Get()
	}
	rule := policy.Resolve(country)
	return domain.Amount{Currency: rule.Currency, Amount: rule.Amount}
}
