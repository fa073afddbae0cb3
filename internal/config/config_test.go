package config

import (
	"testing"
	"time"

	"github.com/landsale/backend/internal/installments"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FACTORY_FEE_ETH", "0.25")
	t.Setenv("LATE_PENALTY_MODE", "")
	t.Setenv("STRICT_BUY_PAYMENT", "true")

	cfg := Load()
	if cfg.FactoryFee.String() != "250000000000000000" {
		t.Errorf("FactoryFee = %s", cfg.FactoryFee)
	}
	if cfg.Penalty.Mode != installments.PenaltyOneShot || cfg.Penalty.BPS != 1000 {
		t.Errorf("Penalty = %+v", cfg.Penalty)
	}
	if cfg.Penalty.Unit != time.Second {
		t.Errorf("Unit = %v", cfg.Penalty.Unit)
	}
	if !cfg.StrictBuyPayment {
		t.Error("StrictBuyPayment not read")
	}
	if err := cfg.Validate(zap.NewNop()); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"stepped without period", map[string]string{"LATE_PENALTY_MODE": "stepped"}},
		{"unknown order", map[string]string{"INSTALLMENT_ORDER": "random"}},
		{"zero unit", map[string]string{"INSTALLMENT_UNIT_SECONDS": "0"}},
		{"agent fee over 100", map[string]string{"AGENT_FEE_PERCENT": "101"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if err := Load().Validate(zap.NewNop()); err == nil {
				t.Error("expected error")
			}
		})
	}
}
