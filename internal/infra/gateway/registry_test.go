//go:build !integration

// File: internal/infra/gateway/registry_test.go
package gateway_test

import (
	"errors"
	"reflect"
	"testing"

	"payment-gateway-service/internal/config"
	"payment-gateway-service/internal/domain"
	"payment-gateway-service/internal/infra/gateway"
)

func testPaymentConfig() config.PaymentConfig {
	return config.PaymentConfig{
		DefaultGateway: "razorpay",
		Gateways: map[string]config.GatewayConfig{
			"razorpay": {Enabled: true, KeyID: "k", KeySecret: "s"},
			"phonepe":  {Enabled: true, MerchantID: "m", SaltKey: "salt", SaltIndex: "1"},
			"cashfree": {Enabled: false, AppID: "a", SecretKey: "s"},
		},
	}
}

func TestRegistryResolve(t *testing.T) {
	reg, err := gateway.NewRegistry(testPaymentConfig())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	t.Run("empty name resolves the default", func(t *testing.T) {
		gw, err := reg.Resolve("")
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if gw.Name() != "razorpay" {
			t.Errorf("gateway = %s, want razorpay", gw.Name())
		}
	})

	t.Run("unknown name", func(t *testing.T) {
		if _, err := reg.Resolve("stripe"); !errors.Is(err, domain.ErrUnknownGateway) {
			t.Errorf("err = %v, want ErrUnknownGateway", err)
		}
	})

	t.Run("configured but disabled", func(t *testing.T) {
		if _, err := reg.Resolve("cashfree"); !errors.Is(err, domain.ErrGatewayDisabled) {
			t.Errorf("err = %v, want ErrGatewayDisabled", err)
		}
	})

	t.Run("enabled list is sorted and excludes disabled", func(t *testing.T) {
		got := reg.Enabled()
		want := []string{"phonepe", "razorpay"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Enabled() = %v, want %v", got, want)
		}
	})
}

func TestRegistryRejectsBadConfig(t *testing.T) {
	t.Run("unknown provider in config", func(t *testing.T) {
		cfg := testPaymentConfig()
		cfg.Gateways["stripe"] = config.GatewayConfig{Enabled: true}
		if _, err := gateway.NewRegistry(cfg); err == nil {
			t.Fatal("expected error for unknown provider")
		}
	})

	t.Run("default not configured", func(t *testing.T) {
		cfg := testPaymentConfig()
		cfg.DefaultGateway = "paypal"
		if _, err := gateway.NewRegistry(cfg); err == nil {
			t.Fatal("expected error for missing default")
		}
	})
}
