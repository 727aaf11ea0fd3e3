// File: internal/infra/gateway/registry.go
package gateway

import (
	"fmt"
	"sort"

	"payment-gateway-service/internal/config"
	"payment-gateway-service/internal/domain"
	"payment-gateway-service/internal/domain/ports/adapter"
)

// registry holds all adapters built at startup, enabled or not, so a
// disabled provider is distinguishable from an unknown one.
type registry struct {
	defaultName string
	gateways    map[string]adapter.Gateway
	enabled     map[string]bool
}

var _ adapter.Registry = (*registry)(nil)

// NewRegistry builds one adapter per configured provider. Unknown provider
// names in the config are a startup error, not a runtime one.
func NewRegistry(cfg config.PaymentConfig) (adapter.Registry, error) {
	r := &registry{
		defaultName: cfg.DefaultGateway,
		gateways:    make(map[string]adapter.Gateway),
		enabled:     make(map[string]bool),
	}
	for name, gc := range cfg.Gateways {
		var gw adapter.Gateway
		switch name {
		case "razorpay":
			gw = NewRazorpayGateway(gc)
		case "phonepe":
			gw = NewPhonePeGateway(gc)
		case "cashfree":
			gw = NewCashfreeGateway(gc)
		default:
			return nil, fmt.Errorf("unknown gateway %q in config: %w", name, domain.ErrUnknownGateway)
		}
		r.gateways[name] = meter(gw)
		r.enabled[name] = gc.Enabled
	}
	if _, ok := r.gateways[r.defaultName]; !ok {
		return nil, fmt.Errorf("default gateway %q not configured: %w", r.defaultName, domain.ErrUnknownGateway)
	}
	return r, nil
}

func (r *registry) Resolve(name string) (adapter.Gateway, error) {
	if name == "" {
		name = r.defaultName
	}
	gw, ok := r.gateways[name]
	if !ok {
		return nil, fmt.Errorf("gateway %q: %w", name, domain.ErrUnknownGateway)
	}
	if !r.enabled[name] {
		return nil, fmt.Errorf("gateway %q: %w", name, domain.ErrGatewayDisabled)
	}
	return gw, nil
}

func (r *registry) Enabled() []string {
	names := make([]string, 0, len(r.enabled))
	for name, on := range r.enabled {
		if on {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
