package gateway

import (
	"fmt"
	"net/http"

	"wallet-ledger/config"
	"wallet-ledger/internal/core/ports"

	"github.com/rs/zerolog"
)

// Registry holds the configured payment gateways keyed by provider name.
type Registry struct {
	gateways map[string]ports.PaymentGateway
}

// NewRegistry builds gateway adapters for every configured provider, each
// with a webhook secret derived from the master key. Providers without an
// adapter implementation are skipped with a warning so a config typo cannot
// take the whole service down.
func NewRegistry(cfg config.GatewayConfig, masterKeyHex string, log zerolog.Logger) (*Registry, error) {
	r := &Registry{gateways: make(map[string]ports.PaymentGateway)}

	for name, pc := range cfg.Providers {
		secret, err := WebhookSecret(masterKeyHex, name)
		if err != nil {
			return nil, fmt.Errorf("webhook secret for %s: %w", name, err)
		}
		client := &http.Client{Timeout: pc.Timeout}
		switch name {
		case "mtn":
			r.gateways[name] = NewMTNGateway(pc, secret, client, log)
		case "airtel":
			r.gateways[name] = NewAirtelGateway(pc, secret, client, log)
		default:
			log.Warn().Str("provider", name).Msg("no gateway adapter for configured provider, skipping")
		}
	}
	return r, nil
}

func (r *Registry) Get(name string) (ports.PaymentGateway, bool) {
	gw, ok := r.gateways[name]
	return gw, ok
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.gateways))
	for name := range r.gateways {
		names = append(names, name)
	}
	return names
}
