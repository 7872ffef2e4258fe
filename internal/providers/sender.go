package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/diegodemontetech/boneheal-messaging/pkg/logging"
)

// Provider names used in config, hints and audit rows.
const (
	ProviderAuto      = "auto"
	ProviderZAPI      = "zapi"
	ProviderEvolution = "evolution"
)

// ErrNoProvider is returned when no outbound provider is configured.
var ErrNoProvider = errors.New("providers: no whatsapp provider configured")

// OutboundReply is one message to deliver to a customer.
type OutboundReply struct {
	LeadID string
	To     string
	Body   string
	SentBy string
	// ProviderHint prefers replying on the channel the inbound message
	// arrived on. Empty falls back to the configured default.
	ProviderHint string
	Metadata     map[string]string
}

// ReplySender dispatches a single WhatsApp message.
type ReplySender interface {
	SendReply(ctx context.Context, reply OutboundReply) error
}

// SelectionConfig captures the credentials required to build senders.
type SelectionConfig struct {
	Preference        string
	ZAPIBaseURL       string
	ZAPIInstanceID    string
	ZAPIToken         string
	EvolutionBaseURL  string
	EvolutionAPIKey   string
	EvolutionInstance string
}

// Registry holds the configured senders and picks one per reply. There
// is no automatic failover between providers: whichever is configured
// for the hinted instance is used, full stop.
type Registry struct {
	senders map[string]ReplySender
	order   []string
	logger  *logging.Logger
}

// NewRegistry builds a registry from already-constructed senders.
func NewRegistry(senders map[string]ReplySender, order []string, logger *logging.Logger) *Registry {
	if logger == nil {
		logger = logging.Default()
	}
	return &Registry{senders: senders, order: order, logger: logger}
}

// BuildRegistry instantiates senders from whichever credentials are
// present. It returns the registry, the default provider name, and a
// reason when nothing could be initialized.
func BuildRegistry(cfg SelectionConfig, logger *logging.Logger) (*Registry, string, string) {
	if logger == nil {
		logger = logging.Default()
	}
	preference := strings.ToLower(strings.TrimSpace(cfg.Preference))
	if preference == "" {
		preference = ProviderAuto
	}

	missing := map[string]string{}
	senders := map[string]ReplySender{}

	if cfg.ZAPIInstanceID != "" && cfg.ZAPIToken != "" {
		senders[ProviderZAPI] = NewZAPISender(cfg.ZAPIBaseURL, cfg.ZAPIInstanceID, cfg.ZAPIToken, logger)
	} else {
		var reasons []string
		if cfg.ZAPIInstanceID == "" {
			reasons = append(reasons, "ZAPI_INSTANCE_ID missing")
		}
		if cfg.ZAPIToken == "" {
			reasons = append(reasons, "ZAPI_TOKEN missing")
		}
		missing[ProviderZAPI] = strings.Join(reasons, ", ")
	}

	if cfg.EvolutionBaseURL != "" && cfg.EvolutionAPIKey != "" && cfg.EvolutionInstance != "" {
		senders[ProviderEvolution] = NewEvolutionSender(cfg.EvolutionBaseURL, cfg.EvolutionAPIKey, cfg.EvolutionInstance, logger)
	} else {
		var reasons []string
		if cfg.EvolutionBaseURL == "" {
			reasons = append(reasons, "EVOLUTION_BASE_URL missing")
		}
		if cfg.EvolutionAPIKey == "" {
			reasons = append(reasons, "EVOLUTION_API_KEY missing")
		}
		if cfg.EvolutionInstance == "" {
			reasons = append(reasons, "EVOLUTION_INSTANCE missing")
		}
		missing[ProviderEvolution] = strings.Join(reasons, ", ")
	}

	order := resolvePreferredOrder(preference)
	for _, name := range order {
		if senders[name] != nil {
			return &Registry{senders: senders, order: order, logger: logger}, name, ""
		}
	}

	var reasons []string
	for _, name := range order {
		if msg := missing[name]; msg != "" {
			reasons = append(reasons, fmt.Sprintf("%s: %s", name, msg))
		}
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "no whatsapp providers configured")
	}
	return nil, "", strings.Join(reasons, "; ")
}

func resolvePreferredOrder(preference string) []string {
	switch preference {
	case ProviderZAPI:
		return []string{ProviderZAPI}
	case ProviderEvolution:
		return []string{ProviderEvolution}
	default:
		return []string{ProviderZAPI, ProviderEvolution}
	}
}

// Resolve returns the sender for the hinted provider, or the first
// configured one when the hint is empty or unknown.
func (r *Registry) Resolve(hint string) (ReplySender, string, error) {
	if r == nil || len(r.senders) == 0 {
		return nil, "", ErrNoProvider
	}
	if s, ok := r.senders[strings.ToLower(hint)]; ok && s != nil {
		return s, strings.ToLower(hint), nil
	}
	for _, name := range r.order {
		if s := r.senders[name]; s != nil {
			return s, name, nil
		}
	}
	return nil, "", ErrNoProvider
}

// SendReply resolves the provider and dispatches.
func (r *Registry) SendReply(ctx context.Context, reply OutboundReply) error {
	sender, name, err := r.Resolve(reply.ProviderHint)
	if err != nil {
		return err
	}
	if reply.Metadata == nil {
		reply.Metadata = map[string]string{}
	}
	reply.Metadata["provider"] = name
	return sender.SendReply(ctx, reply)
}

var _ ReplySender = (*Registry)(nil)

// e164BR prefixes the Brazilian country code when the number carries
// only DDD plus the subscriber digits. Leads store phones without the
// country prefix; providers want the full international form.
func e164BR(phone string) string {
	digits := strings.TrimPrefix(strings.TrimSpace(phone), "+")
	if len(digits) == 10 || len(digits) == 11 {
		return "55" + digits
	}
	return digits
}
