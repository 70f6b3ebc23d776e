// internal/transportfactory/factory.go
package transportfactory

import (
	"fmt"

	"github.com/mwiater/klimax/internal/appconfig"
	"github.com/mwiater/klimax/internal/logging"
	"github.com/mwiater/klimax/internal/transport"
)

// New selects and configures the transport for the configured endpoint. An
// explicit endpointType wins; otherwise the wire format is inferred from the
// endpoint URL.
func New(cfg *appconfig.Config) (transport.Transport, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config provided to transport factory")
	}

	kind := cfg.EndpointType
	if kind == "" {
		kind = transport.DetectKind(cfg.Endpoint)
		logging.LogEvent("Detected endpoint type %q for %s", kind, cfg.Endpoint)
	}

	switch kind {
	case appconfig.EndpointOpenAI:
		return transport.NewOpenAI(cfg), nil
	case appconfig.EndpointAzureML:
		return transport.NewAzureML(cfg), nil
	default:
		return nil, fmt.Errorf("unknown endpoint type %q", kind)
	}
}
