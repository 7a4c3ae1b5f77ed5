package transport

import (
	"fmt"
	"slices"
)

// NewTransport creates a listener of the given type.
func NewTransport(transportType TransportType, opts Options) (ServerTransport, error) {
	if opts.Codec == nil {
		return nil, fmt.Errorf("DNS codec is required")
	}
	switch transportType {
	case TransportUDP:
		return NewUDPTransport(opts), nil
	case TransportTCP:
		return NewTCPTransport(opts), nil
	default:
		return nil, fmt.Errorf("unsupported transport type: %s", transportType)
	}
}

// GetSupportedTransports returns a list of currently supported transport types.
func GetSupportedTransports() []TransportType {
	return []TransportType{TransportUDP, TransportTCP}
}

// IsTransportSupported checks if a given transport type is currently supported.
func IsTransportSupported(transportType TransportType) bool {
	return slices.Contains(GetSupportedTransports(), transportType)
}
