package transport

import (
	"crypto/tls"
	"fmt"
)

// LoadTLS builds the server TLS configuration from PEM-encoded certificate
// and key files. QUIC requires TLS 1.3 and an ALPN protocol.
//
// Precondition: certFile and keyFile must name readable PEM files; alpn
// must be non-empty.
// Postcondition: Returns a *tls.Config ready for a QUIC listener, or a
// non-nil error.
func LoadTLS(certFile, keyFile string, alpn []string) (*tls.Config, error) {
	if len(alpn) == 0 {
		return nil, fmt.Errorf("loading TLS config: at least one ALPN protocol required")
	}
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("loading key pair (%s, %s): %w", certFile, keyFile, err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   alpn,
		MinVersion:   tls.VersionTLS13,
	}, nil
}
