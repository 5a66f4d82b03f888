package rebuild

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
)

// TLSOptions holds client certificate paths for etcd.
type TLSOptions struct {
	// Enabled determines whether TLS is active.
	// If false, all other fields are ignored.
	Enabled bool

	// CertFile is the path to the client certificate file (PEM format).
	CertFile string

	// KeyFile is the path to the client private key file (PEM format).
	KeyFile string

	// CAFile is the path to the certificate authority file (PEM format)
	// used to verify the etcd server's certificate.
	CAFile string
}

// clientTLSConfig creates a tls.Config for etcd client connections.
// It returns nil when TLS is disabled.
func clientTLSConfig(opts *TLSOptions) (*tls.Config, error) {
	if opts == nil || !opts.Enabled {
		return nil, nil
	}

	if opts.CertFile == "" {
		return nil, errors.New("TLS cert file is required when TLS is enabled")
	}
	if opts.KeyFile == "" {
		return nil, errors.New("TLS key file is required when TLS is enabled")
	}
	if opts.CAFile == "" {
		return nil, errors.New("TLS CA file is required when TLS is enabled")
	}

	cert, err := tls.LoadX509KeyPair(opts.CertFile, opts.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load client certificate: %w", err)
	}

	caData, err := os.ReadFile(opts.CAFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA certificate: %w", err)
	}

	caPool := x509.NewCertPool()
	if !caPool.AppendCertsFromPEM(caData) {
		return nil, errors.New("failed to parse CA certificate")
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		RootCAs:      caPool,
		MinVersion:   tls.VersionTLS12,
	}, nil
}
