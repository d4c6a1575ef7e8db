// Package devcert issues the self signed certificate backing dev.https when
// the config names no key and cert paths. Pairs are cached on disk and only
// regenerated when missing, near expiry or not covering a requested host.
package devcert

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	certLifetime = 90 * 24 * time.Hour
	// rotateWindow renews a cached certificate well before it expires.
	rotateWindow = 7 * 24 * time.Hour

	keyFile  = "dev-server.key"
	certFile = "dev-server.crt"
)

// loopbackHosts are always covered alongside the configured hosts.
var loopbackHosts = []string{"localhost", "127.0.0.1", "::1"}

// Pair points at the PEM encoded key and certificate on disk.
type Pair struct {
	KeyPath  string
	CertPath string
}

// Ensure returns a certificate pair covering the given hosts, generating one
// under dir when the cached pair cannot be reused.
func Ensure(dir string, hosts []string) (*Pair, error) {
	pair := &Pair{
		KeyPath:  filepath.Join(dir, keyFile),
		CertPath: filepath.Join(dir, certFile),
	}

	all := withLoopback(hosts)

	if reusable(pair, all) {
		log.Debug().Str("cert", pair.CertPath).Msg("reusing dev server certificate")
		return pair, nil
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create certificate dir: %w", err)
	}

	if err := generate(pair, all); err != nil {
		return nil, err
	}

	log.Debug().Str("cert", pair.CertPath).Strs("hosts", all).Msg("generated dev server certificate")

	return pair, nil
}

func withLoopback(hosts []string) []string {
	all := slices.Clone(hosts)
	for _, host := range loopbackHosts {
		if !slices.Contains(all, host) {
			all = append(all, host)
		}
	}

	return all
}

// reusable reports whether the cached pair exists, covers every host and sits
// outside the rotation window.
func reusable(pair *Pair, hosts []string) bool {
	if !fileExists(pair.KeyPath) {
		return false
	}

	cert, err := loadCertificate(pair.CertPath)
	if err != nil {
		return false
	}

	if time.Now().Add(rotateWindow).After(cert.NotAfter) {
		return false
	}

	for _, host := range hosts {
		if err := cert.VerifyHostname(host); err != nil {
			return false
		}
	}

	return true
}

func generate(pair *Pair, hosts []string) error {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return fmt.Errorf("failed to generate key: %w", err)
	}

	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return fmt.Errorf("failed to generate serial number: %w", err)
	}

	template := &x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			CommonName:   "unibuild dev server",
			Organization: []string{"unibuild"},
		},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(certLifetime),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}

	for _, host := range hosts {
		if ip := net.ParseIP(host); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
			continue
		}
		template.DNSNames = append(template.DNSNames, host)
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return fmt.Errorf("failed to create certificate: %w", err)
	}

	if err := savePrivateKey(pair.KeyPath, key); err != nil {
		return fmt.Errorf("failed to save key: %w", err)
	}

	if err := saveCertificate(pair.CertPath, der); err != nil {
		return fmt.Errorf("failed to save certificate: %w", err)
	}

	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func loadCertificate(path string) (*x509.Certificate, error) {
	certPEM, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	block, _ := pem.Decode(certPEM)
	if block == nil {
		return nil, errors.New("failed to decode PEM block")
	}

	return x509.ParseCertificate(block.Bytes)
}

func saveCertificate(path string, der []byte) error {
	certPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "CERTIFICATE",
		Bytes: der,
	})

	return os.WriteFile(path, certPEM, 0o644)
}

func savePrivateKey(path string, key *ecdsa.PrivateKey) error {
	keyBytes, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return err
	}

	keyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "EC PRIVATE KEY",
		Bytes: keyBytes,
	})

	return os.WriteFile(path, keyPEM, 0o600)
}
