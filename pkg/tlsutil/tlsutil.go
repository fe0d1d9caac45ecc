// Package tlsutil builds HTTP clients for talking to UniFi consoles, which
// almost always present self-signed certificates. Verification can be
// disabled outright or pinned to a known certificate fingerprint.
package tlsutil

import (
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"
)

// FingerprintVerifier returns a TLS config that accepts only a server
// certificate whose SHA256 fingerprint matches the expected value.
func FingerprintVerifier(fingerprint string) *tls.Config {
	expected := strings.ToLower(strings.ReplaceAll(fingerprint, ":", ""))

	return &tls.Config{
		InsecureSkipVerify: true, // verification happens in the callback
		VerifyPeerCertificate: func(rawCerts [][]byte, verifiedChains [][]*x509.Certificate) error {
			if len(rawCerts) == 0 {
				return fmt.Errorf("no certificates presented by server")
			}
			sum := sha256.Sum256(rawCerts[0])
			actual := hex.EncodeToString(sum[:])
			if actual != expected {
				return fmt.Errorf("certificate fingerprint mismatch: expected %s, got %s", expected, actual)
			}
			return nil
		},
	}
}

// NewHTTPClient creates an HTTP client for console requests. When verifyTLS
// is false and no fingerprint is pinned, certificate verification is skipped
// entirely (typical for a console on a private LAN).
func NewHTTPClient(verifyTLS bool, fingerprint string, timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	if !verifyTLS && fingerprint == "" {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	} else if fingerprint != "" {
		transport.TLSClientConfig = FingerprintVerifier(fingerprint)
	}

	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// NewSessionHTTPClient is NewHTTPClient plus a cookie jar, for the legacy
// login session that authenticates via Set-Cookie.
func NewSessionHTTPClient(verifyTLS bool, fingerprint string, timeout time.Duration) (*http.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	client := NewHTTPClient(verifyTLS, fingerprint, timeout)
	client.Jar = jar
	return client, nil
}
