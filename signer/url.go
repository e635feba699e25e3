package signer

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	urlSignatureDelimiter = "&signature="
	urlTimestampDelimiter = "&timestamp="
)

// Param is one query parameter. Order is preserved.
type Param struct {
	Key   string
	Value string
}

// CreateSignedURL signs path plus params using the default signer.
func CreateSignedURL(path string, params []Param, key []byte) (string, error) {
	return defaultSigner.CreateSignedURL(path, params, key)
}

// VerifySignedURL verifies a query produced by CreateSignedURL using the default signer.
func VerifySignedURL(path, queryWithSignature string, key []byte, maxAgeMinutes int64) (bool, error) {
	return defaultSigner.VerifySignedURL(path, queryWithSignature, key, maxAgeMinutes)
}

// CreateSignedURL percent-encodes params, signs "{path}?{query}" and returns
// "{query}&signature={sig}&timestamp={ts}". The keys signature and timestamp
// are reserved and rejected with ErrInvalidSignature.
func (s *Signer) CreateSignedURL(path string, params []Param, key []byte) (string, error) {
	pairs := make([]string, len(params))
	for i, p := range params {
		if p.Key == "signature" || p.Key == "timestamp" {
			return "", fmt.Errorf("%w: query parameter %q is reserved", ErrInvalidSignature, p.Key)
		}
		pairs[i] = encodeComponent(p.Key) + "=" + encodeComponent(p.Value)
	}
	query := strings.Join(pairs, "&")

	sig, err := s.Sign(path+"?"+query, key)
	if err != nil {
		return "", err
	}

	return query + urlSignatureDelimiter + encodeComponent(sig.Signature) +
		urlTimestampDelimiter + strconv.FormatInt(sig.Timestamp, 10), nil
}

// VerifySignedURL splits queryWithSignature on the signature and timestamp
// delimiters, each of which must appear exactly once, and checks the
// signature over "{path}?{query}".
func (s *Signer) VerifySignedURL(path, queryWithSignature string, key []byte, maxAgeMinutes int64) (bool, error) {
	parts := strings.Split(queryWithSignature, urlSignatureDelimiter)
	if len(parts) != 2 {
		return false, ErrInvalidSignature
	}
	query := parts[0]

	sigParts := strings.Split(parts[1], urlTimestampDelimiter)
	if len(sigParts) != 2 {
		return false, ErrInvalidSignature
	}

	timestamp, err := strconv.ParseInt(sigParts[1], 10, 64)
	if err != nil {
		return false, ErrInvalidSignature
	}
	signature, err := url.PathUnescape(sigParts[0])
	if err != nil {
		return false, ErrInvalidSignature
	}

	return s.QuickVerify(path+"?"+query, signature, timestamp, key, maxAgeMinutes)
}

// encodeComponent escapes everything outside A-Z a-z 0-9 - _ . ~ (RFC 3986).
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
