package signer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// Headers carrying the request signature.
const (
	HeaderSignature = "X-Signature"
	HeaderTimestamp = "X-Timestamp"
)

// MaxSignedBodyBytes bounds how much of an HTTP body is read for signing.
const MaxSignedBodyBytes = 10 << 20

const canonicalDelimiter = "|"

// SignedRequest binds method, path, query and body to one signature.
// Changing any of them after signing makes Verify return false.
type SignedRequest struct {
	Method    string  `json:"method"`
	Path      string  `json:"path"`
	Body      *string `json:"body"`
	Query     *string `json:"query"`
	Timestamp int64   `json:"timestamp"`
	Signature string  `json:"signature"`
}

// NewSignedRequest starts an unsigned request stamped with the current time.
func NewSignedRequest(method, path string) SignedRequest {
	return defaultSigner.NewRequest(method, path)
}

// NewRequest starts an unsigned request stamped with the signer clock.
func (s *Signer) NewRequest(method, path string) SignedRequest {
	return SignedRequest{
		Method:    strings.ToUpper(method),
		Path:      path,
		Timestamp: s.Now(),
	}
}

// WithQuery returns a copy carrying the raw query string (without "?").
func (r SignedRequest) WithQuery(query string) SignedRequest {
	r.Query = &query
	return r
}

// WithBody returns a copy carrying the body.
func (r SignedRequest) WithBody(body string) SignedRequest {
	r.Body = &body
	return r
}

// CanonicalMessage is METHOD|path[|?query][|body].
func (r SignedRequest) CanonicalMessage() string {
	parts := []string{r.Method, r.Path}
	if r.Query != nil {
		parts = append(parts, "?"+*r.Query)
	}
	if r.Body != nil {
		parts = append(parts, *r.Body)
	}
	return strings.Join(parts, canonicalDelimiter)
}

// Sign returns a copy with Signature computed over the canonical message at
// the request's own timestamp.
func (r SignedRequest) Sign(key []byte) (SignedRequest, error) {
	mac, err := computeMAC(r.CanonicalMessage(), r.Timestamp, key)
	if err != nil {
		return SignedRequest{}, err
	}
	r.Signature = mac
	return r, nil
}

// Verify checks the request using the default signer's clock.
func (r SignedRequest) Verify(key []byte, maxAgeMinutes int64) (bool, error) {
	return defaultSigner.VerifyRequest(r, key, maxAgeMinutes)
}

// VerifyRequest checks r against its canonical message.
func (s *Signer) VerifyRequest(r SignedRequest, key []byte, maxAgeMinutes int64) (bool, error) {
	return s.QuickVerify(r.CanonicalMessage(), r.Signature, r.Timestamp, key, maxAgeMinutes)
}

// Encode returns the JSON form of the request.
func (r SignedRequest) Encode() string {
	b, _ := json.Marshal(r)
	return string(b)
}

// ParseSignedRequest decodes the JSON form produced by Encode.
func ParseSignedRequest(s string) (SignedRequest, error) {
	var r SignedRequest
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return SignedRequest{}, ErrInvalidSignature
	}
	if r.Method == "" {
		return SignedRequest{}, ErrInvalidSignature
	}
	return r, nil
}

// SignHTTPRequest signs r using the default signer.
func SignHTTPRequest(r *http.Request, key []byte) error {
	return defaultSigner.SignHTTPRequest(r, key)
}

// VerifyHTTPRequest verifies r using the default signer.
func VerifyHTTPRequest(r *http.Request, key []byte, maxAgeMinutes int64) (bool, error) {
	return defaultSigner.VerifyHTTPRequest(r, key, maxAgeMinutes)
}

// SignHTTPRequest signs method, path, raw query and body of r and sets the
// X-Signature and X-Timestamp headers. The body stays readable.
func (s *Signer) SignHTTPRequest(r *http.Request, key []byte) error {
	sr, err := s.fromHTTP(r, s.Now())
	if err != nil {
		return err
	}
	sr, err = sr.Sign(key)
	if err != nil {
		return err
	}

	r.Header.Set(HeaderSignature, sr.Signature)
	r.Header.Set(HeaderTimestamp, strconv.FormatInt(sr.Timestamp, 10))
	return nil
}

// VerifyHTTPRequest rebuilds the signed tuple from r and its headers.
// Missing or malformed headers return ErrInvalidSignature. The body is
// restored so downstream handlers can read it.
func (s *Signer) VerifyHTTPRequest(r *http.Request, key []byte, maxAgeMinutes int64) (bool, error) {
	signature := r.Header.Get(HeaderSignature)
	rawTS := r.Header.Get(HeaderTimestamp)
	if signature == "" || rawTS == "" {
		return false, fmt.Errorf("%w: missing %s or %s header", ErrInvalidSignature, HeaderSignature, HeaderTimestamp)
	}
	ts, err := strconv.ParseInt(rawTS, 10, 64)
	if err != nil {
		return false, fmt.Errorf("%w: bad %s header", ErrInvalidSignature, HeaderTimestamp)
	}

	sr, err := s.fromHTTP(r, ts)
	if err != nil {
		return false, err
	}
	sr.Signature = signature

	return s.VerifyRequest(sr, key, maxAgeMinutes)
}

// fromHTTP builds the canonical tuple of r. An empty query or body is treated
// as absent on both sides.
func (s *Signer) fromHTTP(r *http.Request, ts int64) (SignedRequest, error) {
	sr := SignedRequest{
		Method:    strings.ToUpper(r.Method),
		Path:      r.URL.EscapedPath(),
		Timestamp: ts,
	}
	if r.URL.RawQuery != "" {
		sr = sr.WithQuery(r.URL.RawQuery)
	}

	if r.Body != nil && r.Body != http.NoBody {
		body, err := io.ReadAll(io.LimitReader(r.Body, MaxSignedBodyBytes+1))
		_ = r.Body.Close()
		if err != nil {
			return SignedRequest{}, fmt.Errorf("failed to read request body: %w", err)
		}
		if len(body) > MaxSignedBodyBytes {
			return SignedRequest{}, fmt.Errorf("%w: body exceeds %d bytes", ErrInvalidSignature, MaxSignedBodyBytes)
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		if len(body) > 0 {
			sr = sr.WithBody(string(body))
		}
	}

	return sr, nil
}
