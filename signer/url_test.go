package signer

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestCreateSignedURL_Golden(t *testing.T) {
	s, _ := newTestSigner()

	tests := []struct {
		name   string
		path   string
		params []Param
		want   string
	}{
		{
			name:   "plain params",
			path:   "/download",
			params: []Param{{Key: "file", Value: "report.pdf"}, {Key: "user", Value: "42"}},
			want:   "file=report.pdf&user=42&signature=7%2BxkaqCSsy55k4uBhy5BQ3Z0ky7ATrBGAyitnynyZ%2FI%3D&timestamp=1700000000",
		},
		{
			name:   "reserved characters",
			path:   "/search",
			params: []Param{{Key: "q", Value: "hello world"}, {Key: "tag", Value: "a+b"}},
			want:   "q=hello%20world&tag=a%2Bb&signature=rUs4xqx7nhn5YUijZqesz9dg93JiRGvS276p1jNTkeM%3D&timestamp=1700000000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.CreateSignedURL(tt.path, tt.params, testKey)
			if err != nil {
				t.Fatalf("CreateSignedURL() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("CreateSignedURL() = %q, want %q", got, tt.want)
			}

			ok, err := s.VerifySignedURL(tt.path, got, testKey, 5)
			if err != nil || !ok {
				t.Errorf("VerifySignedURL() = %v, %v; want true", ok, err)
			}
		})
	}
}

func TestEncodeComponent(t *testing.T) {
	tests := map[string]string{
		"abcXYZ019":  "abcXYZ019",
		"-_.~":       "-_.~",
		"a b":        "a%20b",
		"a+b":        "a%2Bb",
		"a&b=c":      "a%26b%3Dc",
		"/?#[]@!$'*": "%2F%3F%23%5B%5D%40%21%24%27%2A",
		"é":          "%C3%A9",
	}
	for in, want := range tests {
		if got := encodeComponent(in); got != want {
			t.Errorf("encodeComponent(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestVerifySignedURL_Rejections(t *testing.T) {
	s, _ := newTestSigner()
	signed, _ := s.CreateSignedURL("/download", []Param{{Key: "file", Value: "report.pdf"}}, testKey)

	falseCases := []struct {
		name  string
		path  string
		query string
	}{
		{name: "different path", path: "/admin", query: signed},
		{name: "param changed", path: "/download", query: strings.Replace(signed, "report.pdf", "secrets.txt", 1)},
		{name: "param appended", path: "/download", query: "x=1&" + signed},
	}
	for _, tt := range falseCases {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := s.VerifySignedURL(tt.path, tt.query, testKey, 5)
			if err != nil || ok {
				t.Errorf("VerifySignedURL() = %v, %v; want false, nil", ok, err)
			}
		})
	}

	malformed := []struct {
		name  string
		query string
	}{
		{name: "no signature", query: "file=report.pdf&timestamp=1700000000"},
		{name: "no timestamp", query: "file=report.pdf&signature=abc"},
		{name: "two signatures", query: "a=1&signature=x&signature=y&timestamp=1700000000"},
		{name: "two timestamps", query: "a=1&signature=x&timestamp=1&timestamp=2"},
		{name: "timestamp not a number", query: "a=1&signature=x&timestamp=soon"},
		{name: "bad percent encoding", query: "a=1&signature=%zz&timestamp=1700000000"},
		{name: "empty", query: ""},
	}
	for _, tt := range malformed {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.VerifySignedURL("/download", tt.query, testKey, 5); !errors.Is(err, ErrInvalidSignature) {
				t.Errorf("VerifySignedURL() error = %v, want ErrInvalidSignature", err)
			}
		})
	}
}

func TestCreateSignedURL_ReservedKeys(t *testing.T) {
	s, _ := newTestSigner()

	for _, reserved := range []string{"signature", "timestamp"} {
		t.Run(reserved, func(t *testing.T) {
			params := []Param{{Key: "file", Value: "a.pdf"}, {Key: reserved, Value: "x"}}
			got, err := s.CreateSignedURL("/download", params, testKey)
			if !errors.Is(err, ErrInvalidSignature) {
				t.Fatalf("CreateSignedURL() error = %v, want ErrInvalidSignature", err)
			}
			if got != "" {
				t.Errorf("CreateSignedURL() = %q, want empty", got)
			}
		})
	}

	// Lookalike keys are ordinary parameters and round trip.
	params := []Param{{Key: "signatures", Value: "x"}, {Key: "ts", Value: "1"}}
	query, err := s.CreateSignedURL("/download", params, testKey)
	if err != nil {
		t.Fatalf("CreateSignedURL() error = %v", err)
	}
	ok, err := s.VerifySignedURL("/download", query, testKey, 5)
	if err != nil || !ok {
		t.Errorf("VerifySignedURL() = %v, %v, want true, nil", ok, err)
	}
}

func TestVerifySignedURL_Expired(t *testing.T) {
	s, clock := newTestSigner()
	signed, _ := s.CreateSignedURL("/download", []Param{{Key: "file", Value: "a"}}, testKey)

	clock.t = clock.t.Add(time.Hour)
	if _, err := s.VerifySignedURL("/download", signed, testKey, 5); !errors.Is(err, ErrSignatureExpired) {
		t.Errorf("VerifySignedURL() error = %v, want ErrSignatureExpired", err)
	}
}

func TestSignedURL_PackageLevel(t *testing.T) {
	signed, err := CreateSignedURL("/files", nil, testKey)
	if err != nil {
		t.Fatalf("CreateSignedURL() error = %v", err)
	}
	if !strings.HasPrefix(signed, "&signature=") {
		t.Errorf("CreateSignedURL() with no params = %q", signed)
	}
	if ok, err := VerifySignedURL("/files", signed, testKey, 5); err != nil || !ok {
		t.Errorf("VerifySignedURL() = %v, %v", ok, err)
	}

	if _, err := CreateSignedURL("/files", nil, []byte("short")); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("CreateSignedURL() error = %v, want ErrInvalidKey", err)
	}
}
