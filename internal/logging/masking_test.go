package logging

import (
	"encoding/json"
	"log/slog"
	"testing"
)

func TestMaskHeader(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		value    string
		expected string
	}{
		// Password/secret headers (full redaction)
		{"secret header", "X-Secret", "topsecret", "[REDACTED]"},
		{"client secret", "Client-Secret", "abc123", "[REDACTED]"},
		{"private key", "Private-Key", "key123", "[REDACTED]"},

		// Bearer token headers (last 4 chars)
		{"authorization bearer", "Authorization", "Bearer token-value-1234", "****1234"},
		{"x-api-key header", "X-Api-Key", "mykey123", "****y123"},
		{"short token", "Authorization", "abc", "****"},

		// Case insensitive
		{"mixed case auth", "AUTHORIZATION", "secret-abcd", "****abcd"},
		{"lowercase auth", "authorization", "mysecret9999", "****9999"},

		// Other headers unchanged
		{"content type", "Content-Type", "application/json", "application/json"},
		{"accept", "Accept", "application/json", "application/json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MaskHeader(tt.header, tt.value)
			if got != tt.expected {
				t.Errorf("MaskHeader(%q, %q) = %q, want %q", tt.header, tt.value, got, tt.expected)
			}
		})
	}
}

func TestMaskJSONBodyNilAllowlist(t *testing.T) {
	body := []byte(`{"client_secret":"s3cret"}`)
	got := MaskJSONBody(body, nil)
	if string(got) != string(body) {
		t.Errorf("nil allowlist must leave body unchanged, got %s", got)
	}
}

func TestMaskJSONBodyRedactsSecret(t *testing.T) {
	body := []byte(`{"grant_type":"client_credentials","client_id":"cid","client_secret":"s3cret"}`)
	got := MaskJSONBody(body, []string{"grant_type", "client_id"})

	var m map[string]interface{}
	if err := json.Unmarshal(got, &m); err != nil {
		t.Fatalf("masked body is not JSON: %v", err)
	}

	if m["client_secret"] != "[REDACTED]" {
		t.Errorf("expected client_secret redacted, got %v", m["client_secret"])
	}
	if m["grant_type"] != "client_credentials" {
		t.Errorf("expected grant_type preserved, got %v", m["grant_type"])
	}
	if m["client_id"] != "cid" {
		t.Errorf("expected client_id preserved, got %v", m["client_id"])
	}
}

func TestMaskJSONBodyInvalidJSON(t *testing.T) {
	body := []byte("not json at all")
	got := MaskJSONBody(body, []string{"x"})
	if string(got) != string(body) {
		t.Errorf("unparseable body must be returned unchanged, got %s", got)
	}
}

func TestMaskJSONBodyNested(t *testing.T) {
	body := []byte(`{"outer":{"client_secret":"s3cret","name":"ok"}}`)
	got := MaskJSONBody(body, []string{"name"})

	var m map[string]map[string]interface{}
	if err := json.Unmarshal(got, &m); err != nil {
		t.Fatalf("masked body is not JSON: %v", err)
	}
	if m["outer"]["client_secret"] != "[REDACTED]" {
		t.Errorf("expected nested secret redacted, got %v", m["outer"]["client_secret"])
	}
	if m["outer"]["name"] != "ok" {
		t.Errorf("expected nested allowlisted field preserved, got %v", m["outer"]["name"])
	}
}

func TestFormatBinaryData(t *testing.T) {
	got := FormatBinaryData(make([]byte, 1024))
	if got != "[BINARY: 1024 bytes]" {
		t.Errorf("unexpected format: %s", got)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
		{"DEBUG", slog.LevelDebug},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
