package edflex

import (
	"errors"
	"testing"
)

func TestParseResponse(t *testing.T) {
	t.Parallel()

	t.Run("success passes body through", func(t *testing.T) {
		t.Parallel()
		body := []byte(`{"data":[]}`)
		got, err := parseResponse(body, 200, true)
		if err != nil {
			t.Fatalf("parseResponse failed: %v", err)
		}
		if string(got) != string(body) {
			t.Errorf("body changed: %q", got)
		}
	})

	t.Run("non-2xx with envelope", func(t *testing.T) {
		t.Parallel()
		body := []byte(`{"errors":[{"code":"400","title":"Bad Request","detail":"x"}]}`)
		_, err := parseResponse(body, 400, true)

		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected APIError, got %v", err)
		}
		if apiErr.StatusCode != 400 {
			t.Errorf("StatusCode = %d, want 400", apiErr.StatusCode)
		}
		if apiErr.Message != "400 Bad Request x" {
			t.Errorf("Message = %q, want %q", apiErr.Message, "400 Bad Request x")
		}
	})

	t.Run("non-2xx without envelope", func(t *testing.T) {
		t.Parallel()
		_, err := parseResponse([]byte("gateway timeout"), 504, true)

		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected APIError, got %v", err)
		}
		if apiErr.Message != "unknown error" {
			t.Errorf("Message = %q, want %q", apiErr.Message, "unknown error")
		}
	})

	t.Run("2xx with envelope is still an error", func(t *testing.T) {
		t.Parallel()
		body := []byte(`{"errors":[{"code":"42","title":"Nope"}]}`)
		_, err := parseResponse(body, 200, true)

		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected APIError, got %v", err)
		}
		if apiErr.StatusCode != 200 {
			t.Errorf("StatusCode = %d, want 200", apiErr.StatusCode)
		}
	})

	t.Run("2xx with invalid json", func(t *testing.T) {
		t.Parallel()
		_, err := parseResponse([]byte("<html>"), 200, true)
		if !errors.Is(err, ErrInvalidResponse) {
			t.Errorf("expected ErrInvalidResponse, got %v", err)
		}
	})

	t.Run("binary body skips json handling", func(t *testing.T) {
		t.Parallel()
		body := []byte{0x50, 0x4b, 0x03, 0x04}
		got, err := parseResponse(body, 200, false)
		if err != nil {
			t.Fatalf("parseResponse failed: %v", err)
		}
		if len(got) != 4 {
			t.Errorf("expected verbatim binary body, got %v", got)
		}
	})
}

func TestBuildErrorMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		errs []errorObject
		want string
	}{
		{"empty list", nil, ""},
		{
			"single full entry",
			[]errorObject{{Code: "400", Title: "Bad Request", Detail: "bad filter"}},
			"400 Bad Request bad filter",
		},
		{
			"multiple entries joined",
			[]errorObject{
				{Code: "a", Title: "b", Detail: "c"},
				{Code: "d", Title: "e", Detail: "f"},
			},
			"a b c. d e f",
		},
		{
			"absent fields stay empty",
			[]errorObject{{Title: "Only Title"}},
			" Only Title ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := buildErrorMessage(tt.errs); got != tt.want {
				t.Errorf("buildErrorMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}
