package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorCodes(t *testing.T) {
	codes := []ErrorCode{
		CodeUnknown,
		CodeValidation,
		CodeConfiguration,
		CodeTimeout,
		CodeCanceled,
		CodeInvalidSpec,
		CodeHostSpecInvalid,
		CodePortSpecInvalid,
		CodeResolveFailed,
		CodeDiscoveryFailed,
		CodeHostUnreachable,
		CodeNetworkUnreachable,
		CodeIncompleteReport,
	}

	for _, code := range codes {
		if string(code) == "" {
			t.Errorf("Error code %v should not be empty", code)
		}
	}
}

func TestSpecError(t *testing.T) {
	t.Run("basic error creation", func(t *testing.T) {
		err := NewSpecError(CodePortSpecInvalid, "bad port spec")
		if err.Code != CodePortSpecInvalid {
			t.Errorf("Expected code %s, got %s", CodePortSpecInvalid, err.Code)
		}
		if err.Message != "bad port spec" {
			t.Errorf("Expected message 'bad port spec', got '%s'", err.Message)
		}
		if err.Context == nil {
			t.Error("Context should be initialized")
		}
	})

	t.Run("error with spec token", func(t *testing.T) {
		err := NewSpecErrorWithSpec(CodePortSpecInvalid, "inverted range", "443-80")
		if err.Spec != "443-80" {
			t.Errorf("Expected spec '443-80', got '%s'", err.Spec)
		}
		expected := "[PORT_SPEC_INVALID] inverted range (spec: 443-80)"
		if err.Error() != expected {
			t.Errorf("Expected error message '%s', got '%s'", expected, err.Error())
		}
	})

	t.Run("error without spec token", func(t *testing.T) {
		err := NewSpecError(CodeInvalidSpec, "empty request")
		expected := "[INVALID_SPEC] empty request"
		if err.Error() != expected {
			t.Errorf("Expected error message '%s', got '%s'", expected, err.Error())
		}
	})

	t.Run("wrapped error", func(t *testing.T) {
		cause := fmt.Errorf("lookup failed")
		err := WrapSpecError(CodeResolveFailed, "cannot resolve", "example.invalid", cause)
		if err.Unwrap() != cause {
			t.Error("Wrapped error should be unwrappable")
		}
		if err.Cause != cause {
			t.Error("Cause should be set correctly")
		}
		if err.Spec != "example.invalid" {
			t.Errorf("Expected spec 'example.invalid', got '%s'", err.Spec)
		}
	})

	t.Run("with context", func(t *testing.T) {
		err := NewSpecError(CodeHostSpecInvalid, "bad prefix").
			WithContext("prefix", "10.0.0.0/33").
			WithContext("index", 2)

		if err.Context["prefix"] != "10.0.0.0/33" {
			t.Error("Context should contain prefix")
		}
		if err.Context["index"] != 2 {
			t.Error("Context should contain index")
		}
	})

	t.Run("errors.Is through wrapping", func(t *testing.T) {
		cause := fmt.Errorf("root cause")
		err := WrapSpecError(CodeResolveFailed, "resolution failed", "host", cause)
		if !errors.Is(err, cause) {
			t.Error("errors.Is should find the wrapped cause")
		}
	})
}

func TestReportError(t *testing.T) {
	t.Run("basic error creation", func(t *testing.T) {
		err := NewReportError(CodeIncompleteReport, "missing results")
		if err.Code != CodeIncompleteReport {
			t.Errorf("Expected code %s, got %s", CodeIncompleteReport, err.Code)
		}
	})

	t.Run("incomplete report pair", func(t *testing.T) {
		err := ErrIncompleteReport("192.168.1.5", 443)
		if err.Host != "192.168.1.5" {
			t.Errorf("Expected host '192.168.1.5', got '%s'", err.Host)
		}
		if err.Port != 443 {
			t.Errorf("Expected port 443, got %d", err.Port)
		}
		expected := "[INCOMPLETE_REPORT] No probe result recorded for requested pair (pair: 192.168.1.5:443)"
		if err.Error() != expected {
			t.Errorf("Expected error message '%s', got '%s'", expected, err.Error())
		}
	})

	t.Run("error without pair", func(t *testing.T) {
		err := NewReportError(CodeIncompleteReport, "aggregation failed")
		expected := "[INCOMPLETE_REPORT] aggregation failed"
		if err.Error() != expected {
			t.Errorf("Expected error message '%s', got '%s'", expected, err.Error())
		}
	})
}

func TestDiscoveryError(t *testing.T) {
	t.Run("basic error creation", func(t *testing.T) {
		err := NewDiscoveryError(CodeDiscoveryFailed, "discovery failed")
		if err.Code != CodeDiscoveryFailed {
			t.Errorf("Expected code %s, got %s", CodeDiscoveryFailed, err.Code)
		}
		if err.Context == nil {
			t.Error("Context should be initialized")
		}
	})

	t.Run("wrapped error with host", func(t *testing.T) {
		cause := fmt.Errorf("socket error")
		err := WrapDiscoveryError(CodeHostUnreachable, "ping failed", "10.0.0.9", cause)
		if err.Host != "10.0.0.9" {
			t.Errorf("Expected host '10.0.0.9', got '%s'", err.Host)
		}
		if err.Unwrap() != cause {
			t.Error("Should unwrap to original error")
		}
		expected := "[HOST_UNREACHABLE] ping failed (host: 10.0.0.9)"
		if err.Error() != expected {
			t.Errorf("Expected error message '%s', got '%s'", expected, err.Error())
		}
	})
}

func TestConfigError(t *testing.T) {
	t.Run("basic error creation", func(t *testing.T) {
		err := NewConfigError(CodeConfiguration, "config broken")
		expected := "[CONFIGURATION] config broken"
		if err.Error() != expected {
			t.Errorf("Expected error message '%s', got '%s'", expected, err.Error())
		}
	})

	t.Run("field error", func(t *testing.T) {
		err := NewConfigFieldError(CodeValidation, "out of range", "scan.concurrency", 0)
		if err.Field != "scan.concurrency" {
			t.Errorf("Expected field 'scan.concurrency', got '%s'", err.Field)
		}
		if err.Value != 0 {
			t.Errorf("Expected value 0, got %v", err.Value)
		}
		expected := "[VALIDATION] out of range (field: scan.concurrency)"
		if err.Error() != expected {
			t.Errorf("Expected error message '%s', got '%s'", expected, err.Error())
		}
	})

	t.Run("wrapped error", func(t *testing.T) {
		cause := fmt.Errorf("yaml parse error")
		err := WrapConfigError(CodeConfiguration, "cannot load config", cause)
		if err.Unwrap() != cause {
			t.Error("Should unwrap to original error")
		}
	})
}

func TestIsCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     ErrorCode
		expected bool
	}{
		{
			name:     "spec error matching code",
			err:      ErrInvalidPortSpec("0"),
			code:     CodePortSpecInvalid,
			expected: true,
		},
		{
			name:     "spec error different code",
			err:      ErrInvalidPortSpec("0"),
			code:     CodeHostSpecInvalid,
			expected: false,
		},
		{
			name:     "report error matching code",
			err:      ErrIncompleteReport("h", 80),
			code:     CodeIncompleteReport,
			expected: true,
		},
		{
			name:     "discovery error matching code",
			err:      NewDiscoveryError(CodeDiscoveryFailed, "failed"),
			code:     CodeDiscoveryFailed,
			expected: true,
		},
		{
			name:     "config error matching code",
			err:      ErrConfigInvalid("scan.timeout", -1),
			code:     CodeValidation,
			expected: true,
		},
		{
			name:     "plain error",
			err:      fmt.Errorf("plain"),
			code:     CodeUnknown,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsCode(tt.err, tt.code); got != tt.expected {
				t.Errorf("IsCode() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorCode
	}{
		{"spec error", ErrInvalidHostSpec("???"), CodeHostSpecInvalid},
		{"report error", ErrIncompleteReport("h", 22), CodeIncompleteReport},
		{"discovery error", NewDiscoveryError(CodeHostUnreachable, "down"), CodeHostUnreachable},
		{"config error", NewConfigError(CodeConfiguration, "bad"), CodeConfiguration},
		{"plain error", fmt.Errorf("plain"), CodeUnknown},
		{"nil error", nil, CodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.expected {
				t.Errorf("GetCode() = %s, expected %s", got, tt.expected)
			}
		})
	}
}

func TestIsInvalidSpec(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"host spec", ErrInvalidHostSpec("10.0.0.0/99"), true},
		{"port spec", ErrInvalidPortSpec("70000"), true},
		{"resolve failure", ErrResolveFailed("nope.invalid", fmt.Errorf("nx")), true},
		{"generic invalid spec", NewSpecError(CodeInvalidSpec, "empty"), true},
		{"report error", ErrIncompleteReport("h", 80), false},
		{"plain error", fmt.Errorf("plain"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsInvalidSpec(tt.err); got != tt.expected {
				t.Errorf("IsInvalidSpec() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"spec error is fatal", ErrInvalidPortSpec("0"), true},
		{"config error is fatal", NewConfigError(CodeConfiguration, "bad"), true},
		{"incomplete report is fatal", ErrIncompleteReport("h", 80), true},
		{"unreachable host is not fatal", NewDiscoveryError(CodeHostUnreachable, "down"), false},
		{"plain error is not fatal", fmt.Errorf("plain"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFatal(tt.err); got != tt.expected {
				t.Errorf("IsFatal() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestCommonConstructors(t *testing.T) {
	t.Run("ErrInvalidHostSpec", func(t *testing.T) {
		err := ErrInvalidHostSpec("300.1.1.1")
		if err.Code != CodeHostSpecInvalid {
			t.Errorf("Expected code %s, got %s", CodeHostSpecInvalid, err.Code)
		}
		if err.Spec != "300.1.1.1" {
			t.Errorf("Expected spec '300.1.1.1', got '%s'", err.Spec)
		}
	})

	t.Run("ErrInvalidPortSpec", func(t *testing.T) {
		err := ErrInvalidPortSpec("abc")
		if err.Code != CodePortSpecInvalid {
			t.Errorf("Expected code %s, got %s", CodePortSpecInvalid, err.Code)
		}
	})

	t.Run("ErrResolveFailed", func(t *testing.T) {
		cause := fmt.Errorf("no such host")
		err := ErrResolveFailed("missing.example.com", cause)
		if err.Code != CodeResolveFailed {
			t.Errorf("Expected code %s, got %s", CodeResolveFailed, err.Code)
		}
		if !errors.Is(err, cause) {
			t.Error("Should wrap the resolution error")
		}
	})

	t.Run("ErrConfigInvalid", func(t *testing.T) {
		err := ErrConfigInvalid("logging.level", "loud")
		if err.Field != "logging.level" {
			t.Errorf("Expected field 'logging.level', got '%s'", err.Field)
		}
		if err.Value != "loud" {
			t.Errorf("Expected value 'loud', got %v", err.Value)
		}
	})
}
