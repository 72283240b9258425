package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/lni/dragonboat/v4/logger"
)

func TestErrorKindsMatchSentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"argument", NewArgumentError("wrong number of arguments for %s", "GET"), ErrArgument},
		{"channel", NewChannelError(3, "connection reset", nil), ErrChannel},
		{"server", NewServerError("WRONGTYPE", "Operation against a key holding the wrong kind of value"), ErrServer},
		{"decode", NewDecodeError("expected bulk, got %s", RespInt), ErrDecode},
		{"timeout", NewTimeoutError(7, nil), ErrTimeout},
		{"cancelled", NewCancelledError(8, nil), ErrCancelled},
	}

	all := []error{ErrArgument, ErrChannel, ErrServer, ErrDecode, ErrTimeout, ErrCancelled}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("facade: %w", tt.err)
			for _, s := range all {
				got := errors.Is(wrapped, s)
				want := s == tt.sentinel
				if got != want {
					t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, s, got, want)
				}
			}
		})
	}
}

func TestErrorUnwrapAndAs(t *testing.T) {
	cause := errors.New("broken pipe")
	err := fmt.Errorf("dispatch: %w", NewChannelError(42, "submit failed", cause))

	if !errors.Is(err, cause) {
		t.Error("cause should be reachable through Unwrap")
	}

	var e *Error
	if !errors.As(err, &e) {
		t.Fatal("errors.As should find *Error")
	}
	if e.RequestID != 42 || e.Kind != ErrKChannel {
		t.Errorf("unexpected error details: %+v", e)
	}
	if !strings.Contains(e.Error(), "request 42") || !strings.Contains(e.Error(), "broken pipe") {
		t.Errorf("unexpected message: %s", e.Error())
	}
}

func TestServerErrorMessage(t *testing.T) {
	err := NewServerError("WRONGTYPE", "Operation against a key holding the wrong kind of value")
	want := "ServerError: WRONGTYPE Operation against a key holding the wrong kind of value"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestResponseKindJSON(t *testing.T) {
	kinds := []ResponseKind{RespNull, RespStatus, RespBulk, RespInt, RespError, RespArray, RespMap}
	for _, k := range kinds {
		data, err := json.Marshal(k)
		if err != nil {
			t.Fatalf("marshal %v: %v", k, err)
		}
		var back ResponseKind
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}
		if back != k {
			t.Errorf("round trip of %v gave %v", k, back)
		}
	}

	var k ResponseKind
	if err := json.Unmarshal([]byte(`"nope"`), &k); err == nil {
		t.Error("unknown kind should fail")
	}
}

func TestResponseString(t *testing.T) {
	r := NewArrayResponse(
		NewBulkResponse([]byte("a")),
		NewNullResponse(),
		NewIntResponse(3),
	)
	want := "1) \"a\"\n2) (nil)\n3) (integer) 3"
	if r.String() != want {
		t.Errorf("got %q, want %q", r.String(), want)
	}

	if NewArrayResponse().String() != "(empty array)" {
		t.Errorf("unexpected empty array form: %q", NewArrayResponse().String())
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]logger.LogLevel{
		"debug":   logger.DEBUG,
		"INFO":    logger.INFO,
		"":        logger.INFO,
		"warn":    logger.WARNING,
		"warning": logger.WARNING,
		"error":   logger.ERROR,
	}
	for in, want := range tests {
		got, err := ParseLogLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLogLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLogLevel("verbose"); err == nil {
		t.Error("invalid level should fail")
	}
}

func TestCreateLoggerLevels(t *testing.T) {
	l := CreateLogger("test").(*kvbLogger)
	l.SetLevel(logger.ERROR)
	if l.level.Enabled(toZapLevel(logger.INFO)) {
		t.Error("info should be disabled at error level")
	}
	l.SetLevel(logger.DEBUG)
	if !l.level.Enabled(toZapLevel(logger.DEBUG)) {
		t.Error("debug should be enabled at debug level")
	}
}

func TestConfigString(t *testing.T) {
	c := ClientConfig{
		Transport: TransportConf{
			Endpoints:  []string{"localhost:8080", "localhost:8081"},
			Serializer: "binary",
		},
		TimeoutMillisecond: 250,
		RetryCount:         2,
	}
	s := c.String()
	for _, want := range []string{"250 ms", "localhost:8081", "CLIENT CONFIGURATION"} {
		if !strings.Contains(s, want) {
			t.Errorf("client config string misses %q:\n%s", want, s)
		}
	}
	if c.Transport.Connections() != 1 {
		t.Errorf("connections should default to 1, got %d", c.Transport.Connections())
	}

	sc := ServerConfig{
		Transport: TransportConf{Endpoint: ":8080", WorkersPerConn: 8},
		Log:       LogConfig{Level: "debug", Outputs: []string{"stdout"}},
	}
	if !strings.Contains(sc.String(), "debug") || sc.Transport.Workers() != 8 {
		t.Errorf("unexpected server config string:\n%s", sc.String())
	}
}
