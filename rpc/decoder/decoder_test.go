package decoder

import (
	"errors"
	"testing"

	"github.com/ValentinKolb/kvbridge/lib/value"
	"github.com/ValentinKolb/kvbridge/rpc/common"
)

var wrongType = common.NewErrorResponse("WRONGTYPE", "Operation against a key holding the wrong kind of value")

func assertServerError(t *testing.T, err error, kind string) {
	t.Helper()
	var e *common.Error
	if !errors.As(err, &e) || e.Kind != common.ErrKServer {
		t.Fatalf("expected ServerError, got %v", err)
	}
	if e.ServerKind != kind {
		t.Errorf("expected server kind %q, got %q", kind, e.ServerKind)
	}
}

func TestOK(t *testing.T) {
	s, err := OK(common.NewOKResponse())
	if err != nil || s != "OK" {
		t.Errorf("got %q, %v", s, err)
	}

	if _, err := OK(common.NewStatusResponse("QUEUED")); !errors.Is(err, common.ErrDecode) {
		t.Errorf("other status text should be a DecodeError, got %v", err)
	}
	if _, err := OK(common.NewBulkResponse([]byte("OK"))); !errors.Is(err, common.ErrDecode) {
		t.Errorf("bulk should be a DecodeError, got %v", err)
	}
	if _, err := OK(common.NewNullResponse()); !errors.Is(err, common.ErrDecode) {
		t.Errorf("null should be a DecodeError, got %v", err)
	}
	_, err = OK(wrongType)
	assertServerError(t, err, "WRONGTYPE")
}

func TestOptionalValue(t *testing.T) {
	tests := []struct {
		name    string
		resp    common.Response
		present bool
		want    string
	}{
		{"bulk", common.NewBulkResponse([]byte("v")), true, "v"},
		{"empty bulk is present", common.NewBulkResponse([]byte{}), true, ""},
		{"null is absent", common.NewNullResponse(), false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := OptionalValue(tt.resp)
			if err != nil {
				t.Fatal(err)
			}
			v, ok := got.Get()
			if ok != tt.present || (ok && v.Raw() != tt.want) {
				t.Errorf("got (%v, %v), want (%q, %v)", v, ok, tt.want, tt.present)
			}
		})
	}
}

func TestGetOnWrongTypeIsServerError(t *testing.T) {
	got, err := OptionalValue(wrongType)
	assertServerError(t, err, "WRONGTYPE")
	if got.IsPresent() {
		t.Error("error must not be coerced into a value")
	}
}

func TestValueRejectsNull(t *testing.T) {
	if _, err := Value(common.NewNullResponse()); !errors.Is(err, common.ErrDecode) {
		t.Errorf("expected DecodeError, got %v", err)
	}
	if _, err := Value(common.NewIntResponse(1)); !errors.Is(err, common.ErrDecode) {
		t.Errorf("expected DecodeError, got %v", err)
	}
}

func TestValueRejectsStatus(t *testing.T) {
	if _, err := Value(common.NewStatusResponse("QUEUED")); !errors.Is(err, common.ErrDecode) {
		t.Errorf("expected DecodeError, got %v", err)
	}
	got, err := OptionalValue(common.NewStatusResponse("x"))
	if !errors.Is(err, common.ErrDecode) {
		t.Errorf("expected DecodeError, got %v", err)
	}
	if got.IsPresent() {
		t.Error("status reply must not be turned into a value")
	}
}

func TestValueIsBinarySafe(t *testing.T) {
	raw := []byte{0xc3, 0x28, 0x00, 0xff}
	got, err := Value(common.NewBulkResponse(raw))
	if err != nil {
		t.Fatal(err)
	}
	if string(got.Bytes()) != string(raw) {
		t.Errorf("bytes changed: %v", got.Bytes())
	}
	if _, err := got.Text(); !errors.Is(err, value.ErrInvalidText) {
		t.Errorf("invalid utf-8 must not decode as text, got %v", err)
	}
}

func TestIntAndBool(t *testing.T) {
	i, err := Int(common.NewIntResponse(-42))
	if err != nil || i != -42 {
		t.Errorf("got %d, %v", i, err)
	}
	if _, err := Int(common.NewBulkResponse([]byte("42"))); !errors.Is(err, common.ErrDecode) {
		t.Errorf("bulk should not be coerced into int, got %v", err)
	}

	oi, err := OptionalInt(common.NewNullResponse())
	if err != nil || oi.IsPresent() {
		t.Errorf("null should be absent, got %v, %v", oi, err)
	}

	b, err := Bool(common.NewIntResponse(1))
	if err != nil || !b {
		t.Errorf("got %v, %v", b, err)
	}
	if _, err := Bool(common.NewIntResponse(2)); !errors.Is(err, common.ErrDecode) {
		t.Errorf("2 is not a bool, got %v", err)
	}
}

func TestArrayOf(t *testing.T) {
	resp := common.NewArrayResponse(
		common.NewBulkResponse([]byte("a")),
		common.NewNullResponse(),
		common.NewBulkResponse([]byte("c")),
	)
	got, err := ArrayOf[value.Optional[value.Value]](OptionalValue)(resp)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0].MustGet().Raw() != "a" || got[1].IsPresent() || got[2].MustGet().Raw() != "c" {
		t.Errorf("unexpected result %v", got)
	}

	if _, err := ArrayOf[value.Value](Value)(resp); !errors.Is(err, common.ErrDecode) {
		t.Errorf("null element with non-optional decoder should fail, got %v", err)
	}

	empty, err := ArrayOf[value.Value](Value)(common.NewArrayResponse())
	if err != nil || len(empty) != 0 {
		t.Errorf("empty array should decode, got %v, %v", empty, err)
	}
}

func TestNestedErrorShortCircuits(t *testing.T) {
	resp := common.NewArrayResponse(common.NewBulkResponse([]byte("a")), wrongType)
	_, err := ArrayOf[value.Optional[value.Value]](OptionalValue)(resp)
	assertServerError(t, err, "WRONGTYPE")

	m := common.NewMapResponse(common.Pair{Key: common.NewBulkResponse([]byte("f")), Value: wrongType})
	_, err = MapOf[value.Value, value.Value](Value, Value)(m)
	assertServerError(t, err, "WRONGTYPE")
}

func TestOptionalArrayOf(t *testing.T) {
	got, err := OptionalArrayOf[int64](Int)(common.NewNullResponse())
	if err != nil || got.IsPresent() {
		t.Errorf("null array should be absent, got %v, %v", got, err)
	}
	got, err = OptionalArrayOf[int64](Int)(common.NewArrayResponse(common.NewIntResponse(1)))
	if err != nil || len(got.MustGet()) != 1 {
		t.Errorf("got %v, %v", got, err)
	}
}

func TestMapOf(t *testing.T) {
	b := func(s string) common.Response { return common.NewBulkResponse([]byte(s)) }

	m := common.NewMapResponse(
		common.Pair{Key: b("z"), Value: b("1")},
		common.Pair{Key: b("a"), Value: b("2")},
	)
	got, err := MapOf[value.Value, value.Value](Value, Value)(m)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Key.Raw() != "z" || got[1].Value.Raw() != "2" {
		t.Errorf("map order not preserved: %v", got)
	}

	if _, err := MapOf[value.Value, value.Value](Value, Value)(common.NewArrayResponse(b("f"), b("v"))); !errors.Is(err, common.ErrDecode) {
		t.Errorf("flat array should be a DecodeError, got %v", err)
	}
}

func TestAny(t *testing.T) {
	r := common.NewArrayResponse(common.NewIntResponse(1))
	got, err := Any(r)
	if err != nil || got.Kind != common.RespArray {
		t.Errorf("got %v, %v", got, err)
	}
	_, err = Any(wrongType)
	assertServerError(t, err, "WRONGTYPE")
	if _, err := Any(common.Response{}); !errors.Is(err, common.ErrDecode) {
		t.Errorf("unknown kind should be a DecodeError, got %v", err)
	}
}
