package serializer

import (
	"bytes"
	"testing"

	"github.com/ValentinKolb/kvbridge/lib/value"
	"github.com/ValentinKolb/kvbridge/rpc/command"
	"github.com/ValentinKolb/kvbridge/rpc/common"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() IRPCSerializer{
	"JSON":   NewJSONSerializer,
	"GOB":    NewGOBSerializer,
	"Binary": NewBinarySerializer,
	"CBOR":   NewCBORSerializer,
}

// testRequests creates a set of descriptors with different argument shapes
func testRequests() []command.Descriptor {
	return []command.Descriptor{
		command.MustBuild(command.CmdPing),
		command.MustBuild(command.CmdGet, value.FromString("test-key")),
		command.MustBuild(command.CmdSet, value.FromString("test-key"), value.FromString("test-value")),
		// empty value and invalid utf-8
		command.MustBuild(command.CmdSet, value.FromString("bin"), value.FromBytes([]byte{0xff, 0x00, 0xfe})),
		command.MustBuild(command.CmdSet, value.FromString("empty"), value.FromString("")),
		command.MustBuild(command.CmdMSet, value.FromStrings("a", "1", "b", "2", "c", "3")...),
	}
}

// testResponses creates a set of responses covering every kind
func testResponses() []common.Response {
	return []common.Response{
		common.NewNullResponse(),
		common.NewOKResponse(),
		common.NewBulkResponse([]byte("test-value")),
		common.NewBulkResponse([]byte{0xff, 0x00, 0xfe}),
		common.NewIntResponse(-42),
		common.NewIntResponse(1 << 62),
		common.NewErrorResponse("WRONGTYPE", "Operation against a key holding the wrong kind of value"),
		common.NewArrayResponse(),
		common.NewArrayResponse(
			common.NewBulkResponse([]byte("a")),
			common.NewNullResponse(),
			common.NewIntResponse(3),
		),
		// nested
		common.NewArrayResponse(
			common.NewArrayResponse(common.NewStatusResponse("x"), common.NewArrayResponse()),
			common.NewMapResponse(common.Pair{
				Key:   common.NewBulkResponse([]byte("k")),
				Value: common.NewArrayResponse(common.NewIntResponse(1)),
			}),
		),
		common.NewMapResponse(
			common.Pair{Key: common.NewBulkResponse([]byte("f1")), Value: common.NewBulkResponse([]byte("v1"))},
			common.Pair{Key: common.NewBulkResponse([]byte("f2")), Value: common.NewNullResponse()},
		),
	}
}

// sameResponse compares two responses, nil and empty slices are treated as equal
func sameResponse(a, b common.Response) bool {
	if a.Kind != b.Kind || a.Status != b.Status || a.Int != b.Int ||
		a.ErrKind != b.ErrKind || a.ErrMsg != b.ErrMsg || !bytes.Equal(a.Bulk, b.Bulk) {
		return false
	}
	if len(a.Array) != len(b.Array) || len(a.Map) != len(b.Map) {
		return false
	}
	for i := range a.Array {
		if !sameResponse(a.Array[i], b.Array[i]) {
			return false
		}
	}
	for i := range a.Map {
		if !sameResponse(a.Map[i].Key, b.Map[i].Key) || !sameResponse(a.Map[i].Value, b.Map[i].Value) {
			return false
		}
	}
	return true
}

// TestRequestRoundTrip tests that descriptors can be serialized and deserialized correctly
func TestRequestRoundTrip(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for i, desc := range testRequests() {
				data, err := serializer.SerializeRequest(desc)
				if err != nil {
					t.Errorf("Failed to serialize request %d: %v", i, err)
					continue
				}

				result, err := serializer.DeserializeRequest(data)
				if err != nil {
					t.Errorf("Failed to deserialize request %d: %v", i, err)
					continue
				}

				if len(result) != len(desc) {
					t.Errorf("Request %d: expected %d elements, got %d", i, len(desc), len(result))
					continue
				}
				for j := range desc {
					if !desc[j].Equal(result[j]) {
						t.Errorf("Request %d element %d mismatch: expected %q, got %q", i, j, desc[j].Raw(), result[j].Raw())
					}
				}
			}
		})
	}
}

// TestResponseRoundTrip tests that responses of every kind survive serialization
func TestResponseRoundTrip(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for i, resp := range testResponses() {
				data, err := serializer.SerializeResponse(resp)
				if err != nil {
					t.Errorf("Failed to serialize response %d: %v", i, err)
					continue
				}

				var result common.Response
				if err := serializer.DeserializeResponse(data, &result); err != nil {
					t.Errorf("Failed to deserialize response %d: %v", i, err)
					continue
				}

				if !sameResponse(resp, result) {
					t.Errorf("Response %d mismatch:\nexpected: %s\ngot:      %s", i, resp, result)
				}
			}
		})
	}
}

// TestDeserializeReusesTarget makes sure fields of a previous response do not leak
func TestDeserializeReusesTarget(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()
			data, err := serializer.SerializeResponse(common.NewNullResponse())
			if err != nil {
				t.Fatal(err)
			}

			result := common.NewBulkResponse([]byte("stale"))
			if err := serializer.DeserializeResponse(data, &result); err != nil {
				t.Fatal(err)
			}
			if result.Kind != common.RespNull || result.Bulk != nil {
				t.Errorf("expected a clean null response, got %+v", result)
			}
		})
	}
}

// TestInvalidData tests that broken input is rejected instead of panicking
func TestInvalidData(t *testing.T) {
	invalid := [][]byte{
		nil,
		{},
		{0x01},
		{0xff, 0xff, 0xff, 0xff, 0x00},
	}

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()
			for i, data := range invalid {
				if _, err := serializer.DeserializeRequest(data); err == nil {
					t.Errorf("Expected request error for invalid data %d", i)
				}
			}
		})
	}
}

// TestBinaryTruncated cuts valid binary frames at every position
func TestBinaryTruncated(t *testing.T) {
	s := NewBinarySerializer()

	for i, resp := range testResponses() {
		data, _ := s.SerializeResponse(resp)
		for cut := 0; cut < len(data); cut++ {
			var result common.Response
			if err := s.DeserializeResponse(data[:cut], &result); err == nil {
				t.Errorf("Response %d: expected error when cut at %d of %d bytes", i, cut, len(data))
			}
		}
	}

	for i, desc := range testRequests() {
		data, _ := s.SerializeRequest(desc)
		for cut := 0; cut < len(data); cut++ {
			if _, err := s.DeserializeRequest(data[:cut]); err == nil {
				t.Errorf("Request %d: expected error when cut at %d of %d bytes", i, cut, len(data))
			}
		}
	}
}

// TestBinaryRejects tests corner cases of the binary format
func TestBinaryRejects(t *testing.T) {
	s := NewBinarySerializer()

	t.Run("UnknownKind", func(t *testing.T) {
		var r common.Response
		if err := s.DeserializeResponse([]byte{0xee}, &r); err == nil {
			t.Error("expected error for unknown kind")
		}
	})

	t.Run("TrailingBytes", func(t *testing.T) {
		data, _ := s.SerializeResponse(common.NewNullResponse())
		var r common.Response
		if err := s.DeserializeResponse(append(data, 0), &r); err == nil {
			t.Error("expected error for trailing bytes")
		}
	})

	t.Run("HugeCount", func(t *testing.T) {
		data := []byte{byte(common.RespArray), 0xff, 0xff, 0xff, 0xff}
		var r common.Response
		if err := s.DeserializeResponse(data, &r); err == nil {
			t.Error("expected error for a count larger than the payload")
		}
	})

	t.Run("TooDeep", func(t *testing.T) {
		resp := common.NewNullResponse()
		for i := 0; i < maxNesting+2; i++ {
			resp = common.NewArrayResponse(resp)
		}
		data, _ := s.SerializeResponse(resp)
		var r common.Response
		if err := s.DeserializeResponse(data, &r); err == nil {
			t.Error("expected error for deeply nested response")
		}
	})

	t.Run("BulkIsCopied", func(t *testing.T) {
		data, _ := s.SerializeResponse(common.NewBulkResponse([]byte("abc")))
		var r common.Response
		_ = s.DeserializeResponse(data, &r)
		for i := range data {
			data[i] = 0
		}
		if string(r.Bulk) != "abc" {
			t.Errorf("bulk aliases the frame buffer: %q", r.Bulk)
		}
	})
}

// TestSerializeIsDeterministic tests that equal values always produce equal bytes
func TestSerializeIsDeterministic(t *testing.T) {
	for _, name := range []string{"Binary", "CBOR"} {
		serializer := testSerializers[name]()
		for i, resp := range testResponses() {
			a, _ := serializer.SerializeResponse(resp)
			b, _ := serializer.SerializeResponse(resp)
			if !bytes.Equal(a, b) {
				t.Errorf("%s: response %d encoded differently", name, i)
			}
		}
	}
}

func TestNew(t *testing.T) {
	for _, name := range []string{"", "binary", "JSON", "gob", "cbor"} {
		s, err := New(name)
		if err != nil {
			t.Errorf("New(%q): %v", name, err)
			continue
		}
		if name == "" && s.Name() != "binary" {
			t.Errorf("empty name should select binary, got %s", s.Name())
		}
	}
	if _, err := New("xml"); err == nil {
		t.Error("expected error for unknown serializer")
	}
}
