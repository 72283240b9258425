package serializer

import (
	"testing"

	"github.com/ValentinKolb/kvbridge/lib/value"
	"github.com/ValentinKolb/kvbridge/rpc/command"
	"github.com/ValentinKolb/kvbridge/rpc/common"
)

// benchmarkRequests returns a set of descriptors for targeted benchmarking
func benchmarkRequests() map[string]command.Descriptor {
	return map[string]command.Descriptor{
		"Ping":          command.MustBuild(command.CmdPing),
		"SmallKeyOnly":  command.MustBuild(command.CmdGet, value.FromString("k")),
		"MediumKeyOnly": command.MustBuild(command.CmdGet, value.FromString("medium-length-key-for-testing")),
		"SmallValue":    command.MustBuild(command.CmdSet, value.FromString("key"), value.FromString("v")),
		"LargeValue":    command.MustBuild(command.CmdSet, value.FromString("key"), value.FromBytes(make([]byte, 1024))),
		"VeryLargeValue": command.MustBuild(command.CmdSet, value.FromString("key"),
			value.FromBytes(make([]byte, 1024*16))),
		"MSet": command.MustBuild(command.CmdMSet, value.FromStrings(
			"k1", "v1", "k2", "v2", "k3", "v3", "k4", "v4", "k5", "v5")...),
	}
}

// benchmarkResponses returns a set of responses for targeted benchmarking
func benchmarkResponses() map[string]common.Response {
	items := make([]common.Response, 100)
	for i := range items {
		items[i] = common.NewBulkResponse([]byte("list-element"))
	}
	return map[string]common.Response{
		"Null":       common.NewNullResponse(),
		"OK":         common.NewOKResponse(),
		"Int":        common.NewIntResponse(123456),
		"SmallValue": common.NewBulkResponse([]byte("v")),
		"LargeValue": common.NewBulkResponse(make([]byte, 1024)),
		"Array100":   common.NewArrayResponse(items...),
		"Map": common.NewMapResponse(
			common.Pair{Key: common.NewBulkResponse([]byte("field-1")), Value: common.NewBulkResponse([]byte("value-1"))},
			common.Pair{Key: common.NewBulkResponse([]byte("field-2")), Value: common.NewBulkResponse([]byte("value-2"))},
		),
		"Error": common.NewErrorResponse("WRONGTYPE", "Operation against a key holding the wrong kind of value"),
	}
}

// BenchmarkSerializeRequest benchmarks request serialization for all implementations
func BenchmarkSerializeRequest(b *testing.B) {
	for name, factory := range testSerializers {
		for reqName, desc := range benchmarkRequests() {
			b.Run(name+"_"+reqName, func(b *testing.B) {
				serializer := factory()
				b.ResetTimer()

				for i := 0; i < b.N; i++ {
					if _, err := serializer.SerializeRequest(desc); err != nil {
						b.Fatalf("Failed to serialize: %v", err)
					}
				}
			})
		}
	}
}

// BenchmarkDeserializeResponse benchmarks response deserialization for all implementations
func BenchmarkDeserializeResponse(b *testing.B) {
	responses := benchmarkResponses()

	for name, factory := range testSerializers {
		for respName, resp := range responses {
			b.Run(name+"_"+respName, func(b *testing.B) {
				serializer := factory()
				data, err := serializer.SerializeResponse(resp)
				if err != nil {
					b.Fatalf("Failed to serialize %s with %s: %v", respName, name, err)
				}
				b.ResetTimer()

				for i := 0; i < b.N; i++ {
					var r common.Response
					if err := serializer.DeserializeResponse(data, &r); err != nil {
						b.Fatalf("Failed to deserialize: %v", err)
					}
				}
			})
		}
	}
}

// BenchmarkSize measures and reports the serialized size for each response type
func BenchmarkSize(b *testing.B) {
	for name, factory := range testSerializers {
		serializer := factory()

		for respName, resp := range benchmarkResponses() {
			b.Run(name+"_"+respName, func(b *testing.B) {
				data, err := serializer.SerializeResponse(resp)
				if err != nil {
					b.Fatalf("Failed to serialize: %v", err)
				}

				// Report the size as a custom metric
				b.ReportMetric(float64(len(data)), "bytes")

				for i := 0; i < b.N; i++ {
					_ = data
				}
			})
		}
	}
}
