package server

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ValentinKolb/kvbridge/lib/value"
	"github.com/ValentinKolb/kvbridge/rpc/command"
	"github.com/ValentinKolb/kvbridge/rpc/common"
	"github.com/ValentinKolb/kvbridge/rpc/serializer"
	"github.com/ValentinKolb/kvbridge/rpc/transport/tcp"
)

func newTestServer(t *testing.T, s serializer.IRPCSerializer) *RPCServer {
	t.Helper()
	srv := NewRPCServer(common.ServerConfig{}, tcp.NewTCPServerTransport(), s)
	t.Cleanup(func() { _ = srv.store.Close() })
	return srv
}

func TestHandleRoundTrip(t *testing.T) {
	for _, name := range []string{"binary", "json", "gob", "cbor"} {
		t.Run(name, func(t *testing.T) {
			s, _ := serializer.New(name)
			srv := newTestServer(t, s)

			call := func(desc command.Descriptor) common.Response {
				req, err := s.SerializeRequest(desc)
				if err != nil {
					t.Fatal(err)
				}
				var resp common.Response
				if err := s.DeserializeResponse(srv.handle(req), &resp); err != nil {
					t.Fatal(err)
				}
				return resp
			}

			if resp := call(command.MustBuild(command.CmdSet, value.FromString("k"), value.FromString("v"))); resp.Status != "OK" {
				t.Errorf("unexpected SET reply %s", resp)
			}
			if resp := call(command.MustBuild(command.CmdGet, value.FromString("k"))); string(resp.Bulk) != "v" {
				t.Errorf("unexpected GET reply %s", resp)
			}
		})
	}
}

func TestHandleUndecodableRequest(t *testing.T) {
	s := serializer.NewBinarySerializer()
	srv := newTestServer(t, s)

	var resp common.Response
	if err := s.DeserializeResponse(srv.handle([]byte{0x01}), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.IsError() || !strings.Contains(resp.ErrMsg, "deserialize") {
		t.Errorf("expected a deserialize error reply, got %s", resp)
	}
	if srv.metrics.decodeErrors.Get() != 1 {
		t.Errorf("expected one decode error, got %d", srv.metrics.decodeErrors.Get())
	}
}

func TestServerMetrics(t *testing.T) {
	s := serializer.NewBinarySerializer()
	srv := newTestServer(t, s)

	req, _ := s.SerializeRequest(command.MustBuild(command.CmdPing))
	srv.handle(req)
	req, _ = s.SerializeRequest(command.MustBuild(command.CmdIncr, value.FromString("n")))
	srv.handle(req)

	var buf bytes.Buffer
	srv.WriteMetrics(&buf)
	out := buf.String()

	for _, want := range []string{
		`kvb_server_commands_total{command="PING"} 1`,
		`kvb_server_commands_total{command="INCR"} 1`,
		`kvb_server_keys 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics output misses %q:\n%s", want, out)
		}
	}
}

func TestAdapterSharesServerStore(t *testing.T) {
	s := serializer.NewBinarySerializer()
	srv := newTestServer(t, s)

	var adapter IRPCServerAdapter = srv.Adapter()
	if resp := adapter.Execute(command.MustBuild(command.CmdSet, value.FromString("k"), value.FromString("v"))); resp.Status != "OK" {
		t.Fatalf("unexpected SET reply %s", resp)
	}

	req, _ := s.SerializeRequest(command.MustBuild(command.CmdGet, value.FromString("k")))
	var resp common.Response
	if err := s.DeserializeResponse(srv.handle(req), &resp); err != nil {
		t.Fatal(err)
	}
	if string(resp.Bulk) != "v" {
		t.Errorf("value written through the adapter is not served, got %s", resp)
	}
}
