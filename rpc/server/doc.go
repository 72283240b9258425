// Package server implements the execution core the bridge talks to: a command
// adapter over an in-memory store and a server that exposes it over a byte transport.
//
// Key Components:
//
//   - CommandAdapter: executes every command of the catalog against a store.IStore
//     and reports failures as error replies ("ERR ...", "WRONGTYPE ..."). It satisfies
//     local.IExecutor, so it also backs the in-process channel.
//
//   - RPCServer: decodes request frames with the configured serializer, executes them
//     on the adapter and encodes the responses. Expired keys are swept in the
//     background. Per command counters and latencies are kept in a VictoriaMetrics set.
//
// Usage Example:
//
//	config := common.ServerConfig{
//	  Transport: common.TransportConf{Endpoint: ":8080", WorkersPerConn: 4},
//	}
//	s := server.NewRPCServer(config, tcp.NewTCPServerTransport(), serializer.NewBinarySerializer())
//	if err := s.Serve(); err != nil {
//	  panic(err)
//	}
package server
