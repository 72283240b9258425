package server

import (
	"io"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/ValentinKolb/kvbridge/lib/store/lstore"
	"github.com/ValentinKolb/kvbridge/rpc/common"
	"github.com/ValentinKolb/kvbridge/rpc/serializer"
	"github.com/ValentinKolb/kvbridge/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("server")

// sweepInterval is the period of the removal of expired keys
const sweepInterval = time.Second

// RPCServer is the execution core reachable over a byte transport.
// It decodes request frames, runs them on a CommandAdapter over an in-memory store
// and encodes the responses.
type RPCServer struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	store      *lstore.Store
	adapter    IRPCServerAdapter
	metrics    *serverMetrics
}

// NewRPCServer creates a new RPC server
// It takes a config, transport and serializer as parameters
//
// Usage:
//
//	s := server.NewRPCServer(
//		*config,
//		tcp.NewTCPServerTransport(),
//		serializer.NewBinarySerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	}
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
) *RPCServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	s := lstore.NewLocalStore(lstore.Options{SweepInterval: sweepInterval})
	return &RPCServer{
		config:     config,
		transport:  transport,
		serializer: serializer,
		store:      s,
		adapter:    NewCommandAdapter(s),
		metrics:    newServerMetrics(s),
	}
}

// Serve registers the request handler and starts the transport.
// It blocks until Close is called or the transport fails.
func (s *RPCServer) Serve() error {
	s.transport.RegisterHandler(s.handle)
	Logger.Infof("Serving with %s serializer\n%s", s.serializer.Name(), s.config.String())
	return s.transport.Listen(s.config)
}

// Close stops the transport and the store sweeper
func (s *RPCServer) Close() error {
	err := s.transport.Close()
	_ = s.store.Close()
	return err
}

// Adapter returns the adapter executing the commands
func (s *RPCServer) Adapter() IRPCServerAdapter {
	return s.adapter
}

// WriteMetrics writes the server metrics in prometheus text format
func (s *RPCServer) WriteMetrics(w io.Writer) {
	s.metrics.write(w)
}

// handle is the transport.ServerHandleFunc of the server
func (s *RPCServer) handle(req []byte) []byte {
	start := time.Now()

	desc, err := s.serializer.DeserializeRequest(req)
	if err != nil {
		s.metrics.decodeErrors.Inc()
		Logger.Warningf("failed to deserialize request: %v", err)
		return s.encode(common.NewErrorResponse("ERR", "failed to deserialize request: "+err.Error()))
	}

	resp := s.adapter.Execute(desc)
	s.metrics.observe(desc.Name(), resp.IsError(), start)
	return s.encode(resp)
}

func (s *RPCServer) encode(resp common.Response) []byte {
	data, err := s.serializer.SerializeResponse(resp)
	if err == nil {
		return data
	}

	Logger.Errorf("failed to serialize response: %v", err)
	data, err = s.serializer.SerializeResponse(common.NewErrorResponse("ERR", "failed to serialize response"))
	if err != nil {
		// nothing left to send, the client fails the request with a decode error
		return nil
	}
	return data
}
