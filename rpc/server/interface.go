package server

import (
	"github.com/ValentinKolb/kvbridge/rpc/command"
	"github.com/ValentinKolb/kvbridge/rpc/common"
)

// IRPCServerAdapter is the interface for all server adapters.
// It executes a command descriptor and returns the response of the execution core.
// Failures of the command are reported as error responses, never as Go errors.
// The interface has the shape of local.IExecutor, so adapters can back a local channel.
type IRPCServerAdapter interface {
	Execute(desc command.Descriptor) common.Response
}
