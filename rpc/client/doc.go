// Package client provides the command facade of kvbridge.
//
// A Client turns typed method calls into command descriptors, hands them to a
// dispatch.Dispatcher and decodes the correlated response into the native result
// type of the command. Error replies of the execution core are returned as
// ServerErrors, all other failures as ChannelError, TimeoutError, CancelledError,
// ArgumentError or DecodeError (see common.Error).
//
// Key Components:
//
//   - NewClient: Creates a client on top of any transport.IChannel.
//
//   - NewLocalClient: Creates a client whose commands are executed in process on a
//     fresh in-memory store. Useful for tests and embedding.
//
//   - NewRemoteClient: Creates a client connected to a kvb server over tcp, unix or ws
//     using the serializer named in the configuration.
//
// Deadlines and Retries:
//
//	Every command gets the deadline ClientConfig.TimeoutMillisecond (0 = none) in
//	addition to the deadline and cancellation of its context. Commands the channel
//	refused to accept never reached the server and are retried up to RetryCount times
//	with exponential backoff. Commands that were accepted are never retried, since the
//	server may already have executed them.
//
// Usage Example:
//
//	config := common.ClientConfig{
//	  Transport: common.TransportConf{
//	    Endpoints:  []string{"localhost:8080"},
//	    Serializer: "binary",
//	  },
//	  TimeoutMillisecond: 5000,
//	  RetryCount:         3,
//	}
//
//	c, _ := client.NewRemoteClient(config, "tcp")
//	defer c.Close()
//
//	c.Set(ctx, value.FromString("mykey"), value.FromString("myvalue"))
//	v, _ := c.Get(ctx, value.FromString("mykey"))
//	if s, ok := v.Get(); ok {
//	  fmt.Println(s)
//	}
//
// Thread Safety:
//
//	A Client is safe for concurrent use by multiple goroutines.
package client
