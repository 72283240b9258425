// Package dispatch implements the Dispatcher, the bridge between the typed command
// facades and an asynchronous native channel.
//
// A call of Dispatch allocates a request id, registers a pending completion in a
// correlation table, schedules its deadline and hooks the caller's context before it
// submits the descriptor exactly once. The channel reports responses and failures
// by request id; the first outcome settles the call and every later one is dropped.
//
//	d, err := dispatch.NewDispatcher(channel, dispatch.Options{})
//	resp, err := d.Dispatch(ctx, desc, time.Now().Add(time.Second))
//
// Each dispatcher exports counters for dispatched requests and their outcomes, an
// in-flight gauge and a latency histogram (see WriteMetrics).
package dispatch
