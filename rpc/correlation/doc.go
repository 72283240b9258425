// Package correlation matches asynchronous responses to the requests waiting for them.
//
// A Table holds one Pending completion per in-flight request id. Responses, channel
// failures, cancellations and deadlines all race to settle a request. The table
// removes the entry before settling it, so the first one wins and every later attempt
// is a harmless no-op that is only counted as stale.
//
// The DeadlineScheduler expires requests whose deadline elapsed. It keeps the
// deadlines in a util.MapHeap ordered by time and runs a single goroutine for all of
// them.
package correlation
