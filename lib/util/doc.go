// Package util provides generic concurrency and scheduling building blocks used by the
// dispatch core and the in-process execution core.
//
// The package contains:
//   - mapheap: a min-heap that can also be addressed by key. The deadline scheduler
//     keeps one item per in-flight request (key = request id, priority = deadline).
//   - lockfreempsc: a lock-free multi-producer single-consumer queue. The in-process
//     channel uses it as the submission queue between many dispatching goroutines and
//     its executor workers.
//
// Neither structure knows anything about commands or requests, both are plain
// containers.
package util
