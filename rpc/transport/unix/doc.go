// Package unix implements the framed byte transport over Unix domain sockets for
// a client and an execution core on the same machine. Everything except dialing and
// listening is inherited from the base package.
//
// Unix sockets skip the TCP/IP stack, which lowers latency compared to the tcp
// transport on loopback.
package unix
