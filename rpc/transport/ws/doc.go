// Package ws implements the framed byte transport over websockets
// (github.com/gorilla/websocket) for clients that can only reach the execution
// core through http infrastructure such as reverse proxies.
//
// The websocket connection is exposed as a net.Conn stream, so the framing,
// pooling and reconnect logic of the base package are reused unchanged. Every
// frame write is sent as a binary websocket message.
//
// The server serves the upgrade on DefaultPath. Client endpoints may be given as
// "host:port" or as a full ws://, wss://, http:// or https:// url.
package ws
