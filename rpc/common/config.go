package common

import (
	"fmt"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// Shared transport configuration
// --------------------------------------------------------------------------

// SocketConf holds the kernel buffer sizes applied to every socket connection.
// A value <= 0 keeps the operating system default.
type SocketConf struct {
	WriteBufferSize int
	ReadBufferSize  int
}

// TCPConf holds the options only applied to tcp connections
type TCPConf struct {
	TCPNoDelay      bool
	TCPKeepAliveSec int // <= 0 disables keep alive
	TCPLingerSec    int // < 0 keeps the os default
}

// TransportConf configures the channel between client and execution core.
// The client uses Endpoints, the server Endpoint.
type TransportConf struct {
	Endpoint               string
	Endpoints              []string
	ConnectionsPerEndpoint int
	WorkersPerConn         int
	// Serializer used for the wire encoding ("binary", "json", "gob" or "cbor")
	Serializer string
	SocketConf
	TCPConf
}

// Connections returns the number of connections that are opened per endpoint (at least one)
func (t *TransportConf) Connections() int {
	return max(1, t.ConnectionsPerEndpoint)
}

// Workers returns the number of workers processing requests of a single connection (at least one)
func (t *TransportConf) Workers() int {
	return max(1, t.WorkersPerConn)
}

// --------------------------------------------------------------------------
// Logging configuration
// --------------------------------------------------------------------------

// LogRotation configures size based rotation of file outputs
type LogRotation struct {
	Enable     bool
	Filename   string // overrides the output path when set
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// LogConfig configures all loggers of the process
type LogConfig struct {
	Level    string   // debug, info, warn or error
	Format   string   // console or json
	Outputs  []string // stdout, stderr or file paths
	Rotation LogRotation
}

// --------------------------------------------------------------------------
// Server configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds all configuration parameters of the execution core server
type ServerConfig struct {
	Transport TransportConf

	// TimeoutSecond bounds writing a single response, 0 disables the limit
	TimeoutSecond int64

	// MetricsEndpoint is the address of the prometheus endpoint, empty disables it
	MetricsEndpoint string

	Log LogConfig
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder
	addSection, addField := tableWriter(&sb)

	addSection("Server")
	addField("Endpoint", c.Transport.Endpoint)
	addField("Serializer", c.Transport.Serializer)
	addField("Workers Per Connection", strconv.Itoa(c.Transport.Workers()))
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	if c.MetricsEndpoint != "" {
		addField("Metrics Endpoint", c.MetricsEndpoint)
	}

	addSocketSection(addSection, addField, &c.Transport)
	addLogSection(addSection, addField, &c.Log)

	return sb.String()
}

// --------------------------------------------------------------------------
// Client configuration struct
// --------------------------------------------------------------------------

// ClientConfig configures the dispatcher and the command facades
type ClientConfig struct {
	Transport TransportConf

	// TimeoutMillisecond is the default deadline of a command, 0 means no deadline
	TimeoutMillisecond int64

	// RetryCount is the number of additional attempts for commands that were
	// rejected before the channel accepted them
	RetryCount int
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder
	addSection, addField := tableWriter(&sb)

	addSection("Client Configuration")
	if c.TimeoutMillisecond > 0 {
		addField("Timeout", fmt.Sprintf("%d ms", c.TimeoutMillisecond))
	} else {
		addField("Timeout", "none")
	}
	addField("Retry Count", strconv.Itoa(c.RetryCount))
	addField("Connections Per Endpoint", strconv.Itoa(c.Transport.Connections()))
	addField("Serializer", c.Transport.Serializer)

	addSection("Endpoints")
	for i, endpoint := range c.Transport.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	addSocketSection(addSection, addField, &c.Transport)

	return sb.String()
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func tableWriter(sb *strings.Builder) (addSection func(string), addField func(string, string)) {
	addSection = func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}
	addField = func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-24s: %s\n", name, value))
	}
	return addSection, addField
}

func addSocketSection(addSection func(string), addField func(string, string), t *TransportConf) {
	addSection("Socket")
	addField("Write Buffer Size", bufferSize(t.WriteBufferSize))
	addField("Read Buffer Size", bufferSize(t.ReadBufferSize))
	addField("TCP No Delay", strconv.FormatBool(t.TCPNoDelay))
	if t.TCPKeepAliveSec > 0 {
		addField("TCP Keep Alive", fmt.Sprintf("%d sec", t.TCPKeepAliveSec))
	}
	if t.TCPLingerSec >= 0 {
		addField("TCP Linger", fmt.Sprintf("%d sec", t.TCPLingerSec))
	}
}

func addLogSection(addSection func(string), addField func(string, string), l *LogConfig) {
	addSection("Logging")
	addField("Log Level", l.Level)
	addField("Format", l.Format)
	addField("Outputs", strings.Join(l.Outputs, ", "))
	if l.Rotation.Enable {
		addField("Rotation", fmt.Sprintf("%d MB, %d backups, %d days", l.Rotation.MaxSizeMB, l.Rotation.MaxBackups, l.Rotation.MaxAgeDays))
	}
}

func bufferSize(size int) string {
	if size <= 0 {
		return "os default"
	}
	return strconv.Itoa(size) + " bytes"
}
