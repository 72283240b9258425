package util

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/kvbridge/rpc/common"
	"github.com/ValentinKolb/kvbridge/rpc/serializer"
	"github.com/ValentinKolb/kvbridge/rpc/transport"
	"github.com/ValentinKolb/kvbridge/rpc/transport/tcp"
	"github.com/ValentinKolb/kvbridge/rpc/transport/unix"
	"github.com/ValentinKolb/kvbridge/rpc/transport/ws"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50

	// EnvPrefix is the prefix of all environment variables read by kvb
	EnvPrefix = "kvb"
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// InitConfig loads the env files and makes viper read KVB_* environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// --------------------------------------------------------------------------
// Client configuration
// --------------------------------------------------------------------------

// SetupRPCClientFlags adds common RPC connection flags to a command
func SetupRPCClientFlags(cmd *cobra.Command) {
	key := "timeout"
	cmd.PersistentFlags().Int64(key, 5000, WrapString("The default deadline of a command in milliseconds (0 = none)"))

	key = "transport-endpoints"
	cmd.PersistentFlags().String(key, "localhost:8080", WrapString("The address of the kvb server. Multiple endpoints can be specified as a comma-separated list, requests are spread round robin"))

	key = "transport-conn-per-endpoint"
	cmd.PersistentFlags().Int(key, 1, WrapString("Simultaneous connections per endpoint"))

	key = "transport-retries"
	cmd.PersistentFlags().Int(key, 3, WrapString("How many times to retry a command the transport did not accept"))

	key = "transport-write-buffer"
	cmd.PersistentFlags().Int(key, 512, WrapString("The size of the write buffer for the transport (in KB)"))

	key = "transport-read-buffer"
	cmd.PersistentFlags().Int(key, 512, WrapString("The size of the read buffer for the transport (in KB)"))

	key = "transport-tcp-nodelay"
	cmd.PersistentFlags().Bool(key, true, WrapString("Whether to enable TCP_NODELAY (tcp only)"))

	key = "transport-tcp-keepalive"
	cmd.PersistentFlags().Int(key, 0, WrapString("The keepalive interval (in seconds, tcp only)"))

	key = "transport-tcp-linger"
	cmd.PersistentFlags().Int(key, -1, WrapString("The linger time (in seconds, tcp only, -1 keeps the os default)"))
}

// GetClientConfig reads client configuration from viper
func GetClientConfig() common.ClientConfig {
	return common.ClientConfig{
		TimeoutMillisecond: viper.GetInt64("timeout"),
		RetryCount:         viper.GetInt("transport-retries"),
		Transport: common.TransportConf{
			Endpoints:              splitList(viper.GetString("transport-endpoints")),
			ConnectionsPerEndpoint: viper.GetInt("transport-conn-per-endpoint"),
			Serializer:             viper.GetString("serializer"),
			SocketConf: common.SocketConf{
				WriteBufferSize: viper.GetInt("transport-write-buffer") * 1024,
				ReadBufferSize:  viper.GetInt("transport-read-buffer") * 1024,
			},
			TCPConf: common.TCPConf{
				TCPKeepAliveSec: viper.GetInt("transport-tcp-keepalive"),
				TCPLingerSec:    viper.GetInt("transport-tcp-linger"),
				TCPNoDelay:      viper.GetBool("transport-tcp-nodelay"),
			},
		},
	}
}

// GetLogConfig reads the logging flags from viper
func GetLogConfig() common.LogConfig {
	return common.LogConfig{
		Level:   viper.GetString("log-level"),
		Format:  viper.GetString("log-format"),
		Outputs: splitList(viper.GetString("log-output")),
		Rotation: common.LogRotation{
			Enable:     viper.GetBool("log-rotate"),
			MaxSizeMB:  viper.GetInt("log-max-size"),
			MaxBackups: viper.GetInt("log-max-backups"),
			MaxAgeDays: viper.GetInt("log-max-age"),
			Compress:   viper.GetBool("log-compress"),
		},
	}
}

// SetupLogFlags adds the logging flags to a command
func SetupLogFlags(cmd *cobra.Command) {
	key := "log-level"
	cmd.PersistentFlags().String(key, "warn", WrapString("The level at which logs will be output (debug, info, warn, error)"))

	key = "log-format"
	cmd.PersistentFlags().String(key, "console", WrapString("The log format (console, json)"))

	key = "log-output"
	cmd.PersistentFlags().String(key, "stderr", WrapString("Comma-separated list of log outputs (stdout, stderr or file paths)"))

	key = "log-rotate"
	cmd.PersistentFlags().Bool(key, false, WrapString("Rotate file outputs by size"))

	key = "log-max-size"
	cmd.PersistentFlags().Int(key, 100, WrapString("Maximum size of a log file in MB before it is rotated"))

	key = "log-max-backups"
	cmd.PersistentFlags().Int(key, 3, WrapString("Maximum number of rotated log files to keep"))

	key = "log-max-age"
	cmd.PersistentFlags().Int(key, 28, WrapString("Maximum number of days to keep rotated log files"))

	key = "log-compress"
	cmd.PersistentFlags().Bool(key, false, WrapString("Compress rotated log files"))
}

// --------------------------------------------------------------------------
// Transport and serializer selection
// --------------------------------------------------------------------------

// GetSerializer creates the serializer named by the serializer flag
func GetSerializer() (serializer.IRPCSerializer, error) {
	return serializer.New(viper.GetString("serializer"))
}

// GetTransportName returns the transport flag
func GetTransportName() string {
	return strings.ToLower(viper.GetString("transport"))
}

// GetServerTransport creates the server side of the transport named by the transport flag
func GetServerTransport() (transport.IRPCServerTransport, error) {
	switch GetTransportName() {
	case "tcp":
		return tcp.NewTCPServerTransport(), nil
	case "unix":
		return unix.NewUnixServerTransport(), nil
	case "ws":
		return ws.NewWSServerTransport(), nil
	default:
		return nil, fmt.Errorf("invalid transport %s (expected one of: tcp, unix, ws)", viper.GetString("transport"))
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
