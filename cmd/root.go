package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/kvbridge/cmd/kv"
	"github.com/ValentinKolb/kvbridge/cmd/serve"
	"github.com/ValentinKolb/kvbridge/cmd/util"
	"github.com/ValentinKolb/kvbridge/rpc/common"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "kvb",
		Short: "key-value store client bridge",
		Long: fmt.Sprintf(`kvb (v%s)

A client bridge for key-value stores written in Go. Commands are dispatched
asynchronously over tcp, unix sockets or websockets and their responses are
correlated by request id.`, Version),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := util.BindCommandFlags(cmd); err != nil {
				return err
			}
			return common.InitLoggers(util.GetLogConfig())
		},
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of kvb",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("kvb v%s\n", Version)
		},
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(util.InitConfig)

	// run the logger setup of the root before the client setup of kv
	cobra.EnableTraverseRunHooks = true

	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "binary", util.WrapString("serializer to use (binary, json, gob, cbor)"))
	key = "transport"
	RootCmd.PersistentFlags().String(key, "tcp", util.WrapString("transport to use (tcp, unix, ws)"))

	util.SetupLogFlags(RootCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
