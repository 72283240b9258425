package kv

import (
	"fmt"
	"strconv"
	"time"

	"github.com/ValentinKolb/kvbridge/lib/value"
	"github.com/ValentinKolb/kvbridge/rpc/client"
	"github.com/ValentinKolb/kvbridge/rpc/command"
	"github.com/spf13/cobra"
)

var (
	setCmd = &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Sets the value for a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := command.SetArgs{}
			nx, _ := cmd.Flags().GetBool("nx")
			xx, _ := cmd.Flags().GetBool("xx")
			switch {
			case nx && xx:
				return fmt.Errorf("--nx and --xx are mutually exclusive")
			case nx:
				opts.Condition = command.SetIfNotExists
			case xx:
				opts.Condition = command.SetIfExists
			}
			if ttl, _ := cmd.Flags().GetDuration("ttl"); ttl > 0 {
				opts.Expiry = command.ExpireIn(ttl)
			}

			written, err := kvClient.SetIf(cmd.Context(), value.FromString(args[0]), value.FromString(args[1]), opts)
			if err != nil {
				return err
			}
			if written {
				fmt.Println("OK")
			} else {
				fmt.Println("(nil)")
			}
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := kvClient.Get(cmd.Context(), value.FromString(args[0]))
			if err != nil {
				return err
			}
			printOptional(v)
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [key...]",
		Short: "Deletes keys",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := kvClient.Del(cmd.Context(), value.FromStrings(args...)...)
			if err != nil {
				return err
			}
			fmt.Printf("(integer) %d\n", n)
			return nil
		},
	}
	existsCmd = &cobra.Command{
		Use:   "exists [key...]",
		Short: "Counts how many of the keys exist",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := kvClient.Exists(cmd.Context(), value.FromStrings(args...)...)
			if err != nil {
				return err
			}
			fmt.Printf("(integer) %d\n", n)
			return nil
		},
	}
	incrCmd = &cobra.Command{
		Use:   "incr [key]",
		Short: "Increments the integer value of a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			by, _ := cmd.Flags().GetInt64("by")
			n, err := kvClient.IncrBy(cmd.Context(), value.FromString(args[0]), by)
			if err != nil {
				return err
			}
			fmt.Printf("(integer) %d\n", n)
			return nil
		},
	}
	appendCmd = &cobra.Command{
		Use:   "append [key] [value]",
		Short: "Appends a value to the string of a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := kvClient.Append(cmd.Context(), value.FromString(args[0]), value.FromString(args[1]))
			if err != nil {
				return err
			}
			fmt.Printf("(integer) %d\n", n)
			return nil
		},
	}
	strlenCmd = &cobra.Command{
		Use:   "strlen [key]",
		Short: "Returns the length of the string of a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := kvClient.StrLen(cmd.Context(), value.FromString(args[0]))
			if err != nil {
				return err
			}
			fmt.Printf("(integer) %d\n", n)
			return nil
		},
	}
	mgetCmd = &cobra.Command{
		Use:   "mget [key...]",
		Short: "Reads the values of multiple keys",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vals, err := kvClient.MGet(cmd.Context(), value.FromStrings(args...)...)
			if err != nil {
				return err
			}
			for i, v := range vals {
				fmt.Printf("%d) ", i+1)
				printOptional(v)
			}
			return nil
		},
	}
	msetCmd = &cobra.Command{
		Use:   "mset [key] [value] [key value...]",
		Short: "Sets multiple keys",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 || len(args)%2 != 0 {
				return fmt.Errorf("expected key value pairs, got %d arguments", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			pairs := make([]command.KV, 0, len(args)/2)
			for i := 0; i < len(args); i += 2 {
				pairs = append(pairs, command.KV{Key: value.FromString(args[i]), Value: value.FromString(args[i+1])})
			}
			status, err := kvClient.MSet(cmd.Context(), pairs...)
			if err != nil {
				return err
			}
			fmt.Println(status)
			return nil
		},
	}
	expireCmd = &cobra.Command{
		Use:   "expire [key] [ttl]",
		Short: "Sets the time to live of a key (e.g. 10s, 1500ms)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ttl, err := parseTTL(args[1])
			if err != nil {
				return err
			}
			ok, err := kvClient.PExpire(cmd.Context(), value.FromString(args[0]), ttl)
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, found=%t\n", args[0], ok)
			return nil
		},
	}
	ttlCmd = &cobra.Command{
		Use:   "ttl [key]",
		Short: "Returns the remaining time to live of a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ttl, err := kvClient.PTTL(cmd.Context(), value.FromString(args[0]))
			if err != nil {
				return err
			}
			switch ttl {
			case client.TTLMissing:
				fmt.Printf("key=%s, found=false\n", args[0])
			case client.TTLNoExpiry:
				fmt.Printf("key=%s, found=true, ttl=none\n", args[0])
			default:
				fmt.Printf("key=%s, found=true, ttl=%s\n", args[0], ttl)
			}
			return nil
		},
	}
	typeCmd = &cobra.Command{
		Use:   "type [key]",
		Short: "Returns the kind of value stored at a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := kvClient.Type(cmd.Context(), value.FromString(args[0]))
			if err != nil {
				return err
			}
			fmt.Println(t)
			return nil
		},
	}
	pingCmd = &cobra.Command{
		Use:   "ping",
		Short: "Checks that the server is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			pong, err := kvClient.Ping(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("%s (%s)\n", pong, time.Since(start))
			return nil
		},
	}
	rawCmd = &cobra.Command{
		Use:   "raw [command] [args...]",
		Short: "Sends an arbitrary command and prints the raw response",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := kvClient.CustomCommand(cmd.Context(), value.FromStrings(args...)...)
			if err != nil {
				return err
			}
			fmt.Println(resp.String())
			return nil
		},
	}
)

func init() {
	setCmd.Flags().Bool("nx", false, "Only set the key if it does not exist")
	setCmd.Flags().Bool("xx", false, "Only set the key if it already exists")
	setCmd.Flags().Duration("ttl", 0, "Time to live of the key (e.g. 10s)")

	incrCmd.Flags().Int64("by", 1, "The increment")
}

func printOptional(v value.Optional[value.Value]) {
	if s, ok := v.Get(); ok {
		fmt.Printf("%q\n", s.String())
	} else {
		fmt.Println("(nil)")
	}
}

// parseTTL accepts a go duration or a plain number of seconds
func parseTTL(s string) (time.Duration, error) {
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("ttl must be a duration or a number of seconds: %w", err)
	}
	return d, nil
}
