package client

import (
	"context"
	"time"

	"github.com/ValentinKolb/kvbridge/lib/value"
	"github.com/ValentinKolb/kvbridge/rpc/command"
	"github.com/ValentinKolb/kvbridge/rpc/common"
	"github.com/ValentinKolb/kvbridge/rpc/decoder"
)

// Special results of TTL
const (
	TTLNoExpiry time.Duration = -1 // the key exists but has no expiry
	TTLMissing  time.Duration = -2 // the key does not exist
)

// run builds a catalog command and invokes it
func run[T any](ctx context.Context, c *Client, dec decoder.Decoder[T], name string, args ...value.Value) (T, error) {
	desc, err := command.Build(name, args...)
	if err != nil {
		var zero T
		return zero, err
	}
	return invoke(ctx, c, desc, dec)
}

// written decodes the reply of a conditional write: OK or null
func written(resp common.Response) (bool, error) {
	ok, err := decoder.Optional(decoder.OK)(resp)
	if err != nil {
		return false, err
	}
	return ok.IsPresent(), nil
}

// --------------------------------------------------------------------------
// Strings
// --------------------------------------------------------------------------

// Get returns the value of key, absent if the key does not exist
func (c *Client) Get(ctx context.Context, key value.Value) (value.Optional[value.Value], error) {
	return run(ctx, c, decoder.OptionalValue, command.CmdGet, key)
}

// Set sets key to val and clears any expiry. It returns the status "OK".
func (c *Client) Set(ctx context.Context, key, val value.Value) (string, error) {
	return run(ctx, c, decoder.OK, command.CmdSet, key, val)
}

// SetIf sets key to val with the given options and reports whether the value was
// written. The ReturnOld option is not allowed, use SetGet instead.
func (c *Client) SetIf(ctx context.Context, key, val value.Value, args command.SetArgs) (bool, error) {
	if args.ReturnOld {
		return false, common.NewArgumentError("SetIf does not support ReturnOld, use SetGet")
	}
	desc, err := command.BuildSet(key, val, args)
	if err != nil {
		return false, err
	}
	return invoke(ctx, c, desc, written)
}

// SetGet sets key to val with the given options and returns the previous value
func (c *Client) SetGet(ctx context.Context, key, val value.Value, args command.SetArgs) (value.Optional[value.Value], error) {
	args.ReturnOld = true
	desc, err := command.BuildSet(key, val, args)
	if err != nil {
		return value.None[value.Value](), err
	}
	return invoke(ctx, c, desc, decoder.OptionalValue)
}

// Append appends val to the string at key and returns the new length
func (c *Client) Append(ctx context.Context, key, val value.Value) (int64, error) {
	return run(ctx, c, decoder.Int, command.CmdAppend, key, val)
}

// StrLen returns the length of the string at key, 0 if it does not exist
func (c *Client) StrLen(ctx context.Context, key value.Value) (int64, error) {
	return run(ctx, c, decoder.Int, command.CmdStrLen, key)
}

// GetDel returns the value of key and deletes it
func (c *Client) GetDel(ctx context.Context, key value.Value) (value.Optional[value.Value], error) {
	return run(ctx, c, decoder.OptionalValue, command.CmdGetDel, key)
}

// MGet returns the values of all keys, in order. Missing keys are absent.
func (c *Client) MGet(ctx context.Context, keys ...value.Value) ([]value.Optional[value.Value], error) {
	return run(ctx, c, decoder.ArrayOf(decoder.OptionalValue), command.CmdMGet, keys...)
}

// MSet sets all pairs in one command
func (c *Client) MSet(ctx context.Context, pairs ...command.KV) (string, error) {
	return run(ctx, c, decoder.OK, command.CmdMSet, command.FlattenPairs(nil, pairs)...)
}

// --------------------------------------------------------------------------
// Counters
// --------------------------------------------------------------------------

// Incr increments the integer at key by one
func (c *Client) Incr(ctx context.Context, key value.Value) (int64, error) {
	return run(ctx, c, decoder.Int, command.CmdIncr, key)
}

// IncrBy increments the integer at key by delta
func (c *Client) IncrBy(ctx context.Context, key value.Value, delta int64) (int64, error) {
	return run(ctx, c, decoder.Int, command.CmdIncrBy, key, value.Int(delta))
}

// Decr decrements the integer at key by one
func (c *Client) Decr(ctx context.Context, key value.Value) (int64, error) {
	return run(ctx, c, decoder.Int, command.CmdDecr, key)
}

// DecrBy decrements the integer at key by delta
func (c *Client) DecrBy(ctx context.Context, key value.Value, delta int64) (int64, error) {
	return run(ctx, c, decoder.Int, command.CmdDecrBy, key, value.Int(delta))
}

// --------------------------------------------------------------------------
// Keys
// --------------------------------------------------------------------------

// Del deletes the keys and returns the number of deleted keys
func (c *Client) Del(ctx context.Context, keys ...value.Value) (int64, error) {
	return run(ctx, c, decoder.Int, command.CmdDel, keys...)
}

// Exists returns how many of the keys exist. A key given twice counts twice.
func (c *Client) Exists(ctx context.Context, keys ...value.Value) (int64, error) {
	return run(ctx, c, decoder.Int, command.CmdExists, keys...)
}

// Expire sets a ttl with second resolution and reports whether the key exists
func (c *Client) Expire(ctx context.Context, key value.Value, ttl time.Duration) (bool, error) {
	return run(ctx, c, decoder.Bool, command.CmdExpire, key, value.Int(int64(ttl/time.Second)))
}

// PExpire sets a ttl with millisecond resolution and reports whether the key exists
func (c *Client) PExpire(ctx context.Context, key value.Value, ttl time.Duration) (bool, error) {
	return run(ctx, c, decoder.Bool, command.CmdPExpire, key, value.Int(ttl.Milliseconds()))
}

// TTL returns the remaining ttl with second resolution, TTLNoExpiry or TTLMissing
func (c *Client) TTL(ctx context.Context, key value.Value) (time.Duration, error) {
	secs, err := run(ctx, c, decoder.Int, command.CmdTTL, key)
	return ttlDuration(secs, time.Second), err
}

// PTTL returns the remaining ttl with millisecond resolution, TTLNoExpiry or TTLMissing
func (c *Client) PTTL(ctx context.Context, key value.Value) (time.Duration, error) {
	ms, err := run(ctx, c, decoder.Int, command.CmdPTTL, key)
	return ttlDuration(ms, time.Millisecond), err
}

func ttlDuration(n int64, unit time.Duration) time.Duration {
	if n < 0 {
		return time.Duration(n)
	}
	return time.Duration(n) * unit
}

// Persist removes the ttl of key and reports whether there was one
func (c *Client) Persist(ctx context.Context, key value.Value) (bool, error) {
	return run(ctx, c, decoder.Bool, command.CmdPersist, key)
}

// Type returns the kind of value stored at key ("none" if it does not exist)
func (c *Client) Type(ctx context.Context, key value.Value) (string, error) {
	return run(ctx, c, decoder.Status, command.CmdType, key)
}

// --------------------------------------------------------------------------
// Lists
// --------------------------------------------------------------------------

// RPush appends the values to the list at key and returns its new length
func (c *Client) RPush(ctx context.Context, key value.Value, vals ...value.Value) (int64, error) {
	return run(ctx, c, decoder.Int, command.CmdRPush, append([]value.Value{key}, vals...)...)
}

// LPush prepends the values to the list at key and returns its new length
func (c *Client) LPush(ctx context.Context, key value.Value, vals ...value.Value) (int64, error) {
	return run(ctx, c, decoder.Int, command.CmdLPush, append([]value.Value{key}, vals...)...)
}

// LRange returns the elements between start and stop (inclusive, negative from the end)
func (c *Client) LRange(ctx context.Context, key value.Value, start, stop int64) ([]value.Value, error) {
	return run(ctx, c, decoder.ArrayOf(decoder.Value), command.CmdLRange, key, value.Int(start), value.Int(stop))
}

// LLen returns the length of the list at key
func (c *Client) LLen(ctx context.Context, key value.Value) (int64, error) {
	return run(ctx, c, decoder.Int, command.CmdLLen, key)
}

// --------------------------------------------------------------------------
// Hashes
// --------------------------------------------------------------------------

// HSet sets the fields of the hash at key and returns the number of new fields
func (c *Client) HSet(ctx context.Context, key value.Value, fields ...command.KV) (int64, error) {
	return run(ctx, c, decoder.Int, command.CmdHSet, command.FlattenPairs([]value.Value{key}, fields)...)
}

// HGet returns the value of a hash field
func (c *Client) HGet(ctx context.Context, key, field value.Value) (value.Optional[value.Value], error) {
	return run(ctx, c, decoder.OptionalValue, command.CmdHGet, key, field)
}

// HGetAll returns all fields of the hash at key in insertion order
func (c *Client) HGetAll(ctx context.Context, key value.Value) ([]decoder.Entry[value.Value, value.Value], error) {
	return run(ctx, c, decoder.MapOf(decoder.Value, decoder.Value), command.CmdHGetAll, key)
}

// --------------------------------------------------------------------------
// Server
// --------------------------------------------------------------------------

// Ping returns "PONG"
func (c *Client) Ping(ctx context.Context) (string, error) {
	return run(ctx, c, decoder.Status, command.CmdPing)
}

// Echo returns msg
func (c *Client) Echo(ctx context.Context, msg value.Value) (value.Value, error) {
	return run(ctx, c, decoder.Value, command.CmdEcho, msg)
}

// DBSize returns the number of keys
func (c *Client) DBSize(ctx context.Context) (int64, error) {
	return run(ctx, c, decoder.Int, command.CmdDBSize)
}

// FlushAll removes all keys
func (c *Client) FlushAll(ctx context.Context) (string, error) {
	return run(ctx, c, decoder.OK, command.CmdFlushAll)
}

// CustomCommand sends an arbitrary command and returns the raw response.
// Error replies are returned as ServerErrors.
func (c *Client) CustomCommand(ctx context.Context, args ...value.Value) (common.Response, error) {
	desc, err := command.Custom(args...)
	if err != nil {
		return common.Response{}, err
	}
	return invoke(ctx, c, desc, decoder.Any)
}
