package server

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ValentinKolb/kvbridge/lib/store"
	"github.com/ValentinKolb/kvbridge/lib/value"
	"github.com/ValentinKolb/kvbridge/rpc/command"
	"github.com/ValentinKolb/kvbridge/rpc/common"
)

// Error replies of the execution core
var (
	errSyntax       = common.NewErrorResponse("ERR", "syntax error")
	errNotInteger   = common.NewErrorResponse("ERR", "value is not an integer or out of range")
	errOverflow     = common.NewErrorResponse("ERR", "increment or decrement would overflow")
	errInvalidTTL   = common.NewErrorResponse("ERR", "invalid expire time in 'set' command")
	errWrongType    = common.NewErrorResponse("WRONGTYPE", store.ErrWrongType.Msg)
	errEmptyCommand = common.NewErrorResponse("ERR", "empty command")
)

// handlerFunc executes the arguments of one command (the name is stripped)
type handlerFunc func(a *CommandAdapter, args []value.Value) common.Response

var _ IRPCServerAdapter = (*CommandAdapter)(nil)

// CommandAdapter executes the command catalog against a store.IStore
type CommandAdapter struct {
	store    store.IStore
	handlers map[string]handlerFunc
}

// NewCommandAdapter creates an adapter executing commands on s
func NewCommandAdapter(s store.IStore) *CommandAdapter {
	return &CommandAdapter{
		store: s,
		handlers: map[string]handlerFunc{
			command.CmdGet:    (*CommandAdapter).get,
			command.CmdSet:    (*CommandAdapter).set,
			command.CmdDel:    (*CommandAdapter).del,
			command.CmdExists: (*CommandAdapter).exists,
			command.CmdIncr:   func(a *CommandAdapter, args []value.Value) common.Response { return a.incrBy(args[0], 1) },
			command.CmdDecr:   func(a *CommandAdapter, args []value.Value) common.Response { return a.incrBy(args[0], -1) },
			command.CmdIncrBy: (*CommandAdapter).incrByArg,
			command.CmdDecrBy: (*CommandAdapter).decrByArg,
			command.CmdAppend: (*CommandAdapter).appendValue,
			command.CmdStrLen: (*CommandAdapter).strLen,
			command.CmdGetDel: (*CommandAdapter).getDel,
			command.CmdMGet:   (*CommandAdapter).mget,
			command.CmdMSet:   (*CommandAdapter).mset,
			command.CmdExpire: func(a *CommandAdapter, args []value.Value) common.Response {
				return a.expire("expire", args, time.Second)
			},
			command.CmdPExpire: func(a *CommandAdapter, args []value.Value) common.Response {
				return a.expire("pexpire", args, time.Millisecond)
			},
			command.CmdTTL:      func(a *CommandAdapter, args []value.Value) common.Response { return a.ttl(args[0], time.Second) },
			command.CmdPTTL:     func(a *CommandAdapter, args []value.Value) common.Response { return a.ttl(args[0], time.Millisecond) },
			command.CmdPersist:  (*CommandAdapter).persist,
			command.CmdType:     (*CommandAdapter).typeOf,
			command.CmdPing:     (*CommandAdapter).ping,
			command.CmdEcho:     (*CommandAdapter).echo,
			command.CmdRPush:    func(a *CommandAdapter, args []value.Value) common.Response { return a.push(args, false) },
			command.CmdLPush:    func(a *CommandAdapter, args []value.Value) common.Response { return a.push(args, true) },
			command.CmdLRange:   (*CommandAdapter).lrange,
			command.CmdLLen:     (*CommandAdapter).llen,
			command.CmdHSet:     (*CommandAdapter).hset,
			command.CmdHGet:     (*CommandAdapter).hget,
			command.CmdHGetAll:  (*CommandAdapter).hgetall,
			command.CmdDBSize:   (*CommandAdapter).dbSize,
			command.CmdFlushAll: (*CommandAdapter).flushAll,
		},
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see server.IRPCServerAdapter)
// --------------------------------------------------------------------------

func (a *CommandAdapter) Execute(desc command.Descriptor) common.Response {
	if len(desc) == 0 {
		return errEmptyCommand
	}

	name := desc.Name()
	spec, ok := command.Lookup(name)
	handler, found := a.handlers[spec.Name]
	if !ok || !found {
		return common.NewErrorResponse("ERR", "unknown command '"+desc[0].String()+"'")
	}
	if !spec.CheckArity(len(desc)) {
		return common.NewErrorResponse("ERR", "wrong number of arguments for '"+strings.ToLower(name)+"' command")
	}
	return handler(a, desc.Args())
}

// --------------------------------------------------------------------------
// String Commands
// --------------------------------------------------------------------------

func (a *CommandAdapter) get(args []value.Value) common.Response {
	e, ok := a.store.Get(args[0].Raw())
	if !ok {
		return common.NewNullResponse()
	}
	if e.Type != store.TypeString {
		return errWrongType
	}
	return common.NewBulkResponse([]byte(e.Str))
}

// setOptions are the parsed options of SET
type setOptions struct {
	nx, xx, get, keepTTL bool
	expiresAt            int64
}

func (a *CommandAdapter) parseSetOptions(args []value.Value) (setOptions, *common.Response) {
	var opts setOptions
	hasExpiry := false

	for i := 0; i < len(args); i++ {
		switch strings.ToUpper(args[i].Raw()) {
		case "NX":
			opts.nx = true
		case "XX":
			opts.xx = true
		case "GET":
			opts.get = true
		case "KEEPTTL":
			if hasExpiry {
				return opts, &errSyntax
			}
			opts.keepTTL, hasExpiry = true, true
		case "EX", "PX":
			if hasExpiry || i+1 >= len(args) {
				return opts, &errSyntax
			}
			unit := time.Second
			if strings.EqualFold(args[i].Raw(), "PX") {
				unit = time.Millisecond
			}
			n, err := strconv.ParseInt(args[i+1].Raw(), 10, 64)
			if err != nil {
				return opts, &errNotInteger
			}
			if n <= 0 || n > math.MaxInt64/int64(unit) {
				return opts, &errInvalidTTL
			}
			opts.expiresAt = a.store.Now().Add(time.Duration(n) * unit).UnixNano()
			hasExpiry = true
			i++
		default:
			return opts, &errSyntax
		}
	}
	if opts.nx && opts.xx {
		return opts, &errSyntax
	}
	return opts, nil
}

func (a *CommandAdapter) set(args []value.Value) common.Response {
	opts, errResp := a.parseSetOptions(args[2:])
	if errResp != nil {
		return *errResp
	}

	var old store.Entry
	var oldExists, written bool
	_, err := a.store.Update(args[0].Raw(), func(e store.Entry, exists bool) (store.Entry, store.Action, error) {
		old, oldExists = e, exists
		if opts.get && exists && e.Type != store.TypeString {
			return e, store.ActionKeep, store.ErrWrongType
		}
		if (opts.nx && exists) || (opts.xx && !exists) {
			return e, store.ActionKeep, nil
		}

		next := store.Entry{Type: store.TypeString, Str: args[1].Raw(), ExpiresAt: opts.expiresAt}
		if opts.keepTTL && exists {
			next.ExpiresAt = e.ExpiresAt
		}
		written = true
		return next, store.ActionWrite, nil
	})
	if err != nil {
		return storeError(err)
	}

	if opts.get {
		if !oldExists {
			return common.NewNullResponse()
		}
		return common.NewBulkResponse([]byte(old.Str))
	}
	if !written {
		return common.NewNullResponse()
	}
	return common.NewOKResponse()
}

func (a *CommandAdapter) del(args []value.Value) common.Response {
	var n int64
	for _, key := range args {
		if a.store.Delete(key.Raw()) {
			n++
		}
	}
	return common.NewIntResponse(n)
}

func (a *CommandAdapter) exists(args []value.Value) common.Response {
	var n int64
	for _, key := range args {
		if _, ok := a.store.Get(key.Raw()); ok {
			n++
		}
	}
	return common.NewIntResponse(n)
}

func (a *CommandAdapter) incrByArg(args []value.Value) common.Response {
	delta, err := strconv.ParseInt(args[1].Raw(), 10, 64)
	if err != nil {
		return errNotInteger
	}
	return a.incrBy(args[0], delta)
}

func (a *CommandAdapter) decrByArg(args []value.Value) common.Response {
	delta, err := strconv.ParseInt(args[1].Raw(), 10, 64)
	if err != nil || delta == math.MinInt64 {
		return errNotInteger
	}
	return a.incrBy(args[0], -delta)
}

// incrBy adds delta to the integer stored at key, the expiry is kept
func (a *CommandAdapter) incrBy(key value.Value, delta int64) common.Response {
	var result int64
	_, err := a.store.Update(key.Raw(), func(e store.Entry, exists bool) (store.Entry, store.Action, error) {
		var current int64
		if exists {
			if e.Type != store.TypeString {
				return e, store.ActionKeep, store.ErrWrongType
			}
			n, err := strconv.ParseInt(e.Str, 10, 64)
			if err != nil {
				return e, store.ActionKeep, store.NewError(store.RetCNotInteger, "not an integer")
			}
			current = n
		}
		if (delta > 0 && current > math.MaxInt64-delta) || (delta < 0 && current < math.MinInt64-delta) {
			return e, store.ActionKeep, store.NewError(store.RetCOverflow, "overflow")
		}
		result = current + delta
		e.Type = store.TypeString
		e.Str = strconv.FormatInt(result, 10)
		return e, store.ActionWrite, nil
	})
	if err != nil {
		return storeError(err)
	}
	return common.NewIntResponse(result)
}

func (a *CommandAdapter) appendValue(args []value.Value) common.Response {
	var length int
	_, err := a.store.Update(args[0].Raw(), func(e store.Entry, exists bool) (store.Entry, store.Action, error) {
		if exists && e.Type != store.TypeString {
			return e, store.ActionKeep, store.ErrWrongType
		}
		e.Type = store.TypeString
		e.Str += args[1].Raw()
		length = len(e.Str)
		return e, store.ActionWrite, nil
	})
	if err != nil {
		return storeError(err)
	}
	return common.NewIntResponse(int64(length))
}

func (a *CommandAdapter) strLen(args []value.Value) common.Response {
	e, ok := a.store.Get(args[0].Raw())
	if !ok {
		return common.NewIntResponse(0)
	}
	if e.Type != store.TypeString {
		return errWrongType
	}
	return common.NewIntResponse(int64(len(e.Str)))
}

func (a *CommandAdapter) getDel(args []value.Value) common.Response {
	var old store.Entry
	var found bool
	_, err := a.store.Update(args[0].Raw(), func(e store.Entry, exists bool) (store.Entry, store.Action, error) {
		if !exists {
			return e, store.ActionKeep, nil
		}
		if e.Type != store.TypeString {
			return e, store.ActionKeep, store.ErrWrongType
		}
		old, found = e, true
		return e, store.ActionRemove, nil
	})
	if err != nil {
		return storeError(err)
	}
	if !found {
		return common.NewNullResponse()
	}
	return common.NewBulkResponse([]byte(old.Str))
}

func (a *CommandAdapter) mget(args []value.Value) common.Response {
	items := make([]common.Response, len(args))
	for i, key := range args {
		e, ok := a.store.Get(key.Raw())
		if !ok || e.Type != store.TypeString {
			items[i] = common.NewNullResponse()
			continue
		}
		items[i] = common.NewBulkResponse([]byte(e.Str))
	}
	return common.NewArrayResponse(items...)
}

func (a *CommandAdapter) mset(args []value.Value) common.Response {
	if len(args)%2 != 0 {
		return common.NewErrorResponse("ERR", "wrong number of arguments for 'mset' command")
	}
	for i := 0; i < len(args); i += 2 {
		a.store.Put(args[i].Raw(), store.Entry{Type: store.TypeString, Str: args[i+1].Raw()})
	}
	return common.NewOKResponse()
}

// --------------------------------------------------------------------------
// Key Commands
// --------------------------------------------------------------------------

func (a *CommandAdapter) expire(name string, args []value.Value, unit time.Duration) common.Response {
	n, err := strconv.ParseInt(args[1].Raw(), 10, 64)
	if err != nil {
		return errNotInteger
	}
	if n > math.MaxInt64/int64(unit) || n < math.MinInt64/int64(unit) {
		return common.NewErrorResponse("ERR", "invalid expire time in '"+name+"' command")
	}

	expiresAt := a.store.Now().Add(time.Duration(n) * unit).UnixNano()
	applied := false
	_, _ = a.store.Update(args[0].Raw(), func(e store.Entry, exists bool) (store.Entry, store.Action, error) {
		if !exists {
			return e, store.ActionKeep, nil
		}
		applied = true
		// a ttl in the past deletes the key
		if n <= 0 {
			return e, store.ActionRemove, nil
		}
		e.ExpiresAt = expiresAt
		return e, store.ActionWrite, nil
	})
	return common.NewIntResponse(boolToInt(applied))
}

func (a *CommandAdapter) ttl(key value.Value, unit time.Duration) common.Response {
	e, ok := a.store.Get(key.Raw())
	if !ok {
		return common.NewIntResponse(-2)
	}
	remaining, hasTTL := e.TTL(a.store.Now())
	if !hasTTL {
		return common.NewIntResponse(-1)
	}
	// round to the nearest unit
	return common.NewIntResponse(int64((remaining + unit/2) / unit))
}

func (a *CommandAdapter) persist(args []value.Value) common.Response {
	cleared := false
	_, _ = a.store.Update(args[0].Raw(), func(e store.Entry, exists bool) (store.Entry, store.Action, error) {
		if !exists || e.ExpiresAt == 0 {
			return e, store.ActionKeep, nil
		}
		cleared = true
		e.ExpiresAt = 0
		return e, store.ActionWrite, nil
	})
	return common.NewIntResponse(boolToInt(cleared))
}

func (a *CommandAdapter) typeOf(args []value.Value) common.Response {
	e, ok := a.store.Get(args[0].Raw())
	if !ok {
		return common.NewStatusResponse(store.TypeNone.String())
	}
	return common.NewStatusResponse(e.Type.String())
}

// --------------------------------------------------------------------------
// Connection Commands
// --------------------------------------------------------------------------

func (a *CommandAdapter) ping(args []value.Value) common.Response {
	if len(args) == 1 {
		return common.NewBulkResponse(args[0].Bytes())
	}
	return common.NewStatusResponse("PONG")
}

func (a *CommandAdapter) echo(args []value.Value) common.Response {
	return common.NewBulkResponse(args[0].Bytes())
}

// --------------------------------------------------------------------------
// List Commands
// --------------------------------------------------------------------------

func (a *CommandAdapter) push(args []value.Value, head bool) common.Response {
	var length int
	_, err := a.store.Update(args[0].Raw(), func(e store.Entry, exists bool) (store.Entry, store.Action, error) {
		if exists && e.Type != store.TypeList {
			return e, store.ActionKeep, store.ErrWrongType
		}

		elems := args[1:]
		list := make([]string, 0, len(e.List)+len(elems))
		if head {
			// every element is pushed to the head in turn, so they end up reversed
			for i := len(elems) - 1; i >= 0; i-- {
				list = append(list, elems[i].Raw())
			}
			list = append(list, e.List...)
		} else {
			list = append(list, e.List...)
			for _, v := range elems {
				list = append(list, v.Raw())
			}
		}

		e.Type, e.List = store.TypeList, list
		length = len(list)
		return e, store.ActionWrite, nil
	})
	if err != nil {
		return storeError(err)
	}
	return common.NewIntResponse(int64(length))
}

func (a *CommandAdapter) lrange(args []value.Value) common.Response {
	start, err1 := strconv.ParseInt(args[1].Raw(), 10, 64)
	stop, err2 := strconv.ParseInt(args[2].Raw(), 10, 64)
	if err1 != nil || err2 != nil {
		return errNotInteger
	}

	e, ok := a.store.Get(args[0].Raw())
	if !ok {
		return common.NewArrayResponse()
	}
	if e.Type != store.TypeList {
		return errWrongType
	}

	n := int64(len(e.List))
	if start < 0 {
		start = max(0, n+start)
	}
	if stop < 0 {
		stop = n + stop
	}
	stop = min(stop, n-1)
	if start > stop || start >= n {
		return common.NewArrayResponse()
	}

	items := make([]common.Response, 0, stop-start+1)
	for _, v := range e.List[start : stop+1] {
		items = append(items, common.NewBulkResponse([]byte(v)))
	}
	return common.NewArrayResponse(items...)
}

func (a *CommandAdapter) llen(args []value.Value) common.Response {
	e, ok := a.store.Get(args[0].Raw())
	if !ok {
		return common.NewIntResponse(0)
	}
	if e.Type != store.TypeList {
		return errWrongType
	}
	return common.NewIntResponse(int64(len(e.List)))
}

// --------------------------------------------------------------------------
// Hash Commands
// --------------------------------------------------------------------------

func (a *CommandAdapter) hset(args []value.Value) common.Response {
	if len(args)%2 != 1 {
		return common.NewErrorResponse("ERR", "wrong number of arguments for 'hset' command")
	}

	var added int64
	_, err := a.store.Update(args[0].Raw(), func(e store.Entry, exists bool) (store.Entry, store.Action, error) {
		if exists && e.Type != store.TypeHash {
			return e, store.ActionKeep, store.ErrWrongType
		}

		fields := make([]store.Field, len(e.Hash), len(e.Hash)+(len(args)-1)/2)
		copy(fields, e.Hash)
	next:
		for i := 1; i < len(args); i += 2 {
			name, val := args[i].Raw(), args[i+1].Raw()
			for j := range fields {
				if fields[j].Name == name {
					fields[j].Value = val
					continue next
				}
			}
			fields = append(fields, store.Field{Name: name, Value: val})
			added++
		}

		e.Type, e.Hash = store.TypeHash, fields
		return e, store.ActionWrite, nil
	})
	if err != nil {
		return storeError(err)
	}
	return common.NewIntResponse(added)
}

func (a *CommandAdapter) hget(args []value.Value) common.Response {
	e, ok := a.store.Get(args[0].Raw())
	if !ok {
		return common.NewNullResponse()
	}
	if e.Type != store.TypeHash {
		return errWrongType
	}
	v, found := e.HashGet(args[1].Raw())
	if !found {
		return common.NewNullResponse()
	}
	return common.NewBulkResponse([]byte(v))
}

func (a *CommandAdapter) hgetall(args []value.Value) common.Response {
	e, ok := a.store.Get(args[0].Raw())
	if !ok {
		return common.NewMapResponse()
	}
	if e.Type != store.TypeHash {
		return errWrongType
	}
	pairs := make([]common.Pair, len(e.Hash))
	for i, f := range e.Hash {
		pairs[i] = common.Pair{
			Key:   common.NewBulkResponse([]byte(f.Name)),
			Value: common.NewBulkResponse([]byte(f.Value)),
		}
	}
	return common.NewMapResponse(pairs...)
}

// --------------------------------------------------------------------------
// Server Commands
// --------------------------------------------------------------------------

func (a *CommandAdapter) dbSize([]value.Value) common.Response {
	return common.NewIntResponse(int64(a.store.Len()))
}

func (a *CommandAdapter) flushAll(args []value.Value) common.Response {
	if len(args) == 1 {
		mode := strings.ToUpper(args[0].Raw())
		if mode != "SYNC" && mode != "ASYNC" {
			return errSyntax
		}
	}
	a.store.Flush()
	return common.NewOKResponse()
}

// --------------------------------------------------------------------------
// Helper Functions
// --------------------------------------------------------------------------

// storeError maps a store error to the matching error reply
func storeError(err error) common.Response {
	storeErr, ok := err.(*store.Error)
	if !ok {
		return common.NewErrorResponse("ERR", err.Error())
	}
	switch storeErr.Code {
	case store.RetCWrongType:
		return errWrongType
	case store.RetCNotInteger:
		return errNotInteger
	case store.RetCOverflow:
		return errOverflow
	default:
		return common.NewErrorResponse("ERR", storeErr.Msg)
	}
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
