package command

import (
	"sort"
	"strings"
)

// --------------------------------------------------------------------------
// Command Specification
// --------------------------------------------------------------------------

// Spec describes the argument shape of a command.
//
// Arity follows the usual key-value store convention: a positive value is the exact
// number of elements including the command name, a negative value -n means at least n
// elements. MaxArity (0 = unbounded) caps variable-arity commands.
//
// FirstKey, LastKey and KeyStep locate the key arguments (LastKey -1 = last element).
// A FirstKey of 0 means the command takes no keys. PairsFrom > 0 requires the elements
// starting at that index to form field/value pairs.
type Spec struct {
	Name      string
	Arity     int
	MaxArity  int
	FirstKey  int
	LastKey   int
	KeyStep   int
	PairsFrom int
}

// IsWrite reports whether the command modifies the keyspace
func (s *Spec) IsWrite() bool {
	_, ok := writeCommands[s.Name]
	return ok
}

// CheckArity reports whether n elements (including the name) satisfy the spec
func (s *Spec) CheckArity(n int) bool {
	if s.Arity >= 0 {
		return n == s.Arity
	}
	if n < -s.Arity {
		return false
	}
	return s.MaxArity == 0 || n <= s.MaxArity
}

// keyPositions calls fn for every key index of a descriptor with n elements
func (s *Spec) keyPositions(n int, fn func(i int)) {
	if s.FirstKey == 0 {
		return
	}
	last := s.LastKey
	if last < 0 {
		last = n + last
	}
	step := max(1, s.KeyStep)
	for i := s.FirstKey; i <= last && i < n; i += step {
		fn(i)
	}
}

// --------------------------------------------------------------------------
// Command Catalog
// --------------------------------------------------------------------------

// Command names of the catalog
const (
	CmdGet      = "GET"
	CmdSet      = "SET"
	CmdDel      = "DEL"
	CmdExists   = "EXISTS"
	CmdIncr     = "INCR"
	CmdIncrBy   = "INCRBY"
	CmdDecr     = "DECR"
	CmdDecrBy   = "DECRBY"
	CmdAppend   = "APPEND"
	CmdStrLen   = "STRLEN"
	CmdGetDel   = "GETDEL"
	CmdMGet     = "MGET"
	CmdMSet     = "MSET"
	CmdExpire   = "EXPIRE"
	CmdPExpire  = "PEXPIRE"
	CmdTTL      = "TTL"
	CmdPTTL     = "PTTL"
	CmdPersist  = "PERSIST"
	CmdType     = "TYPE"
	CmdPing     = "PING"
	CmdEcho     = "ECHO"
	CmdRPush    = "RPUSH"
	CmdLPush    = "LPUSH"
	CmdLRange   = "LRANGE"
	CmdLLen     = "LLEN"
	CmdHSet     = "HSET"
	CmdHGet     = "HGET"
	CmdHGetAll  = "HGETALL"
	CmdDBSize   = "DBSIZE"
	CmdFlushAll = "FLUSHALL"
)

var catalog = map[string]Spec{
	CmdGet:      {Name: CmdGet, Arity: 2, FirstKey: 1, LastKey: 1, KeyStep: 1},
	CmdSet:      {Name: CmdSet, Arity: -3, MaxArity: 7, FirstKey: 1, LastKey: 1, KeyStep: 1},
	CmdDel:      {Name: CmdDel, Arity: -2, FirstKey: 1, LastKey: -1, KeyStep: 1},
	CmdExists:   {Name: CmdExists, Arity: -2, FirstKey: 1, LastKey: -1, KeyStep: 1},
	CmdIncr:     {Name: CmdIncr, Arity: 2, FirstKey: 1, LastKey: 1, KeyStep: 1},
	CmdIncrBy:   {Name: CmdIncrBy, Arity: 3, FirstKey: 1, LastKey: 1, KeyStep: 1},
	CmdDecr:     {Name: CmdDecr, Arity: 2, FirstKey: 1, LastKey: 1, KeyStep: 1},
	CmdDecrBy:   {Name: CmdDecrBy, Arity: 3, FirstKey: 1, LastKey: 1, KeyStep: 1},
	CmdAppend:   {Name: CmdAppend, Arity: 3, FirstKey: 1, LastKey: 1, KeyStep: 1},
	CmdStrLen:   {Name: CmdStrLen, Arity: 2, FirstKey: 1, LastKey: 1, KeyStep: 1},
	CmdGetDel:   {Name: CmdGetDel, Arity: 2, FirstKey: 1, LastKey: 1, KeyStep: 1},
	CmdMGet:     {Name: CmdMGet, Arity: -2, FirstKey: 1, LastKey: -1, KeyStep: 1},
	CmdMSet:     {Name: CmdMSet, Arity: -3, FirstKey: 1, LastKey: -1, KeyStep: 2, PairsFrom: 1},
	CmdExpire:   {Name: CmdExpire, Arity: 3, FirstKey: 1, LastKey: 1, KeyStep: 1},
	CmdPExpire:  {Name: CmdPExpire, Arity: 3, FirstKey: 1, LastKey: 1, KeyStep: 1},
	CmdTTL:      {Name: CmdTTL, Arity: 2, FirstKey: 1, LastKey: 1, KeyStep: 1},
	CmdPTTL:     {Name: CmdPTTL, Arity: 2, FirstKey: 1, LastKey: 1, KeyStep: 1},
	CmdPersist:  {Name: CmdPersist, Arity: 2, FirstKey: 1, LastKey: 1, KeyStep: 1},
	CmdType:     {Name: CmdType, Arity: 2, FirstKey: 1, LastKey: 1, KeyStep: 1},
	CmdPing:     {Name: CmdPing, Arity: -1, MaxArity: 2},
	CmdEcho:     {Name: CmdEcho, Arity: 2},
	CmdRPush:    {Name: CmdRPush, Arity: -3, FirstKey: 1, LastKey: 1, KeyStep: 1},
	CmdLPush:    {Name: CmdLPush, Arity: -3, FirstKey: 1, LastKey: 1, KeyStep: 1},
	CmdLRange:   {Name: CmdLRange, Arity: 4, FirstKey: 1, LastKey: 1, KeyStep: 1},
	CmdLLen:     {Name: CmdLLen, Arity: 2, FirstKey: 1, LastKey: 1, KeyStep: 1},
	CmdHSet:     {Name: CmdHSet, Arity: -4, FirstKey: 1, LastKey: 1, KeyStep: 1, PairsFrom: 2},
	CmdHGet:     {Name: CmdHGet, Arity: 3, FirstKey: 1, LastKey: 1, KeyStep: 1},
	CmdHGetAll:  {Name: CmdHGetAll, Arity: 2, FirstKey: 1, LastKey: 1, KeyStep: 1},
	CmdDBSize:   {Name: CmdDBSize, Arity: 1},
	CmdFlushAll: {Name: CmdFlushAll, Arity: -1, MaxArity: 2},
}

var writeCommands = map[string]struct{}{
	CmdSet: {}, CmdDel: {}, CmdIncr: {}, CmdIncrBy: {}, CmdDecr: {}, CmdDecrBy: {},
	CmdAppend: {}, CmdGetDel: {}, CmdMSet: {}, CmdExpire: {}, CmdPExpire: {},
	CmdPersist: {}, CmdRPush: {}, CmdLPush: {}, CmdHSet: {}, CmdFlushAll: {},
}

// Lookup returns the spec of a command (case-insensitive)
func Lookup(name string) (Spec, bool) {
	s, ok := catalog[strings.ToUpper(name)]
	return s, ok
}

// Names returns the names of all catalog commands in lexical order
func Names() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
