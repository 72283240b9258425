package server

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/kvbridge/lib/store/lstore"
	"github.com/ValentinKolb/kvbridge/lib/value"
	"github.com/ValentinKolb/kvbridge/rpc/command"
	"github.com/ValentinKolb/kvbridge/rpc/common"
)

type testClock struct{ now atomic.Int64 }

func (c *testClock) Now() time.Time          { return time.Unix(0, c.now.Load()) }
func (c *testClock) Advance(d time.Duration) { c.now.Add(int64(d)) }

func newTestAdapter() (*CommandAdapter, *testClock) {
	clock := &testClock{}
	clock.now.Store(time.Unix(1_700_000_000, 0).UnixNano())
	return NewCommandAdapter(lstore.NewLocalStore(lstore.Options{Clock: clock.Now})), clock
}

// run executes a command given as strings
func run(a *CommandAdapter, args ...string) common.Response {
	return a.Execute(command.Descriptor(value.FromStrings(args...)))
}

// step is one command and the expected response in its display form
type step struct {
	args []string
	want string
}

func runSteps(t *testing.T, a *CommandAdapter, steps []step) {
	t.Helper()
	for i, s := range steps {
		if got := run(a, s.args...).String(); got != s.want {
			t.Errorf("step %d %v:\nexpected: %s\ngot:      %s", i, s.args, s.want, got)
		}
	}
}

func TestStringCommands(t *testing.T) {
	a, _ := newTestAdapter()
	runSteps(t, a, []step{
		{[]string{"GET", "k"}, "(nil)"},
		{[]string{"SET", "k", "v"}, "OK"},
		{[]string{"get", "k"}, `"v"`},
		{[]string{"SET", "k", "w", "NX"}, "(nil)"},
		{[]string{"SET", "k", "w", "XX", "GET"}, `"v"`},
		{[]string{"SET", "other", "x", "XX"}, "(nil)"},
		{[]string{"APPEND", "k", "123"}, "(integer) 4"},
		{[]string{"STRLEN", "k"}, "(integer) 4"},
		{[]string{"STRLEN", "missing"}, "(integer) 0"},
		{[]string{"EXISTS", "k", "k", "missing"}, "(integer) 2"},
		{[]string{"GETDEL", "k"}, `"w123"`},
		{[]string{"GETDEL", "k"}, "(nil)"},
		{[]string{"MSET", "a", "1", "b", "2"}, "OK"},
		{[]string{"MGET", "a", "missing", "b"}, "1) \"1\"\n2) (nil)\n3) \"2\""},
		{[]string{"DEL", "a", "b", "missing"}, "(integer) 2"},
		{[]string{"SET", "k", "v", "NX", "XX"}, "(error) ERR syntax error"},
		{[]string{"SET", "k", "v", "BOGUS"}, "(error) ERR syntax error"},
	})
}

func TestCounters(t *testing.T) {
	a, _ := newTestAdapter()
	runSteps(t, a, []step{
		{[]string{"INCR", "n"}, "(integer) 1"},
		{[]string{"INCRBY", "n", "41"}, "(integer) 42"},
		{[]string{"DECR", "n"}, "(integer) 41"},
		{[]string{"DECRBY", "n", "50"}, "(integer) -9"},
		{[]string{"INCRBY", "n", "x"}, "(error) ERR value is not an integer or out of range"},
		{[]string{"SET", "s", "abc"}, "OK"},
		{[]string{"INCR", "s"}, "(error) ERR value is not an integer or out of range"},
		{[]string{"SET", "max", "9223372036854775807"}, "OK"},
		{[]string{"INCR", "max"}, "(error) ERR increment or decrement would overflow"},
	})
}

func TestWrongType(t *testing.T) {
	a, _ := newTestAdapter()
	run(a, "RPUSH", "list", "a")
	run(a, "HSET", "hash", "f", "v")

	for _, args := range [][]string{
		{"GET", "list"},
		{"INCR", "list"},
		{"APPEND", "hash", "x"},
		{"LRANGE", "hash", "0", "-1"},
		{"HGET", "list", "f"},
		{"RPUSH", "hash", "x"},
		{"SET", "list", "v", "GET"},
	} {
		resp := run(a, args...)
		if !resp.IsError() || resp.ErrKind != "WRONGTYPE" {
			t.Errorf("%v: expected WRONGTYPE, got %s", args, resp)
		}
	}

	// plain SET replaces any type
	runSteps(t, a, []step{
		{[]string{"SET", "list", "v"}, "OK"},
		{[]string{"TYPE", "list"}, "string"},
		{[]string{"TYPE", "hash"}, "hash"},
		{[]string{"TYPE", "missing"}, "none"},
	})
}

func TestExpiry(t *testing.T) {
	a, clock := newTestAdapter()
	runSteps(t, a, []step{
		{[]string{"SET", "k", "v", "EX", "10"}, "OK"},
		{[]string{"TTL", "k"}, "(integer) 10"},
		{[]string{"PTTL", "k"}, "(integer) 10000"},
		{[]string{"TTL", "missing"}, "(integer) -2"},
		{[]string{"SET", "p", "v"}, "OK"},
		{[]string{"TTL", "p"}, "(integer) -1"},
		{[]string{"PEXPIRE", "p", "1500"}, "(integer) 1"},
		{[]string{"EXPIRE", "missing", "5"}, "(integer) 0"},
		{[]string{"SET", "k", "w", "KEEPTTL"}, "OK"},
		{[]string{"TTL", "k"}, "(integer) 10"},
		{[]string{"SET", "k", "v", "EX", "0"}, "(error) ERR invalid expire time in 'set' command"},
	})

	clock.Advance(2 * time.Second)
	runSteps(t, a, []step{
		{[]string{"DBSIZE"}, "(integer) 1"},
		{[]string{"GET", "p"}, "(nil)"},
		{[]string{"TTL", "k"}, "(integer) 8"},
		{[]string{"PERSIST", "k"}, "(integer) 1"},
		{[]string{"PERSIST", "k"}, "(integer) 0"},
	})

	clock.Advance(time.Hour)
	runSteps(t, a, []step{
		{[]string{"GET", "k"}, `"w"`},
		{[]string{"EXPIRE", "k", "-1"}, "(integer) 1"},
		{[]string{"EXISTS", "k"}, "(integer) 0"},
	})
}

func TestListCommands(t *testing.T) {
	a, _ := newTestAdapter()
	runSteps(t, a, []step{
		{[]string{"RPUSH", "l", "a", "b"}, "(integer) 2"},
		{[]string{"LPUSH", "l", "y", "x"}, "(integer) 4"},
		{[]string{"LRANGE", "l", "0", "-1"}, "1) \"x\"\n2) \"y\"\n3) \"a\"\n4) \"b\""},
		{[]string{"LRANGE", "l", "-2", "10"}, "1) \"a\"\n2) \"b\""},
		{[]string{"LRANGE", "l", "3", "1"}, "(empty array)"},
		{[]string{"LRANGE", "missing", "0", "-1"}, "(empty array)"},
		{[]string{"LLEN", "l"}, "(integer) 4"},
		{[]string{"LLEN", "missing"}, "(integer) 0"},
	})
}

func TestHashCommands(t *testing.T) {
	a, _ := newTestAdapter()
	runSteps(t, a, []step{
		{[]string{"HSET", "h", "f1", "v1", "f2", "v2"}, "(integer) 2"},
		{[]string{"HSET", "h", "f1", "new", "f3", "v3"}, "(integer) 1"},
		{[]string{"HGET", "h", "f1"}, `"new"`},
		{[]string{"HGET", "h", "nope"}, "(nil)"},
		{[]string{"HGET", "missing", "f"}, "(nil)"},
	})

	resp := run(a, "HGETALL", "h")
	if resp.Kind != common.RespMap || len(resp.Map) != 3 {
		t.Fatalf("unexpected HGETALL reply %s", resp)
	}
	for i, want := range []string{"f1", "f2", "f3"} {
		if string(resp.Map[i].Key.Bulk) != want {
			t.Errorf("field %d: expected %s, got %q", i, want, resp.Map[i].Key.Bulk)
		}
	}
	if empty := run(a, "HGETALL", "missing"); empty.Kind != common.RespMap || len(empty.Map) != 0 {
		t.Errorf("expected empty map, got %s", empty)
	}
}

func TestServerCommands(t *testing.T) {
	a, _ := newTestAdapter()
	runSteps(t, a, []step{
		{[]string{"PING"}, "PONG"},
		{[]string{"PING", "hi"}, `"hi"`},
		{[]string{"ECHO", "hello"}, `"hello"`},
		{[]string{"MSET", "a", "1", "b", "2"}, "OK"},
		{[]string{"DBSIZE"}, "(integer) 2"},
		{[]string{"FLUSHALL", "maybe"}, "(error) ERR syntax error"},
		{[]string{"FLUSHALL"}, "OK"},
		{[]string{"DBSIZE"}, "(integer) 0"},
	})
}

func TestUnknownAndArity(t *testing.T) {
	a, _ := newTestAdapter()
	runSteps(t, a, []step{
		{[]string{"NOSUCHCMD", "x"}, "(error) ERR unknown command 'NOSUCHCMD'"},
		{[]string{"GET"}, "(error) ERR wrong number of arguments for 'get' command"},
		{[]string{"GET", "a", "b"}, "(error) ERR wrong number of arguments for 'get' command"},
	})
	if resp := a.Execute(nil); !resp.IsError() {
		t.Errorf("empty command should fail, got %s", resp)
	}
}

func TestBinarySafeValues(t *testing.T) {
	a, _ := newTestAdapter()
	key := value.FromBytes([]byte{0x00, 0xff})
	val := value.FromBytes([]byte{0xfe, 0x00, 0x80})

	resp := a.Execute(command.MustBuild(command.CmdSet, key, val))
	if resp.Status != "OK" {
		t.Fatalf("set failed: %s", resp)
	}
	resp = a.Execute(command.MustBuild(command.CmdGet, key))
	if !value.FromBytes(resp.Bulk).Equal(val) {
		t.Errorf("value changed: %x", resp.Bulk)
	}
}
