package command

import (
	"time"

	"github.com/ValentinKolb/kvbridge/lib/value"
	"github.com/ValentinKolb/kvbridge/rpc/common"
)

// --------------------------------------------------------------------------
// SET options
// --------------------------------------------------------------------------

// SetCondition restricts when SET writes the value
type SetCondition uint8

const (
	SetAlways      SetCondition = iota // write unconditionally
	SetIfNotExists                     // NX: only write if the key does not exist
	SetIfExists                        // XX: only write if the key exists
)

// ExpiryKind selects the expiry argument of SET
type ExpiryKind uint8

const (
	ExpiryNone    ExpiryKind = iota // no expiry argument, an existing ttl is cleared
	ExpirySeconds                   // EX seconds
	ExpiryMillis                    // PX milliseconds
	ExpiryKeepTTL                   // KEEPTTL
)

// Expiry is the expiry option of SET
type Expiry struct {
	Kind     ExpiryKind
	Duration time.Duration
}

// ExpireIn returns an expiry with millisecond resolution
func ExpireIn(d time.Duration) Expiry {
	return Expiry{Kind: ExpiryMillis, Duration: d}
}

// SetArgs holds the optional arguments of SET
type SetArgs struct {
	Condition SetCondition
	Expiry    Expiry
	// ReturnOld makes SET reply with the previous value (GET option)
	ReturnOld bool
}

// BuildSet creates the SET descriptor in the documented order:
//
//	SET key value [NX|XX] [GET] [EX seconds|PX milliseconds|KEEPTTL]
func BuildSet(key, val value.Value, opts SetArgs) (Descriptor, error) {
	args := make([]value.Value, 2, 6)
	args[0], args[1] = key, val

	switch opts.Condition {
	case SetAlways:
	case SetIfNotExists:
		args = append(args, value.FromString("NX"))
	case SetIfExists:
		args = append(args, value.FromString("XX"))
	default:
		return nil, common.NewArgumentError("invalid set condition %d", opts.Condition)
	}

	if opts.ReturnOld {
		args = append(args, value.FromString("GET"))
	}

	switch opts.Expiry.Kind {
	case ExpiryNone:
	case ExpirySeconds:
		secs := int64(opts.Expiry.Duration / time.Second)
		if secs <= 0 {
			return nil, common.NewArgumentError("invalid expire time in 'SET' command")
		}
		args = append(args, value.FromString("EX"), value.Int(secs))
	case ExpiryMillis:
		ms := opts.Expiry.Duration.Milliseconds()
		if ms <= 0 {
			return nil, common.NewArgumentError("invalid expire time in 'SET' command")
		}
		args = append(args, value.FromString("PX"), value.Int(ms))
	case ExpiryKeepTTL:
		args = append(args, value.FromString("KEEPTTL"))
	default:
		return nil, common.NewArgumentError("invalid expiry kind %d", opts.Expiry.Kind)
	}

	return Build(CmdSet, args...)
}

// --------------------------------------------------------------------------
// Pair helpers
// --------------------------------------------------------------------------

// KV is a single key/value (or field/value) argument pair
type KV struct {
	Key   value.Value
	Value value.Value
}

// FlattenPairs appends the pairs to prefix in key, value order
func FlattenPairs(prefix []value.Value, pairs []KV) []value.Value {
	out := make([]value.Value, 0, len(prefix)+2*len(pairs))
	out = append(out, prefix...)
	for _, p := range pairs {
		out = append(out, p.Key, p.Value)
	}
	return out
}
