package serializer

import (
	"encoding/binary"
	"fmt"

	"github.com/ValentinKolb/kvbridge/lib/value"
	"github.com/ValentinKolb/kvbridge/rpc/command"
	"github.com/ValentinKolb/kvbridge/rpc/common"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format.
//
// Request:  [4B count] then per element [4B length][bytes]
// Response: [1B kind] followed by the payload of the kind:
//
//	Null           -
//	Status, Bulk   [4B length][bytes]
//	Int            [8B big endian]
//	Error          [4B length][kind][4B length][message]
//	Array          [4B count] responses
//	Map            [4B count] key, value responses
type binarySerializerImpl struct {
}

// maxNesting limits the depth of nested arrays and maps accepted by Deserialize
const maxNesting = 64

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Name() string { return "binary" }

func (b binarySerializerImpl) SerializeRequest(desc command.Descriptor) ([]byte, error) {
	size := 4 + 4*len(desc) + desc.Size()
	result := make([]byte, 0, size)

	result = binary.BigEndian.AppendUint32(result, uint32(len(desc)))
	for _, v := range desc {
		result = binary.BigEndian.AppendUint32(result, uint32(v.Len()))
		result = v.AppendTo(result)
	}
	return result, nil
}

func (b binarySerializerImpl) DeserializeRequest(data []byte) (command.Descriptor, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("data too short for request header")
	}
	count := binary.BigEndian.Uint32(data)
	pos := 4

	if count == 0 {
		return nil, fmt.Errorf("empty request")
	}
	// every element needs at least its length prefix
	if uint64(count)*4 > uint64(len(data)-pos) {
		return nil, fmt.Errorf("data too short for %d request elements", count)
	}

	desc := make(command.Descriptor, count)
	for i := range desc {
		raw, next, err := readBytes(data, pos)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		desc[i] = value.FromBytes(raw)
		pos = next
	}
	if pos != len(data) {
		return nil, fmt.Errorf("%d trailing bytes after request", len(data)-pos)
	}
	return desc, nil
}

func (b binarySerializerImpl) SerializeResponse(resp common.Response) ([]byte, error) {
	result := make([]byte, 0, b.sizeBytes(&resp))
	return b.appendResponse(result, &resp), nil
}

func (b binarySerializerImpl) DeserializeResponse(data []byte, resp *common.Response) error {
	pos, err := b.readResponse(data, 0, resp, 0)
	if err != nil {
		return err
	}
	if pos != len(data) {
		return fmt.Errorf("%d trailing bytes after response", len(data)-pos)
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// sizeBytes returns the encoded size of a response
func (b binarySerializerImpl) sizeBytes(r *common.Response) int {
	switch r.Kind {
	case common.RespStatus:
		return 1 + 4 + len(r.Status)
	case common.RespBulk:
		return 1 + 4 + len(r.Bulk)
	case common.RespInt:
		return 1 + 8
	case common.RespError:
		return 1 + 8 + len(r.ErrKind) + len(r.ErrMsg)
	case common.RespArray:
		n := 1 + 4
		for i := range r.Array {
			n += b.sizeBytes(&r.Array[i])
		}
		return n
	case common.RespMap:
		n := 1 + 4
		for i := range r.Map {
			n += b.sizeBytes(&r.Map[i].Key) + b.sizeBytes(&r.Map[i].Value)
		}
		return n
	default:
		return 1
	}
}

func (b binarySerializerImpl) appendResponse(dst []byte, r *common.Response) []byte {
	dst = append(dst, byte(r.Kind))
	switch r.Kind {
	case common.RespStatus:
		dst = appendString(dst, r.Status)
	case common.RespBulk:
		dst = binary.BigEndian.AppendUint32(dst, uint32(len(r.Bulk)))
		dst = append(dst, r.Bulk...)
	case common.RespInt:
		dst = binary.BigEndian.AppendUint64(dst, uint64(r.Int))
	case common.RespError:
		dst = appendString(dst, r.ErrKind)
		dst = appendString(dst, r.ErrMsg)
	case common.RespArray:
		dst = binary.BigEndian.AppendUint32(dst, uint32(len(r.Array)))
		for i := range r.Array {
			dst = b.appendResponse(dst, &r.Array[i])
		}
	case common.RespMap:
		dst = binary.BigEndian.AppendUint32(dst, uint32(len(r.Map)))
		for i := range r.Map {
			dst = b.appendResponse(dst, &r.Map[i].Key)
			dst = b.appendResponse(dst, &r.Map[i].Value)
		}
	}
	return dst
}

func (b binarySerializerImpl) readResponse(data []byte, pos int, r *common.Response, depth int) (int, error) {
	if depth > maxNesting {
		return 0, fmt.Errorf("response nested deeper than %d levels", maxNesting)
	}
	if pos >= len(data) {
		return 0, fmt.Errorf("data too short for response kind")
	}
	*r = common.Response{Kind: common.ResponseKind(data[pos])}
	pos++

	switch r.Kind {
	case common.RespNull:
		return pos, nil

	case common.RespStatus:
		raw, next, err := readBytes(data, pos)
		if err != nil {
			return 0, fmt.Errorf("status: %w", err)
		}
		r.Status = string(raw)
		return next, nil

	case common.RespBulk:
		raw, next, err := readBytes(data, pos)
		if err != nil {
			return 0, fmt.Errorf("bulk: %w", err)
		}
		// copy, the frame buffer may be reused by the transport
		r.Bulk = make([]byte, len(raw))
		copy(r.Bulk, raw)
		return next, nil

	case common.RespInt:
		if pos+8 > len(data) {
			return 0, fmt.Errorf("data too short for int")
		}
		r.Int = int64(binary.BigEndian.Uint64(data[pos : pos+8]))
		return pos + 8, nil

	case common.RespError:
		kind, next, err := readBytes(data, pos)
		if err != nil {
			return 0, fmt.Errorf("error kind: %w", err)
		}
		msg, next, err := readBytes(data, next)
		if err != nil {
			return 0, fmt.Errorf("error message: %w", err)
		}
		r.ErrKind, r.ErrMsg = string(kind), string(msg)
		return next, nil

	case common.RespArray:
		count, next, err := readCount(data, pos, 1)
		if err != nil {
			return 0, fmt.Errorf("array: %w", err)
		}
		pos = next
		r.Array = make([]common.Response, count)
		for i := range r.Array {
			if pos, err = b.readResponse(data, pos, &r.Array[i], depth+1); err != nil {
				return 0, err
			}
		}
		return pos, nil

	case common.RespMap:
		count, next, err := readCount(data, pos, 2)
		if err != nil {
			return 0, fmt.Errorf("map: %w", err)
		}
		pos = next
		r.Map = make([]common.Pair, count)
		for i := range r.Map {
			if pos, err = b.readResponse(data, pos, &r.Map[i].Key, depth+1); err != nil {
				return 0, err
			}
			if pos, err = b.readResponse(data, pos, &r.Map[i].Value, depth+1); err != nil {
				return 0, err
			}
		}
		return pos, nil

	default:
		return 0, fmt.Errorf("unknown response kind %d", r.Kind)
	}
}

func appendString(dst []byte, s string) []byte {
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(s)))
	return append(dst, s...)
}

// readBytes reads a length prefixed byte slice. The result aliases data.
func readBytes(data []byte, pos int) ([]byte, int, error) {
	if pos+4 > len(data) {
		return nil, 0, fmt.Errorf("data too short for length")
	}
	n := int(binary.BigEndian.Uint32(data[pos : pos+4]))
	pos += 4
	if n > len(data)-pos {
		return nil, 0, fmt.Errorf("data too short for %d bytes", n)
	}
	return data[pos : pos+n], pos + n, nil
}

// readCount reads an element count and checks it against the remaining bytes,
// every element takes at least minSize bytes
func readCount(data []byte, pos int, minSize int) (int, int, error) {
	if pos+4 > len(data) {
		return 0, 0, fmt.Errorf("data too short for count")
	}
	count := binary.BigEndian.Uint32(data[pos : pos+4])
	pos += 4
	if uint64(count)*uint64(minSize) > uint64(len(data)-pos) {
		return 0, 0, fmt.Errorf("data too short for %d elements", count)
	}
	return int(count), pos, nil
}
