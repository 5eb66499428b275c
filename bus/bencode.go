// bencode.go - A minimal bencode codec for the message-bus onion_req_v2
// command. No third-party bencode library is present anywhere in the
// storage node's dependency pack, so this hand-rolls a small,
// purpose-built binary encoder rather than adding a general-purpose
// dependency for a single four-field dictionary.
// Copyright (C) 2024  The Beldex Project.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package bus implements the message-bus command used to relay one onion
// hop to the next: bencoding of the onion_req_v2 dictionary, and a
// Transport abstraction over the underlying peer connection layer.
package bus

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrTruncated is returned when a bencoded value ends before it should.
var ErrTruncated = errors.New("bus: truncated bencode value")

// ErrMalformed is returned for bencode input that doesn't parse as any
// recognized value type.
var ErrMalformed = errors.New("bus: malformed bencode value")

// Dict is a bencoded dictionary. Keys are sorted lexicographically on
// encode, per the bencode spec, regardless of insertion order.
type Dict map[string]interface{}

// EncodeDict serializes a Dict to its bencoded form. Values may be
// string, []byte, int, int64, or Dict.
func EncodeDict(d Dict) ([]byte, error) {
	var sb strings.Builder
	if err := encodeValue(&sb, d); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}

func encodeValue(sb *strings.Builder, v interface{}) error {
	switch val := v.(type) {
	case string:
		fmt.Fprintf(sb, "%d:%s", len(val), val)
	case []byte:
		fmt.Fprintf(sb, "%d:%s", len(val), val)
	case int:
		fmt.Fprintf(sb, "i%de", val)
	case int64:
		fmt.Fprintf(sb, "i%de", val)
	case Dict:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteByte('d')
		for _, k := range keys {
			fmt.Fprintf(sb, "%d:%s", len(k), k)
			if err := encodeValue(sb, val[k]); err != nil {
				return err
			}
		}
		sb.WriteByte('e')
	case []interface{}:
		sb.WriteByte('l')
		for _, item := range val {
			if err := encodeValue(sb, item); err != nil {
				return err
			}
		}
		sb.WriteByte('e')
	default:
		return fmt.Errorf("bus: unsupported bencode value type %T", v)
	}
	return nil
}

// EncodeList serializes items (each a string or []byte) as a bencoded
// list, the wire form of a Reply's multi-part body.
func EncodeList(items [][]byte) ([]byte, error) {
	var sb strings.Builder
	vals := make([]interface{}, len(items))
	for i, it := range items {
		vals[i] = it
	}
	if err := encodeValue(&sb, vals); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}

// DecodeList parses buf as a single top-level bencoded list of byte
// strings.
func DecodeList(buf []byte) ([][]byte, error) {
	v, rest, err := decodeValue(buf)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformed, len(rest))
	}
	items, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: top-level value is not a list", ErrMalformed)
	}
	out := make([][]byte, len(items))
	for i, item := range items {
		b, ok := item.([]byte)
		if !ok {
			return nil, fmt.Errorf("%w: list element %d is not a byte string", ErrMalformed, i)
		}
		out[i] = b
	}
	return out, nil
}

// DecodeDict parses buf as a single top-level bencoded dictionary.
func DecodeDict(buf []byte) (Dict, error) {
	v, rest, err := decodeValue(buf)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformed, len(rest))
	}
	d, ok := v.(Dict)
	if !ok {
		return nil, fmt.Errorf("%w: top-level value is not a dictionary", ErrMalformed)
	}
	return d, nil
}

func decodeValue(buf []byte) (interface{}, []byte, error) {
	if len(buf) == 0 {
		return nil, nil, ErrTruncated
	}
	switch {
	case buf[0] == 'd':
		return decodeDictBody(buf[1:])
	case buf[0] == 'l':
		return decodeListBody(buf[1:])
	case buf[0] == 'i':
		return decodeInt(buf[1:])
	case buf[0] >= '0' && buf[0] <= '9':
		return decodeString(buf)
	default:
		return nil, nil, fmt.Errorf("%w: unexpected leading byte %q", ErrMalformed, buf[0])
	}
}

func decodeDictBody(buf []byte) (Dict, []byte, error) {
	d := Dict{}
	for {
		if len(buf) == 0 {
			return nil, nil, ErrTruncated
		}
		if buf[0] == 'e' {
			return d, buf[1:], nil
		}
		keyVal, rest, err := decodeString(buf)
		if err != nil {
			return nil, nil, err
		}
		val, rest2, err := decodeValue(rest)
		if err != nil {
			return nil, nil, err
		}
		d[string(keyVal)] = val
		buf = rest2
	}
}

func decodeListBody(buf []byte) ([]interface{}, []byte, error) {
	var out []interface{}
	for {
		if len(buf) == 0 {
			return nil, nil, ErrTruncated
		}
		if buf[0] == 'e' {
			return out, buf[1:], nil
		}
		val, rest, err := decodeValue(buf)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, val)
		buf = rest
	}
}

func decodeInt(buf []byte) (int64, []byte, error) {
	idx := indexByte(buf, 'e')
	if idx < 0 {
		return 0, nil, ErrTruncated
	}
	n, err := strconv.ParseInt(string(buf[:idx]), 10, 64)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: invalid integer: %s", ErrMalformed, err)
	}
	return n, buf[idx+1:], nil
}

func decodeString(buf []byte) ([]byte, []byte, error) {
	idx := indexByte(buf, ':')
	if idx < 0 {
		return nil, nil, ErrTruncated
	}
	n, err := strconv.Atoi(string(buf[:idx]))
	if err != nil || n < 0 {
		return nil, nil, fmt.Errorf("%w: invalid string length", ErrMalformed)
	}
	rest := buf[idx+1:]
	if len(rest) < n {
		return nil, nil, ErrTruncated
	}
	return rest[:n], rest[n:], nil
}

func indexByte(buf []byte, b byte) int {
	for i, c := range buf {
		if c == b {
			return i
		}
	}
	return -1
}
