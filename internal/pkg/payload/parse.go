package payload

import (
	"fmt"
	"math"

	"github.com/valyala/fastjson"
)

var (
	parserPool fastjson.ParserPool
	arenaPool  fastjson.ArenaPool
)

// Parse decodes a JSON document into a Value. Any valid JSON document is
// accepted, not only objects; callers decide what a non-object means.
func Parse(s string) (Value, error) {
	p := parserPool.Get()
	defer parserPool.Put(p)

	v, err := p.Parse(s)
	if err != nil {
		return nil, err
	}
	return convert(v)
}

// ParseBytes is Parse for a byte slice.
func ParseBytes(b []byte) (Value, error) {
	return Parse(string(b))
}

// FromFastJSON converts a value owned by a fastjson parser. The result copies
// every string so it stays valid after the parser is reused.
func FromFastJSON(v *fastjson.Value) (Value, error) {
	if v == nil {
		return Null{}, nil
	}
	return convert(v)
}

func convert(v *fastjson.Value) (Value, error) {
	switch v.Type() {
	case fastjson.TypeNull:
		return Null{}, nil
	case fastjson.TypeTrue:
		return Bool(true), nil
	case fastjson.TypeFalse:
		return Bool(false), nil
	case fastjson.TypeNumber:
		// fastjson accepts NaN and Inf literals, JSON does not.
		n, err := numberFromLiteral(v.String())
		if err != nil {
			return nil, err
		}
		if math.IsNaN(n.f) || math.IsInf(n.f, 0) {
			return nil, fmt.Errorf("non-finite number %q", n.lit)
		}
		return n, nil
	case fastjson.TypeString:
		b, err := v.StringBytes()
		if err != nil {
			return nil, err
		}
		return String(b), nil
	case fastjson.TypeArray:
		items, err := v.Array()
		if err != nil {
			return nil, err
		}
		arr := make(Array, 0, len(items))
		for _, item := range items {
			c, err := convert(item)
			if err != nil {
				return nil, err
			}
			arr = append(arr, c)
		}
		return arr, nil
	case fastjson.TypeObject:
		o, err := v.Object()
		if err != nil {
			return nil, err
		}
		obj := NewObject()
		var visitErr error
		o.Visit(func(key []byte, item *fastjson.Value) {
			if visitErr != nil {
				return
			}
			c, err := convert(item)
			if err != nil {
				visitErr = err
				return
			}
			obj.Set(string(key), c)
		})
		if visitErr != nil {
			return nil, visitErr
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported JSON type %s", v.Type())
	}
}

// appendJSON encodes v through a pooled fastjson arena so string escaping
// and key order follow a single encoder.
func appendJSON(dst []byte, v Value) []byte {
	a := arenaPool.Get()
	defer arenaPool.Put(a)
	dst = toArena(a, v).MarshalTo(dst)
	a.Reset()
	return dst
}

func toArena(a *fastjson.Arena, v Value) *fastjson.Value {
	switch t := v.(type) {
	case nil, Null:
		return a.NewNull()
	case Bool:
		if t {
			return a.NewTrue()
		}
		return a.NewFalse()
	case Number:
		return a.NewNumberString(t.literal())
	case String:
		return a.NewString(string(t))
	case Array:
		arr := a.NewArray()
		for i, item := range t {
			arr.SetArrayItem(i, toArena(a, item))
		}
		return arr
	case *Object:
		obj := a.NewObject()
		t.Range(func(k string, item Value) bool {
			obj.Set(k, toArena(a, item))
			return true
		})
		return obj
	default:
		return a.NewNull()
	}
}
