package payload

// Object is a JSON object that remembers key insertion order. Setting an
// existing key replaces its value in place, matching how a JSON decoder treats
// duplicate keys (last value wins, first position kept).
type Object struct {
	keys []string
	vals map[string]Value
}

// NewObject returns an empty object.
func NewObject() *Object {
	return &Object{vals: make(map[string]Value)}
}

func (*Object) Kind() Kind   { return KindObject }
func (*Object) Truthy() bool { return true }
func (o *Object) Text() string {
	return string(o.AppendJSON(nil))
}
func (o *Object) AppendJSON(dst []byte) []byte { return appendJSON(dst, o) }
func (o *Object) MarshalJSON() ([]byte, error) { return o.AppendJSON(nil), nil }
func (*Object) value()                         {}

// Set stores v under key.
func (o *Object) Set(key string, v Value) {
	if v == nil {
		v = Null{}
	}
	if o.vals == nil {
		o.vals = make(map[string]Value)
	}
	if _, ok := o.vals[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = v
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (Value, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o.vals[key]
	return v, ok
}

// Len returns the number of keys.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Range calls fn for every key in insertion order until fn returns false.
func (o *Object) Range(fn func(key string, v Value) bool) {
	if o == nil {
		return
	}
	for _, k := range o.keys {
		if !fn(k, o.vals[k]) {
			return
		}
	}
}

// Clone returns a shallow copy. Nested objects are shared.
func (o *Object) Clone() *Object {
	c := &Object{
		keys: make([]string, 0, o.Len()),
		vals: make(map[string]Value, o.Len()),
	}
	o.Range(func(k string, v Value) bool {
		c.Set(k, v)
		return true
	})
	return c
}

// Lookup resolves a dotted path. An exact top-level key wins over a nested
// walk, so a payload key that itself contains dots stays addressable.
func (o *Object) Lookup(path string) (Value, bool) {
	if v, ok := o.Get(path); ok {
		return v, true
	}
	cur := o
	rest := path
	for {
		i := indexDot(rest)
		if i < 0 {
			return cur.Get(rest)
		}
		next, ok := cur.Get(rest[:i])
		if !ok {
			return nil, false
		}
		child, ok := next.(*Object)
		if !ok {
			return nil, false
		}
		cur = child
		rest = rest[i+1:]
	}
}

func indexDot(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			return i
		}
	}
	return -1
}
