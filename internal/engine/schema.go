package engine

import "github.com/coffersTech/topicview/internal/pkg/payload"

// Schema is the set of dynamic column paths discovered in one batch, in the
// order they were first seen. A Schema value is never modified once built;
// Aggregate returns a new one when it has something to add.
type Schema struct {
	paths []string
	seen  map[string]struct{}
}

// Paths returns the column paths in discovery order.
func (s Schema) Paths() []string {
	return append([]string(nil), s.paths...)
}

// Len returns the number of discovered paths.
func (s Schema) Len() int {
	return len(s.paths)
}

// Has reports whether path was discovered.
func (s Schema) Has(path string) bool {
	_, ok := s.seen[path]
	return ok
}

// Aggregate folds the leaf paths of p into s. Objects are walked with their
// key appended to the path prefix; every other value, arrays and null
// included, registers its full dotted path. Non-object payloads contribute
// nothing. s itself is left untouched.
func Aggregate(s Schema, p payload.Value) Schema {
	obj, ok := p.(*payload.Object)
	if !ok {
		return s
	}

	var added []string
	pending := make(map[string]struct{})
	collectPaths(obj, "", func(path string) {
		if s.Has(path) {
			return
		}
		if _, dup := pending[path]; dup {
			return
		}
		pending[path] = struct{}{}
		added = append(added, path)
	})
	if len(added) == 0 {
		return s
	}

	next := Schema{
		paths: make([]string, 0, len(s.paths)+len(added)),
		seen:  make(map[string]struct{}, len(s.paths)+len(added)),
	}
	for _, path := range s.paths {
		next.paths = append(next.paths, path)
		next.seen[path] = struct{}{}
	}
	for _, path := range added {
		next.paths = append(next.paths, path)
		next.seen[path] = struct{}{}
	}
	return next
}

// AggregateBatch folds every payload of a batch, starting from an empty
// schema.
func AggregateBatch(payloads []payload.Value) Schema {
	var s Schema
	for _, p := range payloads {
		s = Aggregate(s, p)
	}
	return s
}

func collectPaths(obj *payload.Object, prefix string, emit func(string)) {
	obj.Range(func(key string, v payload.Value) bool {
		switch t := v.(type) {
		case *payload.Object:
			collectPaths(t, prefix+key+".", emit)
		case payload.Null, payload.Bool, payload.Number, payload.String, payload.Array:
			emit(prefix + key)
		}
		return true
	})
}
