package docstore

import "fmt"

// OpKind enumerates batch and change operations.
type OpKind string

const (
	OpSet         OpKind = "set"
	OpDelete      OpKind = "delete"
	OpDeleteWhere OpKind = "deleteWhere"
)

// Op is one entry of an atomic batch.
type Op struct {
	Kind       OpKind
	Path       Path
	Fields     map[string]any
	Merge      bool
	Collection string
	Filter     Filter
}

// Batch collects writes that must be applied all together or not at all.
type Batch struct {
	ops []Op
}

func NewBatch() *Batch {
	return &Batch{}
}

func (b *Batch) Set(path Path, fields map[string]any, merge bool) *Batch {
	b.ops = append(b.ops, Op{Kind: OpSet, Path: path, Fields: cloneMap(fields), Merge: merge})
	return b
}

func (b *Batch) Delete(path Path) *Batch {
	b.ops = append(b.ops, Op{Kind: OpDelete, Path: path})
	return b
}

// DeleteWhere removes every document of collection matching filter.
func (b *Batch) DeleteWhere(collection string, filter Filter) *Batch {
	b.ops = append(b.ops, Op{Kind: OpDeleteWhere, Collection: collection, Filter: filter})
	return b
}

func (b *Batch) Ops() []Op {
	if b == nil {
		return nil
	}
	return append([]Op(nil), b.ops...)
}

func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.ops)
}

// Validate rejects batches with malformed paths before anything is applied.
func (b *Batch) Validate() error {
	for i, op := range b.Ops() {
		switch op.Kind {
		case OpSet, OpDelete:
			if !op.Path.Valid() {
				return fmt.Errorf("%w: op %d %s", ErrInvalidPath, i, op.Path)
			}
		case OpDeleteWhere:
			if op.Collection == "" {
				return fmt.Errorf("%w: op %d missing collection", ErrInvalidPath, i)
			}
		default:
			return fmt.Errorf("unknown batch op %q", op.Kind)
		}
	}
	return nil
}

// Change describes an applied mutation. Data is the post-image for sets, the
// pre-image for single deletes and the filter for DeleteWhere.
type Change struct {
	Kind OpKind
	Path Path
	Data map[string]any
}

func cloneMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		return cloneMap(typed)
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = cloneValue(item)
		}
		return out
	case []map[string]any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = cloneMap(item)
		}
		return out
	default:
		return v
	}
}

// CloneData deep-copies document data made of maps and slices.
func CloneData(in map[string]any) map[string]any {
	return cloneMap(in)
}
