package docstore

import (
	"context"
	"log/slog"
)

// Observer is told about every mutation that was applied successfully.
type Observer interface {
	Observe(ctx context.Context, changes []Change)
}

// Observed decorates a Store so that every successful mutation is reported to an Observer.
type Observed struct {
	Store
	observer Observer
}

func WithObserver(store Store, observer Observer) Store {
	if observer == nil {
		return store
	}
	return &Observed{Store: store, observer: observer}
}

func (o *Observed) Write(ctx context.Context, path Path, fields map[string]any, merge bool) error {
	if err := o.Store.Write(ctx, path, fields, merge); err != nil {
		return err
	}
	o.emit(ctx, []Change{{Kind: OpSet, Path: path, Data: o.postImage(ctx, path, fields, merge)}})
	return nil
}

func (o *Observed) Delete(ctx context.Context, path Path) error {
	before := o.preImage(ctx, path)
	if err := o.Store.Delete(ctx, path); err != nil {
		return err
	}
	o.emit(ctx, []Change{{Kind: OpDelete, Path: path, Data: before}})
	return nil
}

func (o *Observed) Commit(ctx context.Context, batch *Batch) error {
	ops := batch.Ops()
	before := make(map[Path]map[string]any)
	for _, op := range ops {
		if op.Kind == OpDelete {
			before[op.Path] = o.preImage(ctx, op.Path)
		}
	}
	if err := o.Store.Commit(ctx, batch); err != nil {
		return err
	}
	changes := make([]Change, 0, len(ops))
	for _, op := range ops {
		switch op.Kind {
		case OpDeleteWhere:
			changes = append(changes, Change{Kind: op.Kind, Path: Path{Collection: op.Collection}, Data: op.Filter.AsMap()})
		case OpDelete:
			changes = append(changes, Change{Kind: op.Kind, Path: op.Path, Data: before[op.Path]})
		default:
			changes = append(changes, Change{Kind: op.Kind, Path: op.Path, Data: o.postImage(ctx, op.Path, op.Fields, op.Merge)})
		}
	}
	o.emit(ctx, changes)
	return nil
}

// postImage returns the full document after a merge write, or the written fields.
func (o *Observed) postImage(ctx context.Context, path Path, fields map[string]any, merge bool) map[string]any {
	if merge {
		if doc, err := o.Store.Get(ctx, path); err == nil {
			return doc.Data
		}
	}
	return CloneData(fields)
}

func (o *Observed) preImage(ctx context.Context, path Path) map[string]any {
	doc, err := o.Store.Get(ctx, path)
	if err != nil {
		return nil
	}
	return doc.Data
}

func (o *Observed) emit(ctx context.Context, changes []Change) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("docstore observer panic", slog.Any("error", r))
		}
	}()
	o.observer.Observe(ctx, changes)
}
