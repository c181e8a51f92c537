package input

import (
	"context"

	"outliner-cli/internal/editor"
)

// Dispatcher carries an op through its gateway calls and settlement. done is called on the
// controller's goroutine once the op (and any reload it asked for) has settled.
type Dispatcher interface {
	Dispatch(ctx context.Context, op *editor.Op, done func(editor.Outcome))
}

// SyncDispatcher runs each op inline.
type SyncDispatcher struct {
	Editor *editor.Editor
}

func (d SyncDispatcher) Dispatch(ctx context.Context, op *editor.Op, done func(editor.Outcome)) {
	out := d.Editor.Run(ctx, op)
	if done != nil {
		done(out)
	}
}
