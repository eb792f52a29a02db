// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package executor

import "context"

// RunPolicy is the work a run performs.
// BeforeFirst and AfterLast run once in the orchestrator. BeforeBatch and AfterBatch wrap every batch
// in whichever process handles it. An error from a hook aborts the run.
type RunPolicy interface {
	BeforeFirst(ctx context.Context) error
	AfterLast(ctx context.Context) error
	BeforeBatch(ctx context.Context, items []string) error
	AfterBatch(ctx context.Context, items []string) error
	ProcessItem(ctx context.Context, item string) error
}

// NopHooks can be embedded to get no-op lifecycle hooks, leaving only ProcessItem to implement.
type NopHooks struct{}

func (NopHooks) BeforeFirst(context.Context) error           { return nil }
func (NopHooks) AfterLast(context.Context) error             { return nil }
func (NopHooks) BeforeBatch(context.Context, []string) error { return nil }
func (NopHooks) AfterBatch(context.Context, []string) error  { return nil }

var _ RunPolicy = PolicyFuncs{}

// PolicyFuncs builds a RunPolicy from functions. Nil fields do nothing.
type PolicyFuncs struct {
	BeforeFirstFunc func(ctx context.Context) error
	AfterLastFunc   func(ctx context.Context) error
	BeforeBatchFunc func(ctx context.Context, items []string) error
	AfterBatchFunc  func(ctx context.Context, items []string) error
	ProcessItemFunc func(ctx context.Context, item string) error
}

func (p PolicyFuncs) BeforeFirst(ctx context.Context) error {
	if p.BeforeFirstFunc == nil {
		return nil
	}

	return p.BeforeFirstFunc(ctx)
}

func (p PolicyFuncs) AfterLast(ctx context.Context) error {
	if p.AfterLastFunc == nil {
		return nil
	}

	return p.AfterLastFunc(ctx)
}

func (p PolicyFuncs) BeforeBatch(ctx context.Context, items []string) error {
	if p.BeforeBatchFunc == nil {
		return nil
	}

	return p.BeforeBatchFunc(ctx, items)
}

func (p PolicyFuncs) AfterBatch(ctx context.Context, items []string) error {
	if p.AfterBatchFunc == nil {
		return nil
	}

	return p.AfterBatchFunc(ctx, items)
}

func (p PolicyFuncs) ProcessItem(ctx context.Context, item string) error {
	if p.ProcessItemFunc == nil {
		return nil
	}

	return p.ProcessItemFunc(ctx, item)
}
