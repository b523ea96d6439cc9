// Copyright 2024 The Firmo Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package runner

import (
	"github.com/greggh/firmo/async"
	"github.com/greggh/firmo/registry"
)

// T is the richer per-test handle test bodies registered through It
// receive: the registry.Context plus, for async tests, the active
// async.Task. Async is nil for synchronous tests.
type T struct {
	*registry.Context
	Async *async.Task
}

// Body is the richer test body signature used by It/FIt.
type Body func(*T) error

func wrap(body Body) registry.Body {
	return func(rc *registry.Context) error {
		t, _ := rc.Runtime.(*T)
		if t == nil {
			t = &T{Context: rc}
		}
		return body(t)
	}
}

// It registers a test leaf whose body receives a *T instead of the
// bare *registry.Context, giving it access to the async.Task when the
// test is async.
func It(name string, body Body, opts ...registry.Option) *registry.Block {
	return registry.It(name, wrap(body), opts...)
}

// FIt registers a focused test with the richer *T body signature.
func FIt(name string, body Body, opts ...registry.Option) *registry.Block {
	return registry.FIt(name, wrap(body), opts...)
}
