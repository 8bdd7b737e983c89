// Copyright (c) 2025 The Plume developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package storage

import (
	"github.com/plumenetwork/plume/kv"
)

// Context carries the backing store shared by all typed containers of one
// staking deployment. Every container derives its keys from a fixed slot so
// the layout stays stable across versions.
type Context struct {
	store kv.GetPutter
}

// NewContext creates a storage context over the given store.
func NewContext(store kv.GetPutter) *Context {
	return &Context{store: store}
}

// Store returns the underlying store.
func (c *Context) Store() kv.GetPutter {
	return c.store
}

// NewBatch starts an atomic write batch against the underlying store.
func (c *Context) NewBatch() kv.Batch {
	return c.store.NewBatch()
}
