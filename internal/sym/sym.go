// Released under an MIT license. See LICENSE.

// Package sym provides ren's interned symbol canons.
//
// Every spelling of a word maps to a single canon. Comparison of words is
// case-insensitive, so "append", "Append", and "APPEND" all reference the
// same canon. The canon records the spelling first seen and a stable bind
// index assigned at interning time.
package sym

import (
	"strings"
	"sync"

	"github.com/michaelmacinnis/adapted"
)

// T (canon) is the single interned representation of a symbol.
type T struct {
	name string
	bind int
}

type canon = T

// Table interns symbols. Canons are never removed; the garbage collector
// treats the table as unsweepable for the lifetime of the runtime.
type Table struct {
	mutex  sync.RWMutex
	canons map[string]*canon
	order  []*canon
}

// NewTable creates an empty symbol table.
func NewTable() *Table {
	return &Table{canons: map[string]*canon{}}
}

// Bind returns the canon's stable bind index.
func (c *canon) Bind() int {
	return c.bind
}

// Equal returns true if o is the same canon as c.
func (c *canon) Equal(o *canon) bool {
	return c == o
}

// Literal returns the literal representation of the canon c.
func (c *canon) Literal() string {
	for _, r := range c.name {
		if r == ' ' || r == '"' {
			return adapted.CanonicalString(c.name)
		}
	}

	return c.name
}

// Name returns the spelling recorded for the canon c.
func (c *canon) Name() string {
	return c.name
}

// String returns the text of the canon c.
func (c *canon) String() string {
	return c.name
}

// All calls fn for every canon in interning order.
func (t *Table) All(fn func(*canon)) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	for _, c := range t.order {
		fn(c)
	}
}

// Intern returns the canon for the spelling s, creating it if required.
func (t *Table) Intern(s string) *canon {
	k := strings.ToLower(s)

	t.mutex.RLock()
	c, ok := t.canons[k]
	t.mutex.RUnlock()

	if ok {
		return c
	}

	t.mutex.Lock()
	defer t.mutex.Unlock()

	if c, ok = t.canons[k]; ok {
		return c
	}

	c = &canon{name: s, bind: len(t.order)}

	t.canons[k] = c
	t.order = append(t.order, c)

	return c
}

// Size returns the number of interned canons.
func (t *Table) Size() int {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	return len(t.order)
}
