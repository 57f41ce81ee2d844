// Released under an MIT license. See LICENSE.

package core

// Binding. An any-word cell's binding field is a weak back-reference to a
// varlist (direct binding) or to a paramlist (relative binding, resolved
// through the executing frame's specifier). The word's idx field holds the
// slot index.

// BindWord binds the word cell c to the context varlist ctx if the canon
// is present there. Returns true on success.
func BindWord(c *Cell, ctx *Series) bool {
	if !c.IsAnyWord() {
		panic(c.kind.Name() + " cannot be bound")
	}

	i := ctx.FindField(c.word)
	if i == 0 {
		return false
	}

	c.binding = ctx
	c.idx = i

	return true
}

// BindWordRelative binds the word cell c to parameter slot i of the
// paramlist p. Resolution requires a specifier at lookup time.
func BindWordRelative(c *Cell, p *Series, i int) {
	c.binding = p
	c.idx = i
}

// Bind walks the array deeply and binds every any-word whose canon exists
// in ctx. With addNew set, unknown set-words grow the context first (the
// binding pattern used when code is prepared for a module or object).
func (rt *Runtime) Bind(arr *Series, ctx *Series, addNew bool) {
	for i, n := 0, arr.Len(); i < n; i++ {
		c := arr.At(i)

		switch {
		case c.IsAnyWord():
			if addNew && c.kind == KindSetWord && ctx.FindField(c.word) == 0 {
				void := Void()
				rt.AddField(ctx, c.word, &void)
			}

			BindWord(c, ctx)
		case c.IsAnyArray():
			rt.Bind(c.ser, ctx, addNew)
		}
	}
}

// BindRelative binds every word in the body matching a parameter of p to
// that parameter's slot.
func (rt *Runtime) BindRelative(body *Series, p *Series) {
	for i, n := 0, body.Len(); i < n; i++ {
		c := body.At(i)

		switch {
		case c.IsAnyWord():
			for j, m := 1, p.Len(); j < m; j++ {
				if p.At(j).word == c.word {
					BindWordRelative(c, p, j)

					break
				}
			}
		case c.IsAnyArray():
			rt.BindRelative(c.ser, p)
		}
	}
}

// GetVar resolves the word cell c to its variable slot. The specifier
// resolves relative bindings; it is the varlist of the frame the code is
// executing within, or nil for specified code. The returned error id is
// empty on success.
func GetVar(c *Cell, specifier *Series) (*Cell, string) {
	b := c.binding
	if b == nil {
		return nil, ErrNotBound
	}

	if b.flags&SFlagFreed != 0 || b.Inaccessible() {
		return nil, ErrInaccessible
	}

	if b.flags&SFlagVarlist != 0 {
		return b.Slot(c.idx), ""
	}

	if b.flags&SFlagParamlist != 0 {
		// Relative binding: the slot lives in the frame executing this
		// paramlist, designated by the specifier.
		if specifier == nil || specifier.link != b {
			return nil, ErrNoStack
		}

		return specifier.Slot(c.idx), ""
	}

	return nil, ErrNotBound
}

// SetVar resolves c like GetVar and assigns v to the slot.
func SetVar(c *Cell, specifier *Series, v *Cell) string {
	slot, errid := GetVar(c, specifier)
	if errid != "" {
		return errid
	}

	if slot.flags&FlagProtected != 0 {
		return ErrProtectedWord
	}

	slot.Copy(v)

	return ""
}
