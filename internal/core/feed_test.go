// Released under an MIT license. See LICENSE.

package core

import "testing"

func TestFeedSharedPosition(t *testing.T) {
	rt := NewRuntime()

	b := Block(testArray(rt, Integer(1), Integer(2), Integer(3)))

	feed := rt.MakeVarargs(&b, ParamHardQuote)

	var other Cell

	other.Prep()
	other.Copy(&feed)

	var out Cell

	out.Prep()

	// Consumption through either view advances the one shared position.
	if rt.FeedTake(&feed, &out); out.Int() != 1 {
		t.Fatalf("first take = %s", rt.Mold(&out))
	}

	if rt.FeedTake(&other, &out); out.Int() != 2 {
		t.Fatalf("take through the copy = %s", rt.Mold(&out))
	}

	if rt.FeedTake(&feed, &out); out.Int() != 3 {
		t.Fatalf("third take = %s", rt.Mold(&out))
	}

	done, sig := rt.FeedTail(&feed, &out)
	if sig != SigOK || !done {
		t.Fatal("feed is not exhausted")
	}
}

func TestFeedTakeEvaluates(t *testing.T) {
	rt := NewRuntime()

	b := Block(testArray(rt, libWord(rt, "add"), Integer(2), Integer(3)))

	feed := rt.MakeVarargs(&b, ParamNormal)

	var out Cell

	out.Prep()

	if sig := rt.FeedTake(&feed, &out); sig != SigOK {
		t.Fatalf("take failed: %s", rt.Mold(&out))
	}

	if out.Int() != 5 {
		t.Fatalf("evaluating take = %s", rt.Mold(&out))
	}
}

func TestFeedTakeExhaustedYieldsEnd(t *testing.T) {
	rt := NewRuntime()

	b := Block(testArray(rt, Integer(1)))

	feed := rt.MakeVarargs(&b, ParamHardQuote)

	var out Cell

	out.Prep()

	rt.FeedTake(&feed, &out)

	if sig := rt.FeedTake(&feed, &out); sig != SigOK || !out.IsEnd() {
		t.Fatalf("exhausted take = %s", rt.Mold(&out))
	}
}

func TestFeedFirstRequiresHardQuote(t *testing.T) {
	rt := NewRuntime()

	b := Block(testArray(rt, Integer(1)))

	feed := rt.MakeVarargs(&b, ParamNormal)

	var out Cell

	out.Prep()

	if sig := rt.FeedFirst(&feed, &out); sig != SigThrown {
		t.Fatal("lookahead on an evaluating feed did not fail")
	}

	if out.ErrorID() != ErrVarargsNoLook {
		t.Fatalf("unexpected failure: %s", rt.Mold(&out))
	}
}

func TestFeedFirstDoesNotConsume(t *testing.T) {
	rt := NewRuntime()

	b := Block(testArray(rt, Integer(7)))

	feed := rt.MakeVarargs(&b, ParamHardQuote)

	var out Cell

	out.Prep()

	rt.FeedFirst(&feed, &out)
	rt.FeedFirst(&feed, &out)

	if out.Int() != 7 {
		t.Fatalf("first = %s", rt.Mold(&out))
	}

	if rt.FeedTake(&feed, &out); out.Int() != 7 {
		t.Fatal("lookahead consumed the feed")
	}
}

func TestFrameFeedGoesStale(t *testing.T) {
	rt := NewRuntime()

	take := libValue(t, rt, "take")

	// Capture a frame-backed feed by returning it from the function.
	params := []Cell{
		TypesetCell(rt.Intern("args"), AnyValueBits, ParamNormal, paramFlagVariadic),
	}

	body := testArray(rt, Word(rt.Intern("args")))

	p := rt.MakeParamlist(params, &funcInfo{body: body})
	rt.BindRelative(body, p)
	rt.Heap.Manage(p)

	var feed Cell

	if sig := rt.DoVa(&feed, Function(p), Integer(1)); sig != SigOK {
		t.Fatalf("capture failed: %s", rt.Mold(&feed))
	}

	if feed.Kind() != KindVarargs {
		t.Fatalf("captured %s, want a feed", feed.Kind().Name())
	}

	// The frame has returned; consuming the feed must fail, not crash.
	var out Cell

	if sig := rt.DoVa(&out, take, feed); sig != SigThrown {
		t.Fatal("stale feed take did not fail")
	}

	if out.ErrorID() != ErrVarargsNoStack {
		t.Fatalf("unexpected failure: %s", rt.Mold(&out))
	}
}

func TestFeedHardQuoteTakesBar(t *testing.T) {
	rt := NewRuntime()

	b := Block(testArray(rt, Bar(), Integer(5)))
	feed := rt.MakeVarargs(&b, ParamHardQuote)

	var out Cell

	out.Prep()

	// A hard-quoting feed sees the barrier as a value.
	if sig := rt.FeedTake(&feed, &out); sig != SigOK {
		t.Fatalf("take failed: %s", rt.Mold(&out))
	}

	if out.Kind() != KindBar {
		t.Fatalf("took %s, want a bar", out.Kind().Name())
	}

	if sig := rt.FeedTake(&feed, &out); sig != SigOK || out.Int() != 5 {
		t.Fatalf("second take = %s", rt.Mold(&out))
	}
}

func TestFeedEvaluatingEndsAtBar(t *testing.T) {
	rt := NewRuntime()

	b := Block(testArray(rt, Bar(), Integer(5)))
	feed := rt.MakeVarargs(&b, ParamNormal)

	var out Cell

	out.Prep()

	if sig := rt.FeedTake(&feed, &out); sig != SigOK {
		t.Fatalf("take failed: %s", rt.Mold(&out))
	}

	if !out.IsEnd() {
		t.Fatalf("took %s past a barrier", rt.Mold(&out))
	}
}
