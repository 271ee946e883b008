package domain

import (
	"reflect"
	"testing"
)

func TestChangedLineSetLinesForPathSubstring(t *testing.T) {
	set := NewChangedLineSet()
	set.Put("diff --git a/src/main/java/com/acme/Foo.java b/src/main/java/com/acme/Foo.java", []int{1, 2})
	set.Put("diff --git a/src/main/java/com/acme/FooBar.java b/src/main/java/com/acme/FooBar.java", []int{7})

	lines, ok := set.LinesForPath("com/acme/FooBar")
	if !ok || !reflect.DeepEqual(lines, []int{7}) {
		t.Fatalf("expected [7], got %v (%v)", lines, ok)
	}

	// substring matching returns the first header in insertion order
	lines, ok = set.LinesForPath("com/acme/Foo")
	if !ok || !reflect.DeepEqual(lines, []int{1, 2}) {
		t.Fatalf("expected [1 2], got %v (%v)", lines, ok)
	}

	if _, ok := set.LinesForPath("com/acme/Baz"); ok {
		t.Fatal("expected no match")
	}
}

func TestChangedLineSetKeepsHeaderOrder(t *testing.T) {
	set := NewChangedLineSet()
	set.Put("diff --git a/b b/b", []int{0})
	set.Put("diff --git a/a b/a", []int{1})
	set.Put("diff --git a/b b/b", []int{3})

	if got := set.Headers(); !reflect.DeepEqual(got, []string{"diff --git a/b b/b", "diff --git a/a b/a"}) {
		t.Fatalf("unexpected headers %v", got)
	}
	if lines, _ := set.Lines("diff --git a/b b/b"); !reflect.DeepEqual(lines, []int{0, 3}) {
		t.Fatalf("expected appended lines, got %v", lines)
	}
	if set.Len() != 2 || set.TotalLines() != 3 || set.IsEmpty() {
		t.Fatalf("unexpected size: len=%d total=%d", set.Len(), set.TotalLines())
	}
}

func TestZeroChangedLineSetIsUsable(t *testing.T) {
	var set ChangedLineSet
	if !set.IsEmpty() {
		t.Fatal("zero value should be empty")
	}
	set.Put("diff --git a/x b/x", nil)
	if set.IsEmpty() {
		t.Fatal("header with no lines still counts as a section")
	}
}
