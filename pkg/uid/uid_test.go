// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package uid

import "testing"

func TestUIDKind(t *testing.T) {
	table := New(0x0000000100000000)
	descriptor := New(0x0000000100000001)
	object := New(0x0000000900000001)
	smMethod := New(0x000000000000FF01)

	if !table.IsTable() || table.IsDescriptor() || table.IsObject() {
		t.Errorf("table UID classified wrong: %+v", table)
	}
	if descriptor.IsTable() || !descriptor.IsDescriptor() || descriptor.IsObject() {
		t.Errorf("descriptor UID classified wrong: %+v", descriptor)
	}
	if object.IsTable() || object.IsDescriptor() || !object.IsObject() {
		t.Errorf("object UID classified wrong: %+v", object)
	}
	if smMethod.IsTable() || smMethod.IsDescriptor() || !smMethod.IsObject() {
		t.Errorf("session manager method UID classified wrong: %+v", smMethod)
	}
}

func TestTableDescriptorRoundTrip(t *testing.T) {
	table := New(0x0000000100000000)
	descriptor := New(0x0000000100000001)

	got, ok := table.ToDescriptor()
	if !ok || got != descriptor {
		t.Fatalf("ToDescriptor() = %v, %v; want %v, true", got, ok, descriptor)
	}
	back, ok := descriptor.ToTable()
	if !ok || back != table {
		t.Fatalf("ToTable() = %v, %v; want %v, true", back, ok, table)
	}
}

func TestContainingTable(t *testing.T) {
	object := New(0x0000000900000001)
	descriptor := New(0x0000000100000001)
	want := New(0x0000000900000000)

	got, ok := object.ContainingTable()
	if !ok || got != want {
		t.Errorf("object.ContainingTable() = %v, %v; want %v, true", got, ok, want)
	}
	got, ok = descriptor.ContainingTable()
	if !ok || got != New(0x0000000100000000) {
		t.Errorf("descriptor.ContainingTable() = %v, %v", got, ok)
	}
	if _, ok := New(0x0000000100000000).ContainingTable(); ok {
		t.Errorf("table.ContainingTable() should report false")
	}
}

func TestRangeNth(t *testing.T) {
	base := New(1000)
	r := NewCountRange(base, 10, 1)
	if got, ok := r.Nth(0); !ok || got != base {
		t.Errorf("Nth(0) = %v, %v; want %v, true", got, ok, base)
	}
	if got, ok := r.Nth(9); !ok || got != New(1009) {
		t.Errorf("Nth(9) = %v, %v; want %v, true", got, ok, New(1009))
	}
	if _, ok := r.Nth(10); ok {
		t.Errorf("Nth(10) should be out of bounds")
	}
}

func TestRangeNthStepped(t *testing.T) {
	base := New(1000)
	r := NewCountRange(base, 10, 3)
	if got, ok := r.Nth(9); !ok || got != New(1000+27) {
		t.Errorf("Nth(9) = %v, %v; want %v, true", got, ok, New(1027))
	}
	if _, ok := r.Nth(10); ok {
		t.Errorf("Nth(10) should be out of bounds")
	}
}

func TestRangeContainsAndIndexOf(t *testing.T) {
	base := New(1000)
	r := NewCountRange(base, 10, 3)

	cases := []struct {
		u        UID
		contains bool
		idx      uint64
	}{
		{New(1000 - 3), false, 0},
		{New(1000 - 1), false, 0},
		{New(1000), true, 0},
		{New(1001), false, 0},
		{New(1003), true, 1},
		{New(1027), true, 9},
		{New(1028), false, 0},
		{New(1030), false, 0},
	}
	for _, c := range cases {
		if got := r.Contains(c.u); got != c.contains {
			t.Errorf("Contains(%v) = %v; want %v", c.u, got, c.contains)
		}
		idx, ok := r.IndexOf(c.u)
		if ok != c.contains {
			t.Errorf("IndexOf(%v) ok = %v; want %v", c.u, ok, c.contains)
		}
		if ok && idx != c.idx {
			t.Errorf("IndexOf(%v) = %v; want %v", c.u, idx, c.idx)
		}
	}
}

type fakeTable struct{}

func TestTypedRange(t *testing.T) {
	base := New(2000)
	r := NewTypedCountRange[fakeTable](base, 4, 1)
	u, ok := r.Nth(2)
	if !ok || u.UID != New(2002) {
		t.Fatalf("Nth(2) = %v, %v", u, ok)
	}
	if !r.Contains(u) {
		t.Errorf("range should contain its own Nth result")
	}
	if idx, ok := r.IndexOf(u); !ok || idx != 2 {
		t.Errorf("IndexOf = %v, %v; want 2, true", idx, ok)
	}
}
