// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package linear

import (
	"testing"
)

func TestBlend(t *testing.T) {
	var u V4
	r := V4{1, 0, 0, 1}
	g := V4{0, 1, 0, 1}
	b := V4{0, 0, 1, 1}
	if u.Blend(&r, &g, &b, 1, 0, 0); u != r {
		t.Fatalf("V4.Blend\nhave %v\nwant %v", u, r)
	}
	if u.Blend(&r, &g, &b, 0, 0, 1); u != b {
		t.Fatalf("V4.Blend\nhave %v\nwant %v", u, b)
	}
	if u.Blend(&r, &g, &b, 0.5, 0.25, 0.25); u != (V4{0.5, 0.25, 0.25, 1}) {
		t.Fatalf("V4.Blend\nhave %v\nwant [0.5 0.25 0.25 1]", u)
	}
	// Aliasing the destination must not matter.
	if r.Blend(&r, &g, &b, 0.5, 0.5, 0); r != (V4{0.5, 0.5, 0, 1}) {
		t.Fatalf("V4.Blend (aliased)\nhave %v\nwant [0.5 0.5 0 1]", r)
	}
}

func TestClamp(t *testing.T) {
	var u V4
	if u.Clamp(&V4{-1, 0.5, 2, 1}, 0, 1); u != (V4{0, 0.5, 1, 1}) {
		t.Fatalf("V4.Clamp\nhave %v\nwant [0 0.5 1 1]", u)
	}
	if u.Clamp(&V4{-3, -2, 2, 3}, -2, 2); u != (V4{-2, -2, 2, 2}) {
		t.Fatalf("V4.Clamp\nhave %v\nwant [-2 -2 2 2]", u)
	}
	v := V4{0.25, 1.5, -0.5, 1}
	if v.Clamp(&v, 0, 1); v != (V4{0.25, 1, 0, 1}) {
		t.Fatalf("V4.Clamp (aliased)\nhave %v\nwant [0.25 1 0 1]", v)
	}
}

func TestEdge(t *testing.T) {
	a := V2{0, 0}
	b := V2{4, 0}
	for _, x := range [...]struct {
		p    V2
		want float32
	}{
		{V2{0, 2}, 8},
		{V2{2, -1}, -4},
		{V2{2, 0}, 0},
	} {
		if e := Edge(&a, &b, &x.p); e != x.want {
			t.Fatalf("Edge(%v, %v, %v)\nhave %v\nwant %v", a, b, x.p, e, x.want)
		}
	}
	// Swapping the edge direction negates the area.
	p := V2{1, 3}
	if e, f := Edge(&a, &b, &p), Edge(&b, &a, &p); e != -f {
		t.Fatalf("Edge (reversed)\nhave %v\nwant %v", f, -e)
	}
}
