package document

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParsePointer(t *testing.T) {
	tests := []struct {
		in   string
		want Pointer
	}{
		{"", Pointer{}},
		{"/", Pointer{""}},
		{"/a", Pointer{"a"}},
		{"/a/b/2/c", Pointer{"a", "b", "2", "c"}},
		{"/a~1b", Pointer{"a/b"}},
		{"/m~0n", Pointer{"m~n"}},
		{"/~01", Pointer{"~1"}},
		{"/a//b", Pointer{"a", "", "b"}},
	}

	for _, tt := range tests {
		got, err := ParsePointer(tt.in)
		if err != nil {
			t.Errorf("ParsePointer(%q) error: %v", tt.in, err)
			continue
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("ParsePointer(%q) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
}

func TestParsePointer_Invalid(t *testing.T) {
	for _, in := range []string{"a/b", "/a~", "/a~2b", "x"} {
		if _, err := ParsePointer(in); !errors.Is(err, ErrInvalidPointer) {
			t.Errorf("ParsePointer(%q) error = %v, want ErrInvalidPointer", in, err)
		}
	}
}

func TestPointer_StringRoundTrip(t *testing.T) {
	for _, in := range []string{"", "/a", "/a~1b/c~0d", "/0/1/-"} {
		p := MustParsePointer(in)
		if got := p.String(); got != in {
			t.Errorf("String() = %q, want %q", got, in)
		}
	}
}

func TestPointer_IsAncestorOf(t *testing.T) {
	tests := []struct {
		p, q string
		want bool
	}{
		{"/a", "/a/b", true},
		{"/a", "/a/b/c", true},
		{"", "/a", true},
		{"/a", "/a", false},
		{"/a", "/ab", false},
		{"/a", "/z", false},
		{"/a/b", "/a", false},
	}

	for _, tt := range tests {
		got := MustParsePointer(tt.p).IsAncestorOf(MustParsePointer(tt.q))
		if got != tt.want {
			t.Errorf("%q.IsAncestorOf(%q) = %v, want %v", tt.p, tt.q, got, tt.want)
		}
	}
}

func TestPointer_ParentChild(t *testing.T) {
	p := MustParsePointer("/a/b")
	if got := p.Parent().String(); got != "/a" {
		t.Errorf("Parent() = %q, want /a", got)
	}
	if got := p.Child("c").String(); got != "/a/b/c" {
		t.Errorf("Child() = %q, want /a/b/c", got)
	}

	// Appending to a parent must not clobber the original.
	sib := p.Parent().Child("x")
	if p.String() != "/a/b" || sib.String() != "/a/x" {
		t.Errorf("aliasing: p = %q, sibling = %q", p, sib)
	}

	if !Pointer(nil).Parent().IsRoot() {
		t.Error("root parent should be root")
	}
}

func TestArrayIndex(t *testing.T) {
	tests := []struct {
		tok    string
		n      int
		want   int
		wantOK bool
	}{
		{"0", 3, 0, true},
		{"12", 3, 12, true},
		{"-", 3, 3, true},
		{"01", 3, 0, false},
		{"", 3, 0, false},
		{"a", 3, 0, false},
		{"+1", 3, 0, false},
	}

	for _, tt := range tests {
		got, ok := arrayIndex(tt.tok, tt.n)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("arrayIndex(%q, %d) = %d, %v; want %d, %v", tt.tok, tt.n, got, ok, tt.want, tt.wantOK)
		}
	}
}
