package refs

import (
	"fmt"
	"testing"
)

func TestExtract_Basic(t *testing.T) {
	doc := `A<ref>First</ref>B<ref name="x" />C<ref>Third</ref>`
	editable, m := Extract(doc)
	if editable != "A[ref1]B[ref2]C[ref3]" {
		t.Errorf("editable = %q", editable)
	}
	if len(m) != 3 {
		t.Fatalf("len(refs) = %d, want 3", len(m))
	}
	if m["ref1"] != "<ref>First</ref>" {
		t.Errorf("ref1 = %q", m["ref1"])
	}
	if m["ref2"] != `<ref name="x" />` {
		t.Errorf("ref2 = %q", m["ref2"])
	}
	if m["ref3"] != "<ref>Third</ref>" {
		t.Errorf("ref3 = %q", m["ref3"])
	}
}

func TestExtract_NoTags(t *testing.T) {
	editable, m := Extract("Plain text.")
	if editable != "Plain text." {
		t.Errorf("editable = %q", editable)
	}
	if len(m) != 0 {
		t.Errorf("refs = %v, want empty", m)
	}
}

func TestExtract_DuplicateContentDistinctKeys(t *testing.T) {
	editable, m := Extract("A<ref>Same</ref>B<ref>Same</ref>C")
	if editable != "A[ref1]B[ref2]C" {
		t.Errorf("editable = %q", editable)
	}
	if m["ref1"] != "<ref>Same</ref>" || m["ref2"] != "<ref>Same</ref>" {
		t.Errorf("refs = %v", m)
	}
}

func TestExtract_UnterminatedTagInert(t *testing.T) {
	editable, m := Extract("Text <ref>Unclosed")
	if editable != "Text <ref>Unclosed" {
		t.Errorf("editable = %q", editable)
	}
	if len(m) != 0 {
		t.Errorf("refs = %v, want empty", m)
	}
}

func TestExtract_UnterminatedOpenTag(t *testing.T) {
	editable, m := Extract(`broken <ref name="x`)
	if editable != `broken <ref name="x` {
		t.Errorf("editable = %q", editable)
	}
	if len(m) != 0 {
		t.Errorf("refs = %v, want empty", m)
	}
}

func TestExtract_CaseInsensitiveName(t *testing.T) {
	editable, m := Extract("A<REF>x</ReF>B")
	if editable != "A[ref1]B" {
		t.Errorf("editable = %q", editable)
	}
	if m["ref1"] != "<REF>x</ReF>" {
		t.Errorf("ref1 = %q, exact original casing must be preserved", m["ref1"])
	}
}

func TestExtract_AttributeValueWithAngleBracket(t *testing.T) {
	doc := `<ref name="a>b">cite</ref> tail`
	editable, m := Extract(doc)
	if editable != "[ref1] tail" {
		t.Errorf("editable = %q", editable)
	}
	if m["ref1"] != `<ref name="a>b">cite</ref>` {
		t.Errorf("ref1 = %q", m["ref1"])
	}
}

func TestExtract_AdjacentAndMultiline(t *testing.T) {
	doc := "<ref>a</ref><ref>\nmulti\nline\n</ref>"
	editable, m := Extract(doc)
	if editable != "[ref1][ref2]" {
		t.Errorf("editable = %q", editable)
	}
	if m["ref2"] != "<ref>\nmulti\nline\n</ref>" {
		t.Errorf("ref2 = %q", m["ref2"])
	}
}

func TestExtract_DoesNotMatchOtherTags(t *testing.T) {
	doc := "<references/> and <reflist>x</reflist>"
	editable, m := Extract(doc)
	if editable != doc {
		t.Errorf("editable = %q", editable)
	}
	if len(m) != 0 {
		t.Errorf("refs = %v, want empty", m)
	}
}

func TestExtract_ClosingTagWithWhitespace(t *testing.T) {
	doc := "x<ref>cite</ref >y"
	editable, m := Extract(doc)
	if editable != "x[ref1]y" {
		t.Errorf("editable = %q", editable)
	}
	if m["ref1"] != "<ref>cite</ref >" {
		t.Errorf("ref1 = %q", m["ref1"])
	}
}

func TestRestore_Basic(t *testing.T) {
	m := map[string]string{
		"ref1": "<ref>World</ref>",
		"ref2": `<ref name="x">X</ref>`,
	}
	got := Restore("Hello[ref1] and [ref2]!", m)
	want := `Hello<ref>World</ref> and <ref name="x">X</ref>!`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRestore_UnknownPlaceholderPreserved(t *testing.T) {
	got := Restore("Hello [ref99]", map[string]string{"ref1": "<ref>X</ref>"})
	if got != "Hello [ref99]" {
		t.Errorf("got %q", got)
	}
}

func TestRestore_EmptyMap(t *testing.T) {
	got := Restore("keep [ref1] as is", nil)
	if got != "keep [ref1] as is" {
		t.Errorf("got %q", got)
	}
}

func TestRestore_NonPlaceholderBracketsUntouched(t *testing.T) {
	in := "[[wikilink]] [refx] [ref] [ ref1 ]"
	got := Restore(in, map[string]string{"ref1": "<ref>X</ref>"})
	if got != in {
		t.Errorf("got %q", got)
	}
}

func TestRoundTrip(t *testing.T) {
	docs := []string{
		"",
		"no refs here",
		"A<ref>First</ref>B<ref name=\"x\" />C<ref>Third</ref>",
		"<ref>only</ref>",
		"dup <ref>s</ref> dup <ref>s</ref>",
		"adjacent<ref>a</ref><ref>b</ref>end",
		"multi<ref name='q'>\nline one\nline two\n</ref>tail",
		"messy <ReF  Name = \"A\"  >keep   spacing</REF  > done",
		"self <ref name=\"x\"/> closing",
		"broken <ref>unclosed stays",
		"unicode Ωμέγα<ref>αβγ</ref>末尾",
	}
	for i, doc := range docs {
		t.Run(fmt.Sprintf("case_%d", i), func(t *testing.T) {
			editable, m := Extract(doc)
			got := Restore(editable, m)
			if got != doc {
				t.Errorf("round trip failed:\n doc      = %q\n editable = %q\n restored = %q", doc, editable, got)
			}
		})
	}
}

func TestExtract_ManyRefsStableNumbering(t *testing.T) {
	doc := ""
	for i := 0; i < 12; i++ {
		doc += fmt.Sprintf("t%d<ref>c%d</ref>", i, i)
	}
	editable, m := Extract(doc)
	if len(m) != 12 {
		t.Fatalf("len(refs) = %d, want 12", len(m))
	}
	// ref10..ref12 must not collide with ref1 during restore.
	if got := Restore(editable, m); got != doc {
		t.Errorf("round trip with double-digit keys failed:\n%q\n%q", doc, got)
	}
	if m["ref12"] != "<ref>c11</ref>" {
		t.Errorf("ref12 = %q", m["ref12"])
	}
}
