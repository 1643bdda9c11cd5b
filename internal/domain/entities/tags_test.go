package entities

import (
	"reflect"
	"testing"
)

func TestNormalizeTag(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"#art", "#art"},
		{"#ART", "#art"},
		{"art", "#art"},
		{"  #Art  ", "#art"},
		{"##art", "#art"},
		{"# art", "#art"},
		{"#", ""},
		{"   ", ""},
		{"", ""},
		{"#Street Food", "#street food"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := NormalizeTag(tt.in); got != tt.want {
				t.Errorf("NormalizeTag(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeTags(t *testing.T) {
	got := NormalizeTags([]string{"#Music", "music", " #art", "", "#"})
	want := []string{"#art", "#music"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NormalizeTags() = %v, want %v", got, want)
	}

	if got := NormalizeTags(nil); got == nil || len(got) != 0 {
		t.Errorf("NormalizeTags(nil) = %#v, want empty non-nil slice", got)
	}
}

func TestTagSet_Intersect(t *testing.T) {
	requester := NewTagSet([]string{"#ART", "#music"})

	got := requester.Intersect([]string{"#food", "#art"})
	if !reflect.DeepEqual(got, []string{"#art"}) {
		t.Errorf("Intersect() = %v, want [#art]", got)
	}

	if got := requester.Intersect([]string{"#hiking"}); len(got) != 0 {
		t.Errorf("expected empty intersection, got %v", got)
	}

	if got := NewTagSet(nil).Intersect([]string{"#art"}); len(got) != 0 {
		t.Errorf("expected empty intersection for empty set, got %v", got)
	}
}
