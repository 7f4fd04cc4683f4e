package repos

import "testing"

func TestListOptionsNormalized(t *testing.T) {
	cases := []struct {
		name     string
		in       ListOptions
		wantPage int
		wantSize int
	}{
		{"defaults", ListOptions{}, 1, 20},
		{"zero page", ListOptions{Page: 0, Size: 10}, 1, 10},
		{"negative page", ListOptions{Page: -3, Size: 10}, 1, 10},
		{"size clamped high", ListOptions{Page: 2, Size: 500}, 2, 100},
		{"size clamped low", ListOptions{Page: 2, Size: -1}, 2, 20},
		{"exact max", ListOptions{Page: 1, Size: 100}, 1, 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.in.Normalized()
			if got.Page != tc.wantPage {
				t.Fatalf("page: want=%d got=%d", tc.wantPage, got.Page)
			}
			if got.Size != tc.wantSize {
				t.Fatalf("size: want=%d got=%d", tc.wantSize, got.Size)
			}
		})
	}
}

func TestListOptionsOffset(t *testing.T) {
	opts := ListOptions{Page: 3, Size: 25}.Normalized()
	if opts.Offset() != 50 {
		t.Fatalf("offset: want=50 got=%d", opts.Offset())
	}
}

func TestListOptionsSortOrder(t *testing.T) {
	if got := (ListOptions{SortOrder: "ASC"}).Normalized().SortOrder; got != "asc" {
		t.Fatalf("sort order: want=asc got=%s", got)
	}
	if got := (ListOptions{SortOrder: "banana"}).Normalized().SortOrder; got != "desc" {
		t.Fatalf("sort order: want=desc got=%s", got)
	}
}
