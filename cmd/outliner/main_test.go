package main

import (
	"reflect"
	"testing"
)

func TestRewriteDirectPageArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "no args",
			in:   []string{"outliner"},
			want: []string{"outliner"},
		},
		{
			name: "page id first token",
			in:   []string{"outliner", "page-abc123"},
			want: []string{"outliner", "--page", "page-abc123"},
		},
		{
			name: "page id after value flag",
			in:   []string{"outliner", "--data-dir", "./tmp-test", "page-abc123"},
			want: []string{"outliner", "--data-dir", "./tmp-test", "--page", "page-abc123"},
		},
		{
			name: "page id after equals flag",
			in:   []string{"outliner", "--data-dir=./tmp-test", "page-abc123"},
			want: []string{"outliner", "--data-dir=./tmp-test", "--page", "page-abc123"},
		},
		{
			name: "page id after bool flag",
			in:   []string{"outliner", "--pretty", "page-abc123"},
			want: []string{"outliner", "--pretty", "--page", "page-abc123"},
		},
		{
			name: "page id after double dash",
			in:   []string{"outliner", "--server", "http://x", "--", "page-abc123"},
			want: []string{"outliner", "--server", "http://x", "--page", "page-abc123"},
		},
		{
			name: "value of page flag not rewritten",
			in:   []string{"outliner", "--page", "page-abc123"},
			want: []string{"outliner", "--page", "page-abc123"},
		},
		{
			name: "subcommand not rewritten",
			in:   []string{"outliner", "notes", "tree", "page-abc123"},
			want: []string{"outliner", "notes", "tree", "page-abc123"},
		},
		{
			name: "bare prefix not rewritten",
			in:   []string{"outliner", "page-"},
			want: []string{"outliner", "page-"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := rewriteDirectPageArgs(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("rewriteDirectPageArgs:\n got: %#v\nwant: %#v", got, tt.want)
			}
		})
	}
}
