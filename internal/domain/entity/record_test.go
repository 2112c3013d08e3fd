package entity

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestRecord_PostNumber(t *testing.T) {
	assert.Equal(t, "224067772390", Record{ID: "post_224067772390"}.PostNumber())
	assert.Equal(t, "1", Record{ID: "post_1"}.PostNumber())
}

func TestDedupeRecords(t *testing.T) {
	tests := []struct {
		name string
		in   []Record
		want []Record
	}{
		{
			name: "no duplicates untouched",
			in:   []Record{{ID: "post_1", Title: "A"}, {ID: "post_2", Title: "B"}},
			want: []Record{{ID: "post_1", Title: "A"}, {ID: "post_2", Title: "B"}},
		},
		{
			name: "last title wins at first position",
			in: []Record{
				{ID: "post_1", Title: "old"},
				{ID: "post_2", Title: "B"},
				{ID: "post_1", Title: "new"},
			},
			want: []Record{{ID: "post_1", Title: "new"}, {ID: "post_2", Title: "B"}},
		},
		{
			name: "triple duplicate",
			in: []Record{
				{ID: "post_9", Title: "a"},
				{ID: "post_9", Title: "b"},
				{ID: "post_9", Title: "c"},
			},
			want: []Record{{ID: "post_9", Title: "c"}},
		},
		{
			name: "empty",
			in:   nil,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, DedupeRecords(tt.in)); diff != "" {
				t.Errorf("DedupeRecords() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSnapshot_Clone(t *testing.T) {
	orig := Snapshot{"blog": {{ID: "post_1", Title: "A"}}}
	cp := orig.Clone()
	cp["blog"][0].Title = "changed"
	cp["other"] = nil

	assert.Equal(t, "A", orig["blog"][0].Title)
	_, ok := orig["other"]
	assert.False(t, ok)
}

func TestSnapshot_SourceIDsAndCount(t *testing.T) {
	s := Snapshot{
		"zeta":  {{ID: "post_1", Title: "A"}},
		"alpha": {{ID: "post_2", Title: "B"}, {ID: "post_3", Title: "C"}},
		"empty": {},
	}

	assert.Equal(t, []string{"alpha", "empty", "zeta"}, s.SourceIDs())
	assert.Equal(t, 3, s.RecordCount())
}
