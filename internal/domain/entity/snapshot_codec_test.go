package entity

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalSnapshot_Format(t *testing.T) {
	s := Snapshot{
		"ranto28":     {{ID: "post_2", Title: "둘"}},
		"chamberine3": nil,
	}

	b, err := MarshalSnapshot(s)
	require.NoError(t, err)

	want := `{
  "chamberine3": [],
  "ranto28": [
    {
      "id": "post_2",
      "title": "둘"
    }
  ]
}
`
	assert.Equal(t, want, string(b))
}

func TestUnmarshalSnapshot(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Snapshot
		wantErr bool
	}{
		{name: "empty input", in: "", want: Snapshot{}},
		{name: "whitespace", in: " \n", want: Snapshot{}},
		{name: "null", in: "null", want: Snapshot{}},
		{
			name: "records",
			in:   `{"blog":[{"id":"post_1","title":"A"},{"id":"post_2","title":"B"}]}`,
			want: Snapshot{"blog": {{ID: "post_1", Title: "A"}, {ID: "post_2", Title: "B"}}},
		},
		{name: "truncated", in: `{"blog":[{"id":"post_1"`, wantErr: true},
		{name: "wrong shape", in: `["post_1"]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := UnmarshalSnapshot([]byte(tt.in))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("UnmarshalSnapshot() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSnapshotCodec_PreservesRecordOrder(t *testing.T) {
	orig := Snapshot{"blog": {{ID: "post_9", Title: "z"}, {ID: "post_1", Title: "a"}}}

	b, err := MarshalSnapshot(orig)
	require.NoError(t, err)
	got, err := UnmarshalSnapshot(b)
	require.NoError(t, err)

	assert.Equal(t, orig, got)
}
