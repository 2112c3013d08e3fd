package entity

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStrategyKind(t *testing.T) {
	tests := []struct {
		in      string
		want    StrategyKind
		wantErr bool
	}{
		{"", StrategyDefault, false},
		{"default", StrategyDefault, false},
		{"Alternate", StrategyAlternate, false},
		{" alternate ", StrategyAlternate, false},
		{"rss", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStrategyKind(tt.in)
			if tt.wantErr {
				var vErr *ValidationError
				require.True(t, errors.As(err, &vErr))
				assert.Equal(t, "strategy", vErr.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSource_Validate(t *testing.T) {
	t.Run("empty strategy normalized to default", func(t *testing.T) {
		s := &Source{ID: "blog", URL: "https://8.8.8.8/PostList.naver?blogId=blog"}
		require.NoError(t, s.Validate())
		assert.Equal(t, StrategyDefault, s.Strategy)
	})

	t.Run("missing id", func(t *testing.T) {
		s := &Source{URL: "https://8.8.8.8/"}
		err := s.Validate()
		assert.ErrorIs(t, err, ErrValidationFailed)
	})

	t.Run("id with slash", func(t *testing.T) {
		s := &Source{ID: "a/b", URL: "https://8.8.8.8/"}
		assert.Error(t, s.Validate())
	})

	t.Run("unknown strategy", func(t *testing.T) {
		s := &Source{ID: "blog", URL: "https://8.8.8.8/", Strategy: "json"}
		assert.Error(t, s.Validate())
	})

	t.Run("bad url", func(t *testing.T) {
		s := &Source{ID: "blog", URL: "ftp://example.com"}
		err := s.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "source blog")
	})
}

func TestSource_Name(t *testing.T) {
	assert.Equal(t, "Chamberine", Source{ID: "chamberine3", DisplayName: "Chamberine"}.Name())
	assert.Equal(t, "chamberine3", Source{ID: "chamberine3"}.Name())
}
