package conn_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/rotor/internal/conn"
	rotorerrors "github.com/systmms/rotor/internal/errors"
)

func TestPartitionKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		id      string
		want    string
		wantErr bool
	}{
		{name: "title_id", id: "tt0133093", want: "3"},
		{name: "name_id", id: "nm0000704", want: "4"},
		{name: "suffix_ending_in_zero", id: "tt0068640", want: "0"},
		{name: "suffix_beyond_uint64", id: "tt184467440737095516159", want: "9"},
		{name: "very_long_suffix", id: "nm" + strings.Repeat("7", 64), want: "7"},
		{name: "too_short", id: "xx1", wantErr: true},
		{name: "unknown_prefix", id: "zz00012", wantErr: true},
		{name: "uppercase_prefix", id: "TT013309", wantErr: true},
		{name: "non_numeric_suffix", id: "tt01x309", wantErr: true},
		{name: "empty", id: "", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := conn.PartitionKey(tt.id)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, rotorerrors.IsValidation(err), "expected ValidationError, got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// PartitionKey must be referentially transparent: same input, same output.
func TestPartitionKeyDeterminism(t *testing.T) {
	t.Parallel()

	first, err := conn.PartitionKey("tt0133093")
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		again, err := conn.PartitionKey("tt0133093")
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
