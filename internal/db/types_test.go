package db

import (
	"database/sql"
	"database/sql/driver"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringSlice_Scan(t *testing.T) {
	tests := []struct {
		name string
		src  interface{}
		want StringSlice
	}{
		{"null", nil, StringSlice{}},
		{"bytes", []byte(`["Ana","Rui"]`), StringSlice{"Ana", "Rui"}},
		{"string", `["clima"]`, StringSlice{"clima"}},
		{"empty array", []byte(`[]`), StringSlice{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s StringSlice
			require.NoError(t, s.Scan(tt.src))
			assert.Equal(t, tt.want, s)
		})
	}

	var s StringSlice
	assert.Error(t, s.Scan(42))
	assert.Error(t, s.Scan([]byte(`{"not":"array"}`)))
}

func TestStringSlice_ScanOnly(t *testing.T) {
	var s StringSlice
	_, isScanner := interface{}(&s).(sql.Scanner)
	_, isValuer := interface{}(s).(driver.Valuer)
	assert.True(t, isScanner)
	assert.False(t, isValuer)
}

func TestJSON(t *testing.T) {
	var j JSON
	require.NoError(t, j.Scan([]byte(`{"tone":"neutral"}`)))
	v, err := j.Value()
	require.NoError(t, err)
	assert.Equal(t, `{"tone":"neutral"}`, v)

	assert.True(t, JSON(nil).IsZero())
	assert.True(t, JSON(" null ").IsZero())
	v, err = JSON(nil).Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = JSON(`{broken`).Value()
	assert.Error(t, err)

	b, err := JSON(nil).MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "null", string(b))
}
