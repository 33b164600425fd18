package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculate(t *testing.T) {
	tests := []struct {
		name               string
		page, size         int
		wantOffset, wantSz int
	}{
		{"first page", 1, 10, 0, 10},
		{"third page", 3, 20, 40, 20},
		{"page below one", 0, 10, 0, 10},
		{"size too big", 2, 500, 10, DefaultPageSize},
		{"size missing", 1, 0, 0, DefaultPageSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			offset, limit := Calculate(tt.page, tt.size)
			assert.Equal(t, tt.wantOffset, offset)
			assert.Equal(t, tt.wantSz, limit)
		})
	}
}

func TestMeta(t *testing.T) {
	m := Meta(2, 10, 25)
	assert.Equal(t, int64(3), m.Pages)
	assert.True(t, m.HasNext)
	assert.True(t, m.HasPrev)

	m = Meta(3, 10, 25)
	assert.False(t, m.HasNext)

	m = Meta(1, 10, 0)
	assert.Equal(t, int64(0), m.Pages)
	assert.False(t, m.HasPrev)
}

func TestParsers(t *testing.T) {
	assert.Equal(t, 7, ParseIntDefault("7", 1))
	assert.Equal(t, 1, ParseIntDefault("x", 1))

	d := ParseDecimal("12.50")
	require.NotNil(t, d)
	assert.Equal(t, "12.5", d.String())
	assert.Nil(t, ParseDecimal("abc"))

	assert.Nil(t, ParseFloat(""))
	b := ParseBool("true")
	require.NotNil(t, b)
	assert.True(t, *b)
}
