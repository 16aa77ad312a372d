package iso

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDictionaryStandardFields(t *testing.T) {
	d := NewDictionary()

	tmpl, ok := d.FieldTemplate(4)
	require.True(t, ok)
	assert.Equal(t, Amount, tmpl.Type)
	assert.Equal(t, 12, tmpl.MaxLength)

	tmpl, ok = d.FieldTemplate(2)
	require.True(t, ok)
	assert.Equal(t, LLVar, tmpl.Type)
	assert.Equal(t, 19, tmpl.MaxLength)

	_, ok = d.FieldTemplate(999)
	assert.False(t, ok)
}

func TestDictionarySubfieldDefault(t *testing.T) {
	d := NewDictionary()
	tmpl, ok := d.SubfieldTemplate(5)
	require.True(t, ok)
	assert.Equal(t, LLLVar, tmpl.Type)
	assert.Equal(t, 999, tmpl.MaxLength)
}

func TestDictionaryFallbackType(t *testing.T) {
	d := NewDictionary()
	assert.Equal(t, Alpha, d.FallbackType(39))
	assert.Equal(t, Alpha, d.FallbackType(38))
	assert.Equal(t, Alpha, d.FallbackType(11))
	assert.Equal(t, Alpha, d.FallbackType(37))
	assert.Equal(t, LLLVar, d.FallbackType(54))
	assert.Equal(t, LLLVar, d.FallbackType(48))
	assert.Equal(t, LLVar, d.FallbackType(102))
}
