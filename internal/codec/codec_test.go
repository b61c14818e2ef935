package codec

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestString_Identity(t *testing.T) {
	var c Codec[string] = String{}
	for _, v := range []string{"", "Cat", "with space", "ünïcödé", "\x00bin"} {
		enc, err := c.Encode(v)
		require.NoError(t, err)
		assert.Equal(t, v, enc)
		dec, err := c.Decode(enc)
		require.NoError(t, err)
		assert.Equal(t, v, dec)
	}
}

func TestNormalizedString_NFC(t *testing.T) {
	var c Codec[string] = NormalizedString{}
	composed := "caf\u00e9"
	decomposed := "cafe\u0301"

	a, err := c.Encode(composed)
	require.NoError(t, err)
	b, err := c.Encode(decomposed)
	require.NoError(t, err)
	assert.Equal(t, a, b, "canonically equivalent strings must encode identically")
	assert.Equal(t, composed, b)

	dec, err := c.Decode(decomposed)
	require.NoError(t, err)
	assert.Equal(t, composed, dec)
}

func TestInt(t *testing.T) {
	var c Codec[int] = Int{}
	enc, err := c.Encode(5713)
	require.NoError(t, err)
	assert.Equal(t, "5713", enc)

	dec, err := c.Decode("-42")
	require.NoError(t, err)
	assert.Equal(t, -42, dec)

	_, err = c.Decode("apples")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `decode int "apples"`)
}

type point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func TestJSON(t *testing.T) {
	var c Codec[point] = JSON[point]{}
	enc, err := c.Encode(point{X: 1, Y: 2})
	require.NoError(t, err)
	assert.Equal(t, `{"x":1,"y":2}`, enc)

	dec, err := c.Decode(`{"x":3,"y":4}`)
	require.NoError(t, err)
	assert.Equal(t, point{X: 3, Y: 4}, dec)

	_, err = c.Decode("not json")
	require.Error(t, err)
}

func TestFunc(t *testing.T) {
	c := Func[string]{
		EncodeFunc: func(v string) (string, error) { return strings.ToUpper(v), nil },
		DecodeFunc: func(s string) (string, error) { return strings.ToLower(s), nil },
	}
	enc, err := c.Encode("dog")
	require.NoError(t, err)
	assert.Equal(t, "DOG", enc)
	dec, err := c.Decode("DOG")
	require.NoError(t, err)
	assert.Equal(t, "dog", dec)
}

func TestEncodeDecodeAll(t *testing.T) {
	raw, err := EncodeAll[int](Int{}, []int{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, raw)

	vals, err := DecodeAll[int](Int{}, []string{"4", "5"})
	require.NoError(t, err)
	assert.Equal(t, []int{4, 5}, vals)

	_, err = DecodeAll[int](Int{}, []string{"6", "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode element 1")
}
