package mathhelp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPow2(t *testing.T) {
	assert.Equal(t, uint(1), Pow2(0))
	assert.Equal(t, uint(2), Pow2(1))
	assert.Equal(t, uint(1024), Pow2(10))
}

func TestBool2int(t *testing.T) {
	assert.Equal(t, 1, Bool2int(true))
	assert.Equal(t, 0, Bool2int(false))
}

func TestBetweenInc(t *testing.T) {
	assert.True(t, BetweenInc(5, 0, 10))
	assert.True(t, BetweenInc(5, 10, 0), "bounds may be supplied in either order")
	assert.True(t, BetweenInc(0, 0, 10))
	assert.True(t, BetweenInc(10, 0, 10))
	assert.False(t, BetweenInc(11, 0, 10))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.5, Clamp(0.5, 0, 1))
	assert.Equal(t, 0.0, Clamp(-3, 0, 1))
	assert.Equal(t, 1.0, Clamp(7, 0, 1))

	assert.Equal(t, 3, ClampInt(99, 0, 3))
	assert.Equal(t, 0, ClampInt(-1, 0, 3))
	assert.Equal(t, 2, ClampInt(2, 0, 3))
}
