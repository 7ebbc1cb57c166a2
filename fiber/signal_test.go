package fiber_test

import (
	"testing"

	"github.com/mna/corevm/fiber"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMaskAndString(t *testing.T) {
	tests := []struct {
		in   string
		want fiber.Mask
	}{
		{"y", fiber.MaskYield},
		{"e", fiber.MaskError},
		{"d", fiber.MaskDebug},
		{"yed", fiber.MaskYield | fiber.MaskError | fiber.MaskDebug},
		{"3", fiber.MaskUser(3)},
		{"a", fiber.MaskAll},
	}
	for _, tt := range tests {
		m, err := fiber.ParseMask(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, m)
	}
}

func TestParseMaskRejectsUnknownChar(t *testing.T) {
	_, err := fiber.ParseMask("z")
	assert.Error(t, err)
}

func TestMaskTraps(t *testing.T) {
	m, err := fiber.ParseMask("ye")
	require.NoError(t, err)
	assert.True(t, m.Traps(fiber.SignalYield))
	assert.True(t, m.Traps(fiber.SignalError))
	assert.False(t, m.Traps(fiber.SignalDebug))
	assert.False(t, m.Traps(fiber.SignalUser0))
}

func TestMaskUserTraps(t *testing.T) {
	m := fiber.MaskUser(5)
	assert.True(t, m.Traps(fiber.SignalUser0+5))
	assert.False(t, m.Traps(fiber.SignalUser0+4))
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "new", fiber.StatusNew.String())
	assert.Equal(t, "alive", fiber.StatusAlive.String())
	assert.Equal(t, "user0", fiber.StatusUser0.String())
	assert.Equal(t, "user3", (fiber.StatusUser0 + 3).String())
}

func TestSignalString(t *testing.T) {
	assert.Equal(t, "ok", fiber.SignalOK.String())
	assert.Equal(t, "yield", fiber.SignalYield.String())
	assert.Equal(t, "user2", (fiber.SignalUser0 + 2).String())
}
