package conductivity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetI2CAddress_Invalid(t *testing.T) {
	for _, address := range []int{0, 128, -1, 255} {
		dev := NewMockDevice()
		p := fastProbe(dev)
		err := p.SetI2CAddress(context.Background(), address)
		assert.ErrorIs(t, err, ErrInvalidAddress, "address %d", address)
		assert.Equal(t, byte(0x3C), p.Address())
		assert.Equal(t, byte(0x3C), dev.Address())
		assert.Empty(t, dev.Commands())
	}
}

func TestSetI2CAddress(t *testing.T) {
	dev := NewMockDevice()
	p := fastProbe(dev)
	ctx := context.Background()

	require.NoError(t, p.SetI2CAddress(ctx, 0x45))
	assert.Equal(t, byte(0x45), p.Address())
	assert.Equal(t, byte(0x45), dev.Address())
	assert.Equal(t, []byte{cmdI2CAddress}, dev.Commands())

	// the probe follows the device to its new address
	v, err := p.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, byte(mockVersion), v)

	// and the old address no longer answers
	old := fastProbe(dev)
	_, err = old.Version(ctx)
	assert.ErrorIs(t, err, ErrNoAck)
}

func TestConnected(t *testing.T) {
	dev := NewMockDevice()
	p := fastProbe(dev)
	ctx := context.Background()

	ok, err := p.Connected(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	dev.SetVersion(0xFF)
	ok, err = p.Connected(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInit(t *testing.T) {
	tests := []struct {
		name      string
		version   byte
		connected bool
		ecTime    time.Duration
	}{
		{"current", 3, true, 500 * time.Millisecond},
		{"legacy", 2, true, 750 * time.Millisecond},
		{"missing", 0xFF, false, 500 * time.Millisecond},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			dev := NewMockDevice()
			dev.SetVersion(test.version)
			p := NewProbe(dev, WithSettleDelay(0))
			ok, err := p.Init(context.Background())
			require.NoError(t, err)
			assert.Equal(t, test.connected, ok)
			assert.Equal(t, test.ecTime, p.Config().ECMeasureTime)
		})
	}
}

func TestFirmwareVersion(t *testing.T) {
	p := fastProbe(NewMockDevice())
	fw, err := p.FirmwareVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, byte(mockFirmware), fw)
}

func TestConfigFlags_Device(t *testing.T) {
	dev := NewMockDevice()
	p := fastProbe(dev)
	ctx := context.Background()

	require.NoError(t, p.UseDualPoint(ctx, true))
	require.NoError(t, p.UseTemperatureCompensation(ctx, true))
	assert.Equal(t, byte(0b11), dev.RegisterByte(regConfig))

	require.NoError(t, p.UseDualPoint(ctx, false))
	dual, err := p.UsingDualPoint(ctx)
	require.NoError(t, err)
	assert.False(t, dual)
	compensating, err := p.UsingTemperatureCompensation(ctx)
	require.NoError(t, err)
	assert.True(t, compensating)
}

func TestEEPROM(t *testing.T) {
	dev := NewMockDevice()
	p := fastProbe(dev)
	ctx := context.Background()

	require.NoError(t, p.WriteEEPROM(ctx, 200, 3.14))
	require.NoError(t, p.WriteEEPROM(ctx, 204, -2.5))

	v, err := p.ReadEEPROM(ctx, 200)
	require.NoError(t, err)
	assert.Equal(t, 3.14, v)
	v, err = p.ReadEEPROM(ctx, 204)
	require.NoError(t, err)
	assert.Equal(t, -2.5, v)
	assert.Equal(t, []byte{cmdEEPROMWrite, cmdEEPROMWrite, cmdEEPROMRead, cmdEEPROMRead}, dev.Commands())
}

func TestTransportFailure(t *testing.T) {
	dev := NewMockDevice()
	dev.FailWith(ErrNoAck)
	p := fastProbe(dev)

	_, err := p.MeasureConductivity(context.Background())
	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.ErrorIs(t, err, ErrNoAck)
	assert.Equal(t, NoReading, p.Measurement().MilliSiemens)
}
