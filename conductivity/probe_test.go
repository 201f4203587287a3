package conductivity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/ecprobe"
)

// MockI2CBus is a mock implementation of ecprobe.I2CBus using testify/mock
type MockI2CBus struct {
	mock.Mock
}

func (m *MockI2CBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	args := m.Called(ctx, address, buffer)
	return args.Error(0)
}

func (m *MockI2CBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	args := m.Called(ctx, address, buffer)
	if data, ok := args.Get(0).([]byte); ok && len(data) <= len(buffer) {
		copy(buffer, data)
	}
	return args.Error(1)
}

func (m *MockI2CBus) Release(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func fastProbe(bus ecprobe.I2CBus, opts ...Opt) *Probe {
	opts = append([]Opt{
		WithSettleDelay(0),
		WithECMeasureTime(0),
		WithTempMeasureTime(0),
	}, opts...)
	return NewProbe(bus, opts...)
}

func TestProbe_Defaults(t *testing.T) {
	p := NewProbe(new(MockI2CBus))
	c := p.Config()
	assert.Equal(t, byte(0x3C), p.Address())
	assert.True(t, p.Blocking())
	assert.Equal(t, CompensateFixed, c.Compensation)
	assert.Equal(t, 25.0, c.DefaultTemperature)
	assert.Equal(t, 10*time.Millisecond, c.SettleDelay)
	assert.Equal(t, 500*time.Millisecond, c.ECMeasureTime)
	assert.Equal(t, 750*time.Millisecond, c.TempMeasureTime)
	assert.Equal(t, NoReading, p.Measurement().MilliSiemens)
}

func TestProbe_WriteRegisterSequence(t *testing.T) {
	bus := new(MockI2CBus)
	p := fastProbe(bus)
	ctx := context.Background()

	call1 := bus.On("WriteToAddr", ctx, byte(0x3C), []byte{regTempConstant}).Return(nil).Once()
	bus.On("WriteToAddr", ctx, byte(0x3C), []byte{regTempConstant, 0x00, 0x00, 0xc8, 0x41}).
		Return(nil).Once().NotBefore(call1)

	require.NoError(t, p.SetTempConstant(ctx, 25))
	bus.AssertExpectations(t)
}

func TestProbe_ReadRegisterSequence(t *testing.T) {
	bus := new(MockI2CBus)
	p := fastProbe(bus)
	ctx := context.Background()

	bus.On("WriteToAddr", ctx, byte(0x3C), []byte{regTempCoefficient}).Return(nil).Once()
	// 0.019 little-endian, one byte per transfer
	for _, b := range []byte{0xe3, 0xa5, 0x9b, 0x3c} {
		bus.On("ReadFromAddr", ctx, byte(0x3C), mock.MatchedBy(func(buf []byte) bool { return len(buf) == 1 })).
			Return([]byte{b}, nil).Once()
	}

	coef, err := p.TempCoefficient(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.019, coef)
	bus.AssertExpectations(t)
}

func TestProbe_SendCommandSequence(t *testing.T) {
	bus := new(MockI2CBus)
	p := fastProbe(bus, WithBlocking(false), WithCompensation(CompensateNone))
	ctx := context.Background()

	bus.On("WriteToAddr", ctx, byte(0x3C), []byte{regTask, cmdMeasureEC}).Return(nil).Once()

	mS, err := p.MeasureConductivity(ctx)
	require.NoError(t, err)
	assert.Equal(t, NoReading, mS)
	bus.AssertExpectations(t)
}

func TestProbe_ReadByteSequence(t *testing.T) {
	bus := new(MockI2CBus)
	p := fastProbe(bus)
	ctx := context.Background()

	bus.On("WriteToAddr", ctx, byte(0x3C), []byte{regFirmware}).Return(nil).Once()
	bus.On("ReadFromAddr", ctx, byte(0x3C), mock.Anything).Return([]byte{0x08}, nil).Once()

	fw, err := p.FirmwareVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, byte(0x08), fw)
	bus.AssertExpectations(t)
}

func TestProbe_TransportError(t *testing.T) {
	busErr := errors.New("bus not present")
	bus := new(MockI2CBus)
	p := fastProbe(bus)
	ctx := context.Background()

	bus.On("WriteToAddr", ctx, byte(0x3C), []byte{regVersion}).Return(busErr).Once()

	_, err := p.Version(ctx)
	require.Error(t, err)
	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "select register", terr.Op)
	assert.Equal(t, regVersion, terr.Register)
	assert.Equal(t, byte(0x3C), terr.Address)
	assert.ErrorIs(t, err, busErr)
	// no retry
	bus.AssertNumberOfCalls(t, "WriteToAddr", 1)
}

func TestProbe_TransportErrorOnRead(t *testing.T) {
	bus := new(MockI2CBus)
	p := fastProbe(bus)
	ctx := context.Background()

	bus.On("WriteToAddr", ctx, byte(0x3C), []byte{regRaw}).Return(nil).Once()
	bus.On("ReadFromAddr", ctx, byte(0x3C), mock.Anything).Return(nil, ecprobe.ErrBusBusy).Once()

	_, err := p.Refresh(ctx)
	assert.ErrorIs(t, err, ecprobe.ErrBusBusy)
	var terr *TransportError
	assert.ErrorAs(t, err, &terr)
	bus.AssertExpectations(t)
}

func TestProbe_SettleDelay(t *testing.T) {
	dev := NewMockDevice()
	delay := 5 * time.Millisecond
	p := NewProbe(dev, WithSettleDelay(delay))

	start := time.Now()
	// select + write block
	require.NoError(t, p.SetTempConstant(context.Background(), 20))
	assert.GreaterOrEqual(t, time.Since(start), 2*delay)
}

func TestProbe_ContextCancelledDuringSettle(t *testing.T) {
	dev := NewMockDevice()
	p := NewProbe(dev, WithSettleDelay(time.Second))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := p.Version(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestProbe_WithConfig(t *testing.T) {
	c := DefaultConfig()
	c.Address = 0x40
	c.Blocking = false
	p := NewProbe(NewMockDevice(), WithConfig(c))
	assert.Equal(t, byte(0x40), p.Address())
	assert.False(t, p.Blocking())

	p.SetBlocking(true)
	assert.True(t, p.Blocking())
}
