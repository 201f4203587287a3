package conductivity

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeasureConductivity_FixedCompensation(t *testing.T) {
	dev := NewMockDevice()
	dev.SetSolution(1.413)
	p := fastProbe(dev)
	ctx := context.Background()

	mS, err := p.MeasureConductivity(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1.413, mS)

	// default policy compensates at 25°C
	assert.Equal(t, 25.0, dev.Register(regTemp))
	assert.True(t, ConfigFlags(dev.RegisterByte(regConfig)).TemperatureCompensation())
	assert.Equal(t, []byte{cmdMeasureEC}, dev.Commands())

	m := p.Measurement()
	assert.Equal(t, 1413.0, m.Raw)
	assert.Equal(t, 1.413, m.MilliSiemens)
	assert.InDelta(t, 1413.0, m.MicroSiemens, 1e-9)
	assert.InDelta(t, 0.001413, m.Siemens, 1e-12)
	assert.InDelta(t, 706.5, m.TDS500, 1e-9)
	assert.InDelta(t, 904.32, m.TDS640, 1e-9)
	assert.InDelta(t, 989.1, m.TDS700, 1e-9)
	assert.Equal(t, 0.7065, m.Salinity)
	assert.Equal(t, 25.0, m.TempC)
	assert.Equal(t, 77.0, m.TempF)
	assert.NoError(t, m.Err())
}

func TestMeasureConductivity_ExplicitTemperature(t *testing.T) {
	dev := NewMockDevice()
	dev.SetSolution(2.0)
	p := fastProbe(dev)
	ctx := context.Background()

	mS, err := p.MeasureConductivity(ctx, WithTemperature(30), WithTempConstant(25))
	require.NoError(t, err)
	assert.Equal(t, 30.0, dev.Register(regTemp))
	assert.Equal(t, 25.0, dev.Register(regTempConstant))
	// 2.0 / (1 + 0.019 * 5)
	assert.InDelta(t, 1.826484, mS, 1e-6)
	assert.Equal(t, 30.0, p.Measurement().TempC)
	assert.Equal(t, 86.0, p.Measurement().TempF)
}

func TestMeasureConductivity_NoCompensation(t *testing.T) {
	dev := NewMockDevice()
	dev.SetSolution(5)
	p := fastProbe(dev, WithCompensation(CompensateNone))

	_, err := p.MeasureConductivity(context.Background())
	require.NoError(t, err)
	assert.False(t, ConfigFlags(dev.RegisterByte(regConfig)).TemperatureCompensation())
	assert.Equal(t, []byte{cmdMeasureEC}, dev.Commands())
}

func TestMeasureConductivity_MeasuredCompensation(t *testing.T) {
	dev := NewMockDevice()
	dev.SetSolution(1)
	dev.SetTemperature(20)
	p := fastProbe(dev, WithCompensation(CompensateMeasured))

	_, err := p.MeasureConductivity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte{cmdMeasureTemp, cmdMeasureEC}, dev.Commands())
	assert.Equal(t, 20.0, dev.Register(regTemp))
	assert.Equal(t, 20.0, p.Measurement().TempC)
}

func TestMeasureConductivity_MeasuredCompensationDisconnected(t *testing.T) {
	dev := NewMockDevice()
	dev.SetSolution(1)
	dev.SetTemperature(TempDisconnected)
	p := fastProbe(dev, WithCompensation(CompensateMeasured), WithDefaultTemperature(22))

	_, err := p.MeasureConductivity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 22.0, dev.Register(regTemp))
}

func TestMeasureConductivity_ZeroRaw(t *testing.T) {
	dev := NewMockDevice()
	// stale values that must not leak into the snapshot
	dev.SetRegister(regMS, 3.3)
	dev.SetRegister(regSalinity, 1.1)
	p := fastProbe(dev)

	mS, err := p.MeasureConductivity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, NoReading, mS)

	m := p.Measurement()
	assert.Equal(t, 0.0, m.Raw)
	for name, v := range map[string]float64{
		"mS": m.MilliSiemens, "uS": m.MicroSiemens, "S": m.Siemens,
		"TDS500": m.TDS500, "TDS640": m.TDS640, "TDS700": m.TDS700, "salinity": m.Salinity,
	} {
		assert.Equal(t, NoReading, v, name)
	}
	assert.ErrorIs(t, m.Err(), ErrNoReading)
	assert.False(t, m.Valid())
}

func TestMeasureConductivity_NonBlocking(t *testing.T) {
	dev := NewMockDevice()
	dev.SetSolution(1.413)
	p := fastProbe(dev, WithBlocking(false))
	ctx := context.Background()

	mS, err := p.MeasureConductivity(ctx)
	require.NoError(t, err)
	// nothing refreshed yet
	assert.Equal(t, NoReading, mS)

	m, err := p.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1.413, m.MilliSiemens)
	assert.Equal(t, m, p.Measurement())
}

func TestMeasureConductivity_BlockingWaits(t *testing.T) {
	dev := NewMockDevice()
	dev.SetSolution(1)
	delay := 30 * time.Millisecond
	p := NewProbe(dev, WithSettleDelay(0), WithECMeasureTime(delay), WithCompensation(CompensateNone))

	start := time.Now()
	_, err := p.MeasureConductivity(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), delay)

	p.SetBlocking(false)
	start = time.Now()
	_, err = p.MeasureConductivity(context.Background())
	require.NoError(t, err)
	assert.Less(t, time.Since(start), delay)
}

func TestMeasureTemperature(t *testing.T) {
	dev := NewMockDevice()
	dev.SetTemperature(21.5)
	p := fastProbe(dev)

	tempC, err := p.MeasureTemperature(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 21.5, tempC)
	assert.InDelta(t, 70.7, p.Measurement().TempF, 1e-9)
	assert.Equal(t, []byte{cmdMeasureTemp}, dev.Commands())
}

func TestMeasureTemperature_Disconnected(t *testing.T) {
	dev := NewMockDevice()
	dev.SetTemperature(TempDisconnected)
	p := fastProbe(dev)

	tempC, err := p.MeasureTemperature(context.Background())
	require.NoError(t, err)
	assert.Equal(t, TempDisconnected, tempC)

	m := p.Measurement()
	assert.Equal(t, TempDisconnected, m.TempF)
	assert.False(t, m.TemperatureConnected())
	assert.ErrorIs(t, m.Err(), ErrTemperatureDisconnected)
}

func TestMeasureSalinity(t *testing.T) {
	dev := NewMockDevice()
	dev.SetSolution(10)
	p := fastProbe(dev)

	psu, err := p.MeasureSalinity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5.0, psu)
}

func TestSetTemperature(t *testing.T) {
	dev := NewMockDevice()
	p := fastProbe(dev)

	require.NoError(t, p.SetTemperature(context.Background(), 100))
	assert.Equal(t, 100.0, dev.Register(regTemp))
	assert.Equal(t, 212.0, p.Measurement().TempF)

	require.NoError(t, p.SetTemperature(context.Background(), TempDisconnected))
	assert.Equal(t, TempDisconnected, p.Measurement().TempC)
	assert.Equal(t, TempDisconnected, p.Measurement().TempF)
	assert.False(t, p.Measurement().TemperatureConnected())
}

func TestReadData(t *testing.T) {
	dev := NewMockDevice()
	dev.SetSolution(1.413)
	p := fastProbe(dev, WithBlocking(false))
	ctx := context.Background()

	_, err := p.MeasureConductivity(ctx)
	require.NoError(t, err)
	m, cal, err := p.ReadData(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1.413, m.MilliSiemens)
	assert.Equal(t, 0.019, cal.TempCoefficient)
	assert.Equal(t, 25.0, cal.TempConstant)
	assert.True(t, math.IsNaN(cal.Offset))
}

func TestMeasureConductivity_PolicyOverride(t *testing.T) {
	dev := NewMockDevice()
	dev.SetSolution(1)
	dev.SetTemperature(18)
	p := fastProbe(dev)

	_, err := p.MeasureConductivity(context.Background(), WithPolicy(CompensateNone))
	require.NoError(t, err)
	assert.Equal(t, []byte{cmdMeasureEC}, dev.Commands())
	assert.False(t, ConfigFlags(dev.RegisterByte(regConfig)).TemperatureCompensation())

	_, err = p.MeasureConductivity(context.Background(), WithPolicy(CompensateMeasured))
	require.NoError(t, err)
	assert.Equal(t, []byte{cmdMeasureEC, cmdMeasureTemp, cmdMeasureEC}, dev.Commands())
	assert.Equal(t, 18.0, dev.Register(regTemp))
}
