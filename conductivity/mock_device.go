package conductivity

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/mklimuk/ecprobe"
)

var _ ecprobe.I2CBus = &MockDevice{}

// ErrNoAck is returned by MockDevice for transfers to a foreign address.
var ErrNoAck = fmt.Errorf("mock: no acknowledge")

const (
	mockVersion  = 3
	mockFirmware = 8
	// raw counts per mS/cm and PSU per mS/cm of the simulated cell
	mockRawPerMS = 1000
	mockPSUPerMS = 0.5
)

// MockDevice simulates the probe firmware on top of a register file so the
// driver can be exercised without hardware. It behaves like the device on the
// wire: a one byte write moves the register pointer, longer writes store
// data, reads return one byte per call and auto-increment the pointer, and a
// write to the task register runs the command.
//
// Example usage:
//
//	dev := NewMockDevice()
//	dev.SetSolution(1.413)
//	dev.SetTemperature(21.5)
//	p := NewProbe(dev, WithSettleDelay(0), WithECMeasureTime(0))
//	mS, err := p.MeasureConductivity(ctx)
type MockDevice struct {
	mx       sync.Mutex
	address  byte
	regs     [registerFileSize]byte
	pointer  byte
	eeprom   map[byte][4]byte
	commands []byte
	failWith error

	conductivity float64
	temperature  float64
}

func NewMockDevice() *MockDevice {
	d := &MockDevice{
		address:      ecprobe.DefaultAddress,
		eeprom:       make(map[byte][4]byte),
		conductivity: 0,
		temperature:  defaultTemperature,
	}
	d.regs[regVersion] = mockVersion
	d.regs[regFirmware] = mockFirmware
	nan := math.NaN()
	for _, reg := range []byte{regOffset, regLowReference, regLowReading, regHighReference, regHighReading} {
		d.store(reg, nan)
	}
	d.store(regTempCoefficient, defaultTempCoefficient)
	d.store(regTempConstant, defaultTemperature)
	return d
}

// SetSolution sets the conductivity (mS/cm) of the simulated solution. Zero
// simulates a dry probe.
func (d *MockDevice) SetSolution(mS float64) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.conductivity = mS
}

// SetTemperature sets the simulated solution temperature. Use
// TempDisconnected to simulate a missing sensor.
func (d *MockDevice) SetTemperature(tempC float64) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.temperature = tempC
}

func (d *MockDevice) SetVersion(version byte) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.regs[regVersion] = version
}

// FailWith makes every following transfer fail with err (nil restores).
func (d *MockDevice) FailWith(err error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.failWith = err
}

func (d *MockDevice) Address() byte {
	d.mx.Lock()
	defer d.mx.Unlock()
	return d.address
}

// Commands returns the task commands executed so far.
func (d *MockDevice) Commands() []byte {
	d.mx.Lock()
	defer d.mx.Unlock()
	return append([]byte(nil), d.commands...)
}

// Register decodes the float register at reg.
func (d *MockDevice) Register(reg byte) float64 {
	d.mx.Lock()
	defer d.mx.Unlock()
	return d.load(reg)
}

func (d *MockDevice) SetRegister(reg byte, value float64) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.store(reg, value)
}

func (d *MockDevice) RegisterByte(reg byte) byte {
	d.mx.Lock()
	defer d.mx.Unlock()
	return d.regs[reg]
}

func (d *MockDevice) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	if err := d.check(address); err != nil {
		return err
	}
	if len(buffer) == 0 {
		return nil
	}
	d.pointer = buffer[0]
	if len(buffer) == 1 {
		return nil
	}
	for i, b := range buffer[1:] {
		pos := int(d.pointer) + i
		if pos >= registerFileSize {
			return fmt.Errorf("mock: write beyond register file at %d", pos)
		}
		d.regs[pos] = b
	}
	if d.pointer == regTask {
		d.execute(buffer[1])
	}
	return nil
}

func (d *MockDevice) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	if err := d.check(address); err != nil {
		return err
	}
	for i := range buffer {
		buffer[i] = 0xFF
		if int(d.pointer) < registerFileSize {
			buffer[i] = d.regs[d.pointer]
		}
		d.pointer++
	}
	return nil
}

func (d *MockDevice) Release(ctx context.Context) error {
	return nil
}

func (d *MockDevice) check(address byte) error {
	if d.failWith != nil {
		return d.failWith
	}
	if address != d.address {
		return fmt.Errorf("%w from %#02x", ErrNoAck, address)
	}
	return nil
}

func (d *MockDevice) execute(cmd byte) {
	d.commands = append(d.commands, cmd)
	solution := d.load(regSolution)
	switch cmd {
	case cmdMeasureEC:
		d.measureEC()
	case cmdMeasureTemp:
		d.store(regTemp, d.temperature)
	case cmdCalibrate:
		d.store(regOffset, solution-d.conductivity)
	case cmdCalibrateLo:
		d.store(regLowReference, solution)
		d.store(regLowReading, d.conductivity)
	case cmdCalibrateHi:
		d.store(regHighReference, solution)
		d.store(regHighReading, d.conductivity)
	case cmdI2CAddress:
		d.address = byte(solution)
	case cmdEEPROMRead:
		v := d.eeprom[byte(solution)]
		copy(d.regs[regBuffer:regBuffer+4], v[:])
	case cmdEEPROMWrite:
		var v [4]byte
		copy(v[:], d.regs[regBuffer:regBuffer+4])
		d.eeprom[byte(solution)] = v
	}
}

func (d *MockDevice) measureEC() {
	if d.conductivity == 0 {
		d.store(regRaw, 0)
		return
	}
	d.store(regRaw, math.Round(d.conductivity*mockRawPerMS))
	mS := d.conductivity
	if offset := d.load(regOffset); !math.IsNaN(offset) {
		mS += offset
	}
	if ConfigFlags(d.regs[regConfig]).TemperatureCompensation() {
		coef := d.load(regTempCoefficient)
		mS = mS / (1 + coef*(d.load(regTemp)-d.load(regTempConstant)))
	}
	d.store(regMS, mS)
	d.store(regSalinity, mS*mockPSUPerMS)
}

func (d *MockDevice) store(reg byte, value float64) {
	b := EncodeFloat(value)
	copy(d.regs[reg:reg+4], b[:])
}

func (d *MockDevice) load(reg byte) float64 {
	var b [4]byte
	copy(b[:], d.regs[reg:reg+4])
	return DecodeFloat(b)
}
