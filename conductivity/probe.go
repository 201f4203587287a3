package conductivity

import (
	"context"
	"log/slog"
	"time"

	"github.com/mklimuk/ecprobe"
)

// CompensationPolicy decides what MeasureConductivity does about temperature
// when the caller does not pass one.
type CompensationPolicy int

const (
	// CompensateFixed enables compensation at Config.DefaultTemperature.
	CompensateFixed CompensationPolicy = iota
	// CompensateMeasured measures the probe temperature first and uses it.
	CompensateMeasured
	// CompensateNone leaves compensation settings on the device untouched.
	CompensateNone
)

func (p CompensationPolicy) String() string {
	switch p {
	case CompensateFixed:
		return "fixed"
	case CompensateMeasured:
		return "measured"
	case CompensateNone:
		return "none"
	default:
		return "unknown"
	}
}

const (
	defaultTemperature     = 25.0
	defaultTempCoefficient = 0.019
	defaultSettleDelay     = 10 * time.Millisecond
	defaultECMeasureTime   = 500 * time.Millisecond
	defaultTempMeasureTime = 750 * time.Millisecond

	// firmware up to this version needs legacyECMeasureTime
	legacyFirmwareVersion = 2
	legacyECMeasureTime   = 750 * time.Millisecond
)

// Config gathers every knob of the driver in one place.
type Config struct {
	Address            byte
	Blocking           bool
	Compensation       CompensationPolicy
	DefaultTemperature float64
	// SettleDelay follows every register select, write and command.
	SettleDelay time.Duration
	// ECMeasureTime is waited after EC measure and calibration commands
	// in blocking mode.
	ECMeasureTime   time.Duration
	TempMeasureTime time.Duration
}

func DefaultConfig() Config {
	return Config{
		Address:            ecprobe.DefaultAddress,
		Blocking:           true,
		Compensation:       CompensateFixed,
		DefaultTemperature: defaultTemperature,
		SettleDelay:        defaultSettleDelay,
		ECMeasureTime:      defaultECMeasureTime,
		TempMeasureTime:    defaultTempMeasureTime,
	}
}

type Opt func(*Config)

func WithConfig(c Config) Opt {
	return func(o *Config) {
		*o = c
	}
}

func WithAddress(address byte) Opt {
	return func(o *Config) {
		o.Address = address
	}
}

func WithBlocking(blocking bool) Opt {
	return func(o *Config) {
		o.Blocking = blocking
	}
}

func WithCompensation(policy CompensationPolicy) Opt {
	return func(o *Config) {
		o.Compensation = policy
	}
}

func WithDefaultTemperature(tempC float64) Opt {
	return func(o *Config) {
		o.DefaultTemperature = tempC
	}
}

func WithSettleDelay(delay time.Duration) Opt {
	return func(o *Config) {
		o.SettleDelay = delay
	}
}

func WithECMeasureTime(delay time.Duration) Opt {
	return func(o *Config) {
		o.ECMeasureTime = delay
	}
}

func WithTempMeasureTime(delay time.Duration) Opt {
	return func(o *Config) {
		o.TempMeasureTime = delay
	}
}

// Probe drives an isolated EC probe over I2C.
//
// Typical usage:
//
//	p := NewProbe(bus)
//	mS, err := p.MeasureConductivity(ctx)
//	m := p.Measurement()
//
// Every operation is a select/settle/transfer/settle sequence; a Probe must be
// driven by a single goroutine. Transports shared between several probes
// have to serialize access themselves.
type Probe struct {
	transport ecprobe.I2CBus
	config    Config
	last      Measurement
}

func NewProbe(transport ecprobe.I2CBus, opts ...Opt) *Probe {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	return &Probe{
		transport: transport,
		config:    config,
		last:      emptyMeasurement(),
	}
}

func (p *Probe) Address() byte {
	return p.config.Address
}

func (p *Probe) Config() Config {
	return p.config
}

func (p *Probe) Blocking() bool {
	return p.config.Blocking
}

// SetBlocking switches between waiting for measurements (and refreshing the
// cached snapshot) and returning right after the command was sent.
func (p *Probe) SetBlocking(blocking bool) {
	p.config.Blocking = blocking
}

func (p *Probe) selectRegister(ctx context.Context, reg byte) error {
	if err := p.transport.WriteToAddr(ctx, p.config.Address, []byte{reg}); err != nil {
		return p.transportErr("select register", reg, err)
	}
	return sleep(ctx, p.config.SettleDelay)
}

func (p *Probe) writeRegister(ctx context.Context, reg byte, value float64) error {
	if err := p.selectRegister(ctx, reg); err != nil {
		return err
	}
	payload := EncodeFloat(value)
	buf := []byte{reg, payload[0], payload[1], payload[2], payload[3]}
	if err := p.transport.WriteToAddr(ctx, p.config.Address, buf); err != nil {
		return p.transportErr("write register", reg, err)
	}
	slog.DebugContext(ctx, "register written", "reg", reg, "value", value)
	return sleep(ctx, p.config.SettleDelay)
}

func (p *Probe) readRegister(ctx context.Context, reg byte) (float64, error) {
	if err := p.selectRegister(ctx, reg); err != nil {
		return 0, err
	}
	var payload [4]byte
	buf := make([]byte, 1)
	for i := range payload {
		if err := p.transport.ReadFromAddr(ctx, p.config.Address, buf); err != nil {
			return 0, p.transportErr("read register", reg, err)
		}
		payload[i] = buf[0]
	}
	value := DecodeFloat(payload)
	slog.DebugContext(ctx, "register read", "reg", reg, "value", value)
	return value, nil
}

func (p *Probe) writeByte(ctx context.Context, reg byte, value byte) error {
	if err := p.transport.WriteToAddr(ctx, p.config.Address, []byte{reg, value}); err != nil {
		return p.transportErr("write byte", reg, err)
	}
	return sleep(ctx, p.config.SettleDelay)
}

func (p *Probe) readByte(ctx context.Context, reg byte) (byte, error) {
	if err := p.selectRegister(ctx, reg); err != nil {
		return 0, err
	}
	if err := sleep(ctx, p.config.SettleDelay); err != nil {
		return 0, err
	}
	buf := make([]byte, 1)
	if err := p.transport.ReadFromAddr(ctx, p.config.Address, buf); err != nil {
		return 0, p.transportErr("read byte", reg, err)
	}
	return buf[0], nil
}

func (p *Probe) sendCommand(ctx context.Context, cmd byte) error {
	if err := p.transport.WriteToAddr(ctx, p.config.Address, []byte{regTask, cmd}); err != nil {
		return p.transportErr("send command", regTask, err)
	}
	slog.DebugContext(ctx, "command sent", "cmd", cmd)
	return sleep(ctx, p.config.SettleDelay)
}

// wait blocks for a measurement to complete, but only in blocking mode.
func (p *Probe) wait(ctx context.Context, d time.Duration) error {
	if !p.config.Blocking {
		return nil
	}
	return sleep(ctx, d)
}

func (p *Probe) transportErr(op string, reg byte, err error) error {
	return &TransportError{Op: op, Address: p.config.Address, Register: reg, Err: err}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
