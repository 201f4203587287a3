package conductivity

import (
	"context"
	"fmt"
	"log/slog"
	"math"
)

type MeasureOpts struct {
	Temperature  *float64
	TempConstant *float64
	Policy       *CompensationPolicy
}

type MeasureOpt func(*MeasureOpts)

// WithTemperature compensates the measurement for the given solution
// temperature instead of applying the configured policy.
func WithTemperature(tempC float64) MeasureOpt {
	return func(o *MeasureOpts) {
		o.Temperature = &tempC
	}
}

// WithPolicy overrides the configured compensation policy for one
// measurement.
func WithPolicy(policy CompensationPolicy) MeasureOpt {
	return func(o *MeasureOpts) {
		o.Policy = &policy
	}
}

// WithTempConstant sets the temperature the reading is compensated to.
// 255 makes the firmware use the actual temperature.
func WithTempConstant(constant float64) MeasureOpt {
	return func(o *MeasureOpts) {
		o.TempConstant = &constant
	}
}

// MeasureConductivity starts an EC measurement and returns mS/cm. In
// non-blocking mode the cached value is returned and Refresh must be called
// once the device is done.
func (p *Probe) MeasureConductivity(ctx context.Context, opts ...MeasureOpt) (float64, error) {
	var o MeasureOpts
	for _, opt := range opts {
		opt(&o)
	}
	temp, compensate, err := p.compensationTemperature(ctx, o)
	if err != nil {
		return 0, err
	}
	if compensate {
		if err := p.UseTemperatureCompensation(ctx, true); err != nil {
			return 0, fmt.Errorf("could not enable temperature compensation: %w", err)
		}
		if err := p.SetTemperature(ctx, temp); err != nil {
			return 0, fmt.Errorf("could not set temperature: %w", err)
		}
	}
	if o.TempConstant != nil {
		if err := p.SetTempConstant(ctx, *o.TempConstant); err != nil {
			return 0, fmt.Errorf("could not set temperature constant: %w", err)
		}
	}
	if err := p.sendCommand(ctx, cmdMeasureEC); err != nil {
		return 0, err
	}
	if p.config.Blocking {
		if err := sleep(ctx, p.config.ECMeasureTime); err != nil {
			return 0, err
		}
		if _, err := p.Refresh(ctx); err != nil {
			return 0, err
		}
	}
	return p.last.MilliSiemens, nil
}

func (p *Probe) compensationTemperature(ctx context.Context, o MeasureOpts) (float64, bool, error) {
	if o.Temperature != nil {
		return *o.Temperature, true, nil
	}
	policy := p.config.Compensation
	if o.Policy != nil {
		policy = *o.Policy
	}
	switch policy {
	case CompensateNone:
		return 0, false, nil
	case CompensateMeasured:
		tempC, err := p.readTemperatureNow(ctx)
		if err != nil {
			return 0, false, err
		}
		if tempC == TempDisconnected {
			slog.WarnContext(ctx, "temperature sensor disconnected, compensating at default temperature",
				"default", p.config.DefaultTemperature)
			return p.config.DefaultTemperature, true, nil
		}
		return tempC, true, nil
	default:
		return p.config.DefaultTemperature, true, nil
	}
}

// readTemperatureNow always waits for the temperature conversion, whatever
// the blocking mode, because the value is needed right away.
func (p *Probe) readTemperatureNow(ctx context.Context) (float64, error) {
	if err := p.sendCommand(ctx, cmdMeasureTemp); err != nil {
		return 0, err
	}
	if err := sleep(ctx, p.config.TempMeasureTime); err != nil {
		return 0, err
	}
	return p.ReadTemperature(ctx)
}

// ReadTemperature reads the temperature register without starting a
// conversion.
func (p *Probe) ReadTemperature(ctx context.Context) (float64, error) {
	tempC, err := p.readRegister(ctx, regTemp)
	if err != nil {
		return 0, err
	}
	p.last.setTemperature(tempC)
	return tempC, nil
}

// MeasureTemperature starts a temperature conversion and returns °C.
func (p *Probe) MeasureTemperature(ctx context.Context) (float64, error) {
	if err := p.sendCommand(ctx, cmdMeasureTemp); err != nil {
		return 0, err
	}
	if p.config.Blocking {
		if err := sleep(ctx, p.config.TempMeasureTime); err != nil {
			return 0, err
		}
		if _, err := p.Refresh(ctx); err != nil {
			return 0, err
		}
	}
	return p.last.TempC, nil
}

// MeasureSalinity runs a conductivity measurement and returns the salinity
// in PSU derived by the firmware.
func (p *Probe) MeasureSalinity(ctx context.Context, opts ...MeasureOpt) (float64, error) {
	if _, err := p.MeasureConductivity(ctx, opts...); err != nil {
		return 0, err
	}
	return p.last.Salinity, nil
}

// SetTemperature writes the solution temperature used for compensation.
func (p *Probe) SetTemperature(ctx context.Context, tempC float64) error {
	if err := p.writeRegister(ctx, regTemp, tempC); err != nil {
		return err
	}
	p.last.setTemperature(tempC)
	return nil
}

// Refresh re-reads the measurement registers and recomputes derived fields.
func (p *Probe) Refresh(ctx context.Context) (Measurement, error) {
	m := p.last
	raw, err := p.readRegister(ctx, regRaw)
	if err != nil {
		return p.last, err
	}
	m.Raw = raw
	mS := math.Inf(1)
	salinity := NoReading
	if raw != 0 {
		if mS, err = p.readRegister(ctx, regMS); err != nil {
			return p.last, err
		}
		if !math.IsInf(mS, 0) {
			if salinity, err = p.readRegister(ctx, regSalinity); err != nil {
				return p.last, err
			}
		}
	}
	m.setConductivity(mS, salinity)
	tempC, err := p.readRegister(ctx, regTemp)
	if err != nil {
		return p.last, err
	}
	m.setTemperature(tempC)
	p.last = m
	return m, nil
}

// Measurement returns the last snapshot without touching the bus.
func (p *Probe) Measurement() Measurement {
	return p.last
}

// ReadData refreshes the snapshot and reads back the calibration state.
func (p *Probe) ReadData(ctx context.Context) (Measurement, Calibration, error) {
	m, err := p.Refresh(ctx)
	if err != nil {
		return m, Calibration{}, err
	}
	cal, err := p.ReadCalibration(ctx)
	return m, cal, err
}
