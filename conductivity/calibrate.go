package conductivity

import (
	"context"
	"fmt"
	"math"
)

// Calibration is the calibration state stored in the device EEPROM. Values
// that were never calibrated read back as NaN.
type Calibration struct {
	Offset          float64 `yaml:"offset"`
	LowReference    float64 `yaml:"low_reference"`
	LowReading      float64 `yaml:"low_reading"`
	HighReference   float64 `yaml:"high_reference"`
	HighReading     float64 `yaml:"high_reading"`
	TempCoefficient float64 `yaml:"temp_coefficient"`
	TempConstant    float64 `yaml:"temp_constant"`
}

// Calibrate performs a single point calibration with a solution of the given
// conductivity (mS/cm) measured at tempC.
func (p *Probe) Calibrate(ctx context.Context, solutionMS, tempC float64) error {
	return p.calibrate(ctx, cmdCalibrate, solutionMS, tempC)
}

// CalibrateLow stores the low point of a dual point calibration.
func (p *Probe) CalibrateLow(ctx context.Context, solutionMS, tempC float64) error {
	return p.calibrate(ctx, cmdCalibrateLo, solutionMS, tempC)
}

// CalibrateHigh stores the high point of a dual point calibration and returns
// the reading the device recorded for it.
func (p *Probe) CalibrateHigh(ctx context.Context, solutionMS, tempC float64) (float64, error) {
	if err := p.calibrate(ctx, cmdCalibrateHi, solutionMS, tempC); err != nil {
		return 0, err
	}
	return p.CalibrateHighReading(ctx)
}

func (p *Probe) calibrate(ctx context.Context, cmd byte, solutionMS, tempC float64) error {
	solution, err := p.toReferenceTemperature(ctx, solutionMS, tempC)
	if err != nil {
		return err
	}
	if err := p.writeRegister(ctx, regSolution, solution); err != nil {
		return err
	}
	if err := p.sendCommand(ctx, cmd); err != nil {
		return err
	}
	return p.wait(ctx, p.config.ECMeasureTime)
}

// toReferenceTemperature converts a solution conductivity measured at tempC
// to its 25°C equivalent using the device temperature coefficient.
func (p *Probe) toReferenceTemperature(ctx context.Context, mS, tempC float64) (float64, error) {
	if tempC == defaultTemperature {
		return mS, nil
	}
	coef, err := p.TempCoefficient(ctx)
	if err != nil {
		return 0, fmt.Errorf("could not read temperature coefficient: %w", err)
	}
	return mS / (1 - coef*(tempC-defaultTemperature)), nil
}

func (p *Probe) CalibrateOffset(ctx context.Context) (float64, error) {
	return p.readRegister(ctx, regOffset)
}

func (p *Probe) SetCalibrateOffset(ctx context.Context, offset float64) error {
	return p.writeRegister(ctx, regOffset, offset)
}

func (p *Probe) CalibrateLowReference(ctx context.Context) (float64, error) {
	return p.readRegister(ctx, regLowReference)
}

func (p *Probe) CalibrateLowReading(ctx context.Context) (float64, error) {
	return p.readRegister(ctx, regLowReading)
}

func (p *Probe) CalibrateHighReference(ctx context.Context) (float64, error) {
	return p.readRegister(ctx, regHighReference)
}

func (p *Probe) CalibrateHighReading(ctx context.Context) (float64, error) {
	return p.readRegister(ctx, regHighReading)
}

// SetDualPointCalibration restores a dual point calibration recorded earlier.
func (p *Probe) SetDualPointCalibration(ctx context.Context, refLow, refHigh, readLow, readHigh float64) error {
	for _, w := range []struct {
		reg   byte
		value float64
	}{
		{regLowReference, refLow},
		{regHighReference, refHigh},
		{regLowReading, readLow},
		{regHighReading, readHigh},
	} {
		if err := p.writeRegister(ctx, w.reg, w.value); err != nil {
			return err
		}
	}
	return nil
}

func (p *Probe) TempConstant(ctx context.Context) (float64, error) {
	return p.readRegister(ctx, regTempConstant)
}

func (p *Probe) SetTempConstant(ctx context.Context, constant float64) error {
	return p.writeRegister(ctx, regTempConstant, constant)
}

func (p *Probe) TempCoefficient(ctx context.Context) (float64, error) {
	return p.readRegister(ctx, regTempCoefficient)
}

func (p *Probe) SetTempCoefficient(ctx context.Context, coef float64) error {
	return p.writeRegister(ctx, regTempCoefficient, coef)
}

func (p *Probe) ReadCalibration(ctx context.Context) (Calibration, error) {
	var cal Calibration
	for _, r := range []struct {
		reg byte
		dst *float64
	}{
		{regOffset, &cal.Offset},
		{regLowReference, &cal.LowReference},
		{regLowReading, &cal.LowReading},
		{regHighReference, &cal.HighReference},
		{regHighReading, &cal.HighReading},
		{regTempCoefficient, &cal.TempCoefficient},
		{regTempConstant, &cal.TempConstant},
	} {
		v, err := p.readRegister(ctx, r.reg)
		if err != nil {
			return cal, err
		}
		*r.dst = v
	}
	return cal, nil
}

// Reset clears the calibration and restores compensation defaults. There is
// no way back short of calibrating again.
func (p *Probe) Reset(ctx context.Context) error {
	nan := math.NaN()
	for _, reg := range []byte{regOffset, regHighReference, regLowReference, regHighReading, regLowReading} {
		if err := p.writeRegister(ctx, reg, nan); err != nil {
			return fmt.Errorf("could not clear calibration: %w", err)
		}
	}
	if err := p.SetTempConstant(ctx, defaultTemperature); err != nil {
		return fmt.Errorf("could not reset temperature constant: %w", err)
	}
	if err := p.SetTempCoefficient(ctx, defaultTempCoefficient); err != nil {
		return fmt.Errorf("could not reset temperature coefficient: %w", err)
	}
	if err := p.UseTemperatureCompensation(ctx, false); err != nil {
		return fmt.Errorf("could not disable temperature compensation: %w", err)
	}
	return nil
}
