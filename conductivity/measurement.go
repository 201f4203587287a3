package conductivity

import (
	"errors"
	"math"
)

const (
	// NoReading replaces every conductivity derived value when the probe
	// reports a raw count of zero.
	NoReading = -1.0
	// TempDisconnected is reported by the firmware when no temperature
	// sensor answers. It is passed through to TempF unchanged.
	TempDisconnected = -127.0
)

// TDS conversion factors
const (
	tds500 = 500
	tds640 = 640
	tds700 = 700
)

// Measurement is the last snapshot read from the probe.
type Measurement struct {
	Raw          float64 `yaml:"raw"`
	MilliSiemens float64 `yaml:"mS"`
	MicroSiemens float64 `yaml:"uS"`
	Siemens      float64 `yaml:"S"`
	TDS500       float64 `yaml:"tds_500"`
	TDS640       float64 `yaml:"tds_640"`
	TDS700       float64 `yaml:"tds_700"`
	Salinity     float64 `yaml:"salinity_psu"`
	TempC        float64 `yaml:"temp_c"`
	TempF        float64 `yaml:"temp_f"`
}

func emptyMeasurement() Measurement {
	return Measurement{
		MilliSiemens: NoReading,
		MicroSiemens: NoReading,
		Siemens:      NoReading,
		TDS500:       NoReading,
		TDS640:       NoReading,
		TDS700:       NoReading,
		Salinity:     NoReading,
		TempF:        celsiusToFahrenheit(0),
	}
}

// Valid reports whether the conductivity fields hold a reading.
func (m Measurement) Valid() bool {
	return m.Raw != 0
}

func (m Measurement) TemperatureConnected() bool {
	return m.TempC != TempDisconnected
}

// Err is the error-aware view of the sentinel values.
func (m Measurement) Err() error {
	var errs []error
	if !m.Valid() {
		errs = append(errs, ErrNoReading)
	}
	if !m.TemperatureConnected() {
		errs = append(errs, ErrTemperatureDisconnected)
	}
	return errors.Join(errs...)
}

// setConductivity fills the conductivity fields. An infinite value means
// there is no reading and turns into NoReading everywhere.
func (m *Measurement) setConductivity(mS, salinity float64) {
	if math.IsInf(mS, 0) {
		m.MilliSiemens = NoReading
		m.MicroSiemens = NoReading
		m.Siemens = NoReading
		m.TDS500 = NoReading
		m.TDS640 = NoReading
		m.TDS700 = NoReading
		m.Salinity = NoReading
		return
	}
	m.MilliSiemens = mS
	m.MicroSiemens = mS * 1000
	m.Siemens = mS / 1000
	m.TDS500 = mS * tds500
	m.TDS640 = mS * tds640
	m.TDS700 = mS * tds700
	m.Salinity = salinity
}

func (m *Measurement) setTemperature(tempC float64) {
	m.TempC = tempC
	if tempC == TempDisconnected {
		m.TempF = TempDisconnected
		return
	}
	m.TempF = celsiusToFahrenheit(tempC)
}

func celsiusToFahrenheit(c float64) float64 {
	return c*9/5 + 32
}
