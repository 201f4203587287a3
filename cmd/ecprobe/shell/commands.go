package shell

import (
	"context"
	"fmt"
	"strconv"

	"github.com/mklimuk/ecprobe/cmd/ecprobe/console"
	"github.com/mklimuk/ecprobe/conductivity"
)

const referenceTemperature = 25.0

var commands = []Command{
	{Name: "config", Usage: "print connection, calibration and compensation settings", Run: configCmd},
	{Name: "reset", Usage: "clear calibration and restore compensation defaults", Run: resetCmd},
	{Name: "temp", Args: "[°C]", Usage: "set the temperature or measure it", Run: tempCmd},
	{Name: "raw", Usage: "measure EC and print the raw reading", Run: rawCmd},
	{Name: "ec", Usage: "measure EC without compensation and print mS", Run: ecCmd},
	{Name: "sal", Usage: "measure salinity", Run: salCmd},
	{Name: "tc", Args: "[0/1] [constant]", Usage: "print or set temperature compensation (constant 255 uses actual)", Run: tcCmd},
	{Name: "dp", Args: "[0/1]", Usage: "print or set dual point calibration use", Run: dpCmd},
	{Name: "low", Args: "[mS] [°C]", Usage: "print or calibrate the low reference point", Run: lowCmd},
	{Name: "high", Args: "[mS] [°C]", Usage: "print or calibrate the high reference point", Run: highCmd},
	{Name: "cal", Args: "[mS] [°C]", Usage: "single point calibration, prints the offset", Run: calCmd},
	{Name: "coef", Args: "[value]", Usage: "print or set the temperature coefficient", Run: coefCmd},
	{Name: "data", Usage: "print the last measurement", Run: dataCmd},
	{Name: "version", Usage: "print hardware and firmware version", Run: versionCmd},
	{Name: "i2c", Args: "address", Usage: "change the device I2C address", Run: i2cCmd},
	{Name: "read", Args: "address", Usage: "read a float from device EEPROM", Run: readCmd},
	{Name: "write", Args: "address value", Usage: "write a float to device EEPROM", Run: writeCmd},
	{Name: "blocking", Args: "[0/1]", Usage: "print or set blocking measurements", Run: blockingCmd},
}

func configCmd(ctx context.Context, s *Shell, _ []string) error {
	connected, err := s.probe.Connected(ctx)
	if err != nil {
		return err
	}
	state := console.Green("connected")
	if !connected {
		state = console.Red("**disconnected**")
	}
	s.printf("EC Interface Config: %s\n", state)
	offset, err := s.probe.CalibrateOffset(ctx)
	if err != nil {
		return err
	}
	s.printf("calibration:\n")
	s.printf("\toffset: %s\n", console.White(offset))
	if err := dpCmd(ctx, s, nil); err != nil {
		return err
	}
	if err := printLow(ctx, s); err != nil {
		return err
	}
	if err := printHigh(ctx, s); err != nil {
		return err
	}
	if err := printCompensation(ctx, s); err != nil {
		return err
	}
	return versionCmd(ctx, s, nil)
}

func resetCmd(ctx context.Context, s *Shell, _ []string) error {
	if err := s.probe.Reset(ctx); err != nil {
		return err
	}
	s.printf("calibration reset\n")
	return nil
}

func tempCmd(ctx context.Context, s *Shell, args []string) error {
	if len(args) > 0 {
		tempC, err := parseFloat(args[0])
		if err != nil {
			return err
		}
		if err := s.probe.SetTemperature(ctx, tempC); err != nil {
			return err
		}
	} else if _, err := s.probe.MeasureTemperature(ctx); err != nil {
		return err
	}
	m := s.probe.Measurement()
	s.printf("C/F: %s / %s\n", console.White(m.TempC), console.White(m.TempF))
	return nil
}

func rawCmd(ctx context.Context, s *Shell, _ []string) error {
	if _, err := s.probe.MeasureConductivity(ctx); err != nil {
		return err
	}
	s.printf("raw: %s\n", console.White(s.probe.Measurement().Raw))
	return nil
}

func ecCmd(ctx context.Context, s *Shell, _ []string) error {
	mS, err := s.probe.MeasureConductivity(ctx, conductivity.WithPolicy(conductivity.CompensateNone))
	if err != nil {
		return err
	}
	s.printf("mS: %s\n", console.White(mS))
	return nil
}

func salCmd(ctx context.Context, s *Shell, _ []string) error {
	psu, err := s.probe.MeasureSalinity(ctx, conductivity.WithPolicy(conductivity.CompensateNone))
	if err != nil {
		return err
	}
	s.printf("salinity PSU: %s\n", console.White(psu))
	return nil
}

func tcCmd(ctx context.Context, s *Shell, args []string) error {
	if len(args) >= 1 {
		enabled, err := parseBool(args[0])
		if err != nil {
			return err
		}
		if err := s.probe.UseTemperatureCompensation(ctx, enabled); err != nil {
			return err
		}
	}
	if len(args) >= 2 {
		constant, err := parseFloat(args[1])
		if err != nil {
			return err
		}
		if err := s.probe.SetTempConstant(ctx, constant); err != nil {
			return err
		}
	}
	return printCompensation(ctx, s)
}

func printCompensation(ctx context.Context, s *Shell) error {
	enabled, err := s.probe.UsingTemperatureCompensation(ctx)
	if err != nil {
		return err
	}
	constant, err := s.probe.TempConstant(ctx)
	if err != nil {
		return err
	}
	s.printf("\ttemp. compensation: %s\n", console.Bool(enabled))
	s.printf("\t\tconstant: %s\n", console.White(constant))
	return nil
}

func dpCmd(ctx context.Context, s *Shell, args []string) error {
	if len(args) >= 1 {
		enabled, err := parseBool(args[0])
		if err != nil {
			return err
		}
		if err := s.probe.UseDualPoint(ctx, enabled); err != nil {
			return err
		}
	}
	enabled, err := s.probe.UsingDualPoint(ctx)
	if err != nil {
		return err
	}
	s.printf("\tdual point: %s\n", console.Bool(enabled))
	return nil
}

func lowCmd(ctx context.Context, s *Shell, args []string) error {
	if len(args) > 0 {
		solution, tempC, err := parseCalibration(args)
		if err != nil {
			return err
		}
		if err := s.probe.CalibrateLow(ctx, solution, tempC); err != nil {
			return err
		}
	}
	return printLow(ctx, s)
}

func printLow(ctx context.Context, s *Shell) error {
	ref, err := s.probe.CalibrateLowReference(ctx)
	if err != nil {
		return err
	}
	reading, err := s.probe.CalibrateLowReading(ctx)
	if err != nil {
		return err
	}
	s.printf("\tlow reference / reading: %s / %s\n", console.White(ref), console.White(reading))
	return nil
}

func highCmd(ctx context.Context, s *Shell, args []string) error {
	if len(args) > 0 {
		solution, tempC, err := parseCalibration(args)
		if err != nil {
			return err
		}
		if _, err := s.probe.CalibrateHigh(ctx, solution, tempC); err != nil {
			return err
		}
	}
	return printHigh(ctx, s)
}

func printHigh(ctx context.Context, s *Shell) error {
	ref, err := s.probe.CalibrateHighReference(ctx)
	if err != nil {
		return err
	}
	reading, err := s.probe.CalibrateHighReading(ctx)
	if err != nil {
		return err
	}
	s.printf("\thigh reference / reading: %s / %s\n", console.White(ref), console.White(reading))
	return nil
}

func calCmd(ctx context.Context, s *Shell, args []string) error {
	if len(args) > 0 {
		solution, tempC, err := parseCalibration(args)
		if err != nil {
			return err
		}
		if err := s.probe.Calibrate(ctx, solution, tempC); err != nil {
			return err
		}
	}
	offset, err := s.probe.CalibrateOffset(ctx)
	if err != nil {
		return err
	}
	s.printf("offset: %s\n", console.White(offset))
	return nil
}

func coefCmd(ctx context.Context, s *Shell, args []string) error {
	if len(args) > 0 {
		coef, err := parseFloat(args[0])
		if err != nil {
			return err
		}
		if err := s.probe.SetTempCoefficient(ctx, coef); err != nil {
			return err
		}
	}
	coef, err := s.probe.TempCoefficient(ctx)
	if err != nil {
		return err
	}
	s.printf("temp. coefficient: %s\n", console.White(coef))
	return nil
}

func dataCmd(_ context.Context, s *Shell, _ []string) error {
	m := s.probe.Measurement()
	s.printf("raw: %s\n", console.White(m.Raw))
	s.printf("S: %s\n", console.White(m.Siemens))
	s.printf("mS: %s\n", console.White(m.MilliSiemens))
	s.printf("uS: %s\n", console.White(m.MicroSiemens))
	s.printf("TDS 500 | 640 | 700: %s | %s | %s\n", console.White(m.TDS500), console.White(m.TDS640), console.White(m.TDS700))
	s.printf("salinity PSU: %s\n", console.White(m.Salinity))
	s.printf("C/F: %s / %s\n", console.White(m.TempC), console.White(m.TempF))
	return nil
}

func versionCmd(ctx context.Context, s *Shell, _ []string) error {
	hw, err := s.probe.Version(ctx)
	if err != nil {
		return err
	}
	fw, err := s.probe.FirmwareVersion(ctx)
	if err != nil {
		return err
	}
	s.printf("\tversion: %s\n", console.White(fmt.Sprintf("%d.%d", hw, fw)))
	return nil
}

func i2cCmd(ctx context.Context, s *Shell, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: expected an address", ErrInvalidArgument)
	}
	address, err := strconv.ParseInt(args[0], 0, 32)
	if err != nil {
		return fmt.Errorf("%w: %q is not an address", ErrInvalidArgument, args[0])
	}
	if err := s.probe.SetI2CAddress(ctx, int(address)); err != nil {
		return err
	}
	s.printf("address: %s\n", console.White(fmt.Sprintf("%#x", s.probe.Address())))
	return nil
}

func readCmd(ctx context.Context, s *Shell, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: expected an EEPROM address", ErrInvalidArgument)
	}
	address, err := parseByte(args[0])
	if err != nil {
		return err
	}
	v, err := s.probe.ReadEEPROM(ctx, address)
	if err != nil {
		return err
	}
	s.printf("%s\n", console.White(v))
	return nil
}

func writeCmd(ctx context.Context, s *Shell, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: expected an EEPROM address and a value", ErrInvalidArgument)
	}
	address, err := parseByte(args[0])
	if err != nil {
		return err
	}
	v, err := parseFloat(args[1])
	if err != nil {
		return err
	}
	return s.probe.WriteEEPROM(ctx, address, v)
}

func blockingCmd(_ context.Context, s *Shell, args []string) error {
	if len(args) > 0 {
		blocking, err := parseBool(args[0])
		if err != nil {
			return err
		}
		s.probe.SetBlocking(blocking)
	}
	s.printf("blocking: %s\n", console.Bool(s.probe.Blocking()))
	return nil
}

// parseCalibration reads [mS] [°C] with the temperature defaulting to the
// reference temperature.
func parseCalibration(args []string) (float64, float64, error) {
	solution, err := parseFloat(args[0])
	if err != nil {
		return 0, 0, err
	}
	tempC := referenceTemperature
	if len(args) > 1 {
		if tempC, err = parseFloat(args[1]); err != nil {
			return 0, 0, err
		}
	}
	return solution, tempC, nil
}

func parseFloat(arg string) (float64, error) {
	v, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidArgument, arg)
	}
	return v, nil
}

func parseBool(arg string) (bool, error) {
	v, err := strconv.ParseBool(arg)
	if err != nil {
		return false, fmt.Errorf("%w: %q is not 0 or 1", ErrInvalidArgument, arg)
	}
	return v, nil
}

func parseByte(arg string) (byte, error) {
	v, err := strconv.ParseUint(arg, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a byte", ErrInvalidArgument, arg)
	}
	return byte(v), nil
}
