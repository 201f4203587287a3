package conductivity

// Register map (byte offsets, firmware defined). Float registers span four
// bytes, little-endian IEEE-754.
const (
	regVersion         byte = 0
	regMS              byte = 1
	regTemp            byte = 5
	regSolution        byte = 9
	regTempCoefficient byte = 13
	regHighReference   byte = 17
	regLowReference    byte = 21
	regHighReading     byte = 25
	regLowReading      byte = 29
	regOffset          byte = 33
	regSalinity        byte = 37
	regRaw             byte = 41
	regTempConstant    byte = 45
	regBuffer          byte = 49
	regFirmware        byte = 53
	regConfig          byte = 54
	regTask            byte = 55

	registerFileSize = 56
)

// Task commands written to regTask. Parameters must be staged in their
// registers before the command byte is sent.
const (
	cmdMeasureEC   byte = 80
	cmdMeasureTemp byte = 40
	cmdCalibrate   byte = 20
	cmdCalibrateLo byte = 10
	cmdCalibrateHi byte = 8
	cmdI2CAddress  byte = 4
	cmdEEPROMRead  byte = 2
	cmdEEPROMWrite byte = 1
)

// config register bits
const (
	flagDualPoint        ConfigFlags = 1 << 0
	flagTempCompensation ConfigFlags = 1 << 1
)

// versionDisconnected is what a floating or erased bus returns for the
// version register.
const versionDisconnected = 0xFF

// ConfigFlags mirrors the device config register.
type ConfigFlags byte

func (f ConfigFlags) TemperatureCompensation() bool {
	return f&flagTempCompensation != 0
}

func (f ConfigFlags) DualPoint() bool {
	return f&flagDualPoint != 0
}

func (f ConfigFlags) WithTemperatureCompensation(on bool) ConfigFlags {
	return ConfigFlags(bitSet(byte(f), byte(flagTempCompensation), on))
}

func (f ConfigFlags) WithDualPoint(on bool) ConfigFlags {
	return ConfigFlags(bitSet(byte(f), byte(flagDualPoint), on))
}

func bitSet(v byte, mask byte, on bool) byte {
	v &^= mask
	if on {
		v |= mask
	}
	return v
}
