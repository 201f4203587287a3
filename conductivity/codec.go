package conductivity

import (
	"encoding/binary"
	"math"
	"strconv"
)

// significantDigits is the precision kept on every float crossing the bus.
const significantDigits = 7

// Magnitude returns the number of digits before the decimal point of x
// (negative for values below 0.1). Zero, NaN and infinities map to 0.
func Magnitude(x float64) int {
	if x == 0 || math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return int(math.Floor(math.Log10(math.Abs(x)))) + 1
}

// RoundTotalDigits rounds x so that it keeps the given number of significant
// digits. Ties are resolved half-to-even on the exact binary value.
func RoundTotalDigits(x float64, digits int) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	return roundPlaces(x, digits-Magnitude(x))
}

func roundPlaces(x float64, places int) float64 {
	if places >= 0 {
		v, err := strconv.ParseFloat(strconv.FormatFloat(x, 'f', places, 64), 64)
		if err != nil {
			return x
		}
		return v
	}
	scale := math.Pow10(-places)
	return math.RoundToEven(x/scale) * scale
}

// EncodeFloat packs v as the 4 byte register payload.
func EncodeFloat(v float64) [4]byte {
	var out [4]byte
	n := RoundTotalDigits(v, significantDigits)
	binary.LittleEndian.PutUint32(out[:], math.Float32bits(float32(n)))
	return out
}

// DecodeFloat unpacks a register payload and strips float32 noise.
func DecodeFloat(b [4]byte) float64 {
	f := math.Float32frombits(binary.LittleEndian.Uint32(b[:]))
	return RoundTotalDigits(float64(f), significantDigits)
}
