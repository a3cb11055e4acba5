package estimator

const (
	// CmPerInch converts box dimensions (inch) to sheet geometry (cm).
	CmPerInch = 2.54
	// SqInPerSqM converts sheet area to the unit lamination is priced in.
	SqInPerSqM = 1550.0031
)

func inchesToCm(in float64) float64 { return in * CmPerInch }

func cmToInches(cm float64) float64 { return cm / CmPerInch }

func sqMToSqIn(m2 float64) float64 { return m2 * SqInPerSqM }

// areaM2 returns the area of a length x width rectangle given in centimetres.
func areaM2(lengthCm, widthCm float64) float64 {
	return (lengthCm / 100.0) * (widthCm / 100.0)
}
