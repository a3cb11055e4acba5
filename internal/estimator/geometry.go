package estimator

const (
	// jointAllowanceIn is the glue joint added to wrap-around blanks.
	jointAllowanceIn = 1.5
	// tuckAllowanceIn is the tuck flap on mobile-type mailers.
	tuckAllowanceIn = 1.0
)

// Sheet is the resolved flat blank for one sheet.
type Sheet struct {
	LengthCm float64 `json:"length_cm"`
	WidthCm  float64 `json:"width_cm"`
	LengthIn float64 `json:"length_in"`
	WidthIn  float64 `json:"width_in"`
	AreaM2   float64 `json:"area_m2"`
}

// unfold returns the blank length and width in inches for a box of the given type.
func unfold(boxType BoxType, d BoxDimensions) (length, width float64, err error) {
	l, w, h := d.Length, d.Width, d.Height
	switch boxType {
	case BoxUniversal:
		// Four panels plus joint; top and bottom flaps are W/2 each.
		return 2*(l+w) + jointAllowanceIn, w + h, nil
	case BoxBottomLocking:
		// Top flaps W/2, locking bottom flaps 3W/4.
		return 2*(l+w) + jointAllowanceIn, h + w/2 + 3*w/4, nil
	case BoxMobileType:
		// Roll-end tuck top: side walls fold twice along the length.
		return l + 4*h, 2*w + 3*h + tuckAllowanceIn, nil
	case BoxRingFlap:
		return l + 4*h, w + 2*h, nil
	default:
		return 0, 0, invalidf("unrecognized box type %q", boxType)
	}
}

// resolveSheet normalizes the two input modes into a single sheet in both units.
func resolveSheet(spec BoxSpecification) (Sheet, error) {
	var s Sheet
	switch spec.InputMode {
	case InputBoxDimensions:
		d := spec.BoxDimensions
		if !finite(d.Length) || !finite(d.Width) || !finite(d.Height) ||
			d.Length <= 0 || d.Width <= 0 || d.Height <= 0 {
			return Sheet{}, invalidf("box dimensions must be positive, got %vx%vx%v", d.Length, d.Width, d.Height)
		}
		lengthIn, widthIn, err := unfold(spec.BoxType, d)
		if err != nil {
			return Sheet{}, err
		}
		s.LengthIn, s.WidthIn = lengthIn, widthIn
		s.LengthCm, s.WidthCm = inchesToCm(lengthIn), inchesToCm(widthIn)
	case InputSheetSize:
		if spec.SheetSize == nil {
			return Sheet{}, invalidf("sheet_size is required when input_type is %s", InputSheetSize)
		}
		if _, _, err := unfold(spec.BoxType, BoxDimensions{}); err != nil {
			return Sheet{}, err
		}
		s.LengthCm, s.WidthCm = spec.SheetSize.Length, spec.SheetSize.Width
		s.LengthIn, s.WidthIn = cmToInches(s.LengthCm), cmToInches(s.WidthCm)
	default:
		return Sheet{}, invalidf("unrecognized input type %q", spec.InputMode)
	}

	if !finite(s.LengthCm) || !finite(s.WidthCm) || s.LengthCm <= 0 || s.WidthCm <= 0 {
		return Sheet{}, invalidf("sheet dimensions must be positive, got %vx%v cm", s.LengthCm, s.WidthCm)
	}
	s.AreaM2 = areaM2(s.LengthCm, s.WidthCm)
	if !finite(s.AreaM2) || s.AreaM2 <= 0 {
		return Sheet{}, invalidf("sheet area must be positive, got %v m2", s.AreaM2)
	}
	return s, nil
}
