package domain

// Glucose units accepted by the API.
const (
	UnitMgDL   = "mg/dL"
	UnitMmolL  = "mmol/L"
	mgdlToMmol = 18.0182
)

// ConvertGlucose converts a glucose value between "mg/dL" and "mmol/L".
// Returns v unchanged if from == to or if the units are unrecognised.
func ConvertGlucose(v float64, from, to string) float64 {
	if from == to {
		return v
	}
	if from == UnitMgDL && to == UnitMmolL {
		return v / mgdlToMmol
	}
	if from == UnitMmolL && to == UnitMgDL {
		return v * mgdlToMmol
	}
	return v
}

// ValidUnit reports whether u is a supported glucose unit.
func ValidUnit(u string) bool {
	return u == UnitMgDL || u == UnitMmolL
}
