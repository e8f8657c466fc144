package history

import "math"

// BMI categories per the WHO adult ranges.
const (
	CategoryUnderweight = "Underweight"
	CategoryNormal      = "Normal weight"
	CategoryOverweight  = "Overweight"
	CategoryObese       = "Obese"
)

// BMI computes body mass index from a height and a weight in kilograms,
// rounded to one decimal. Heights above 3 are taken as centimetres and
// converted; values at or below 3 are already metres. Returns 0 when either
// input is non-positive.
func BMI(height, weightKg float64) float64 {
	if height <= 0 || weightKg <= 0 {
		return 0
	}
	meters := height
	if height > 3 {
		meters = height / 100
	}
	bmi := weightKg / (meters * meters)
	return math.Round(bmi*10) / 10
}

// BMICategory maps a BMI value to its clinical band. Returns "" for a zero
// or negative value.
func BMICategory(bmi float64) string {
	switch {
	case bmi <= 0:
		return ""
	case bmi < 18.5:
		return CategoryUnderweight
	case bmi < 25:
		return CategoryNormal
	case bmi < 30:
		return CategoryOverweight
	default:
		return CategoryObese
	}
}
