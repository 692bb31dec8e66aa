package reading

// Risk is a mold-growth risk level.
type Risk string

// Risk levels.
const (
	RiskNone     Risk = "none"
	RiskModerate Risk = "moderate"
	RiskHigh     Risk = "high"
)

// MoldRisk grades conditions for mold growth. Temperature is in °F.
// Without a humidity value the risk is RiskNone.
func MoldRisk(temperature int, humidity *int) Risk {
	if humidity == nil {
		return RiskNone
	}
	h := *humidity

	if temperature >= 77 && temperature <= 86 && h > 70 {
		return RiskHigh
	}
	if temperature >= 32 && temperature <= 100 && h > 60 {
		return RiskModerate
	}
	return RiskNone
}
