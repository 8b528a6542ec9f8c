// Package units provides shared constants and validation for bandwidth units
package units

// Unit constants
const (
	BPS  = "bps"
	KBPS = "kbps"
	MBPS = "mbps"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{BPS, KBPS, MBPS}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "bps, kbps, mbps"
}

// ConvertBandwidth converts a bandwidth from bits per second to the target units.
// The store keeps all bandwidth figures in bps.
func ConvertBandwidth(bandwidthBPS float64, targetUnits string) float64 {
	switch targetUnits {
	case KBPS:
		return bandwidthBPS / 1e3
	case MBPS:
		return bandwidthBPS / 1e6
	case BPS:
		return bandwidthBPS // no conversion needed
	default:
		return bandwidthBPS // default to bps if unknown unit
	}
}
