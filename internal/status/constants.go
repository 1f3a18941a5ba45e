// internal/status/constants.go
package status

// Device health codes.
// These values are exported as a metric and MUST NOT be renumbered.

// HealthUnknown represents the boot state before the first sample.
const HealthUnknown uint16 = 0

// HealthOK represents a device that answered the last sample.
const HealthOK uint16 = 1

// HealthError represents a device whose last sample failed.
const HealthError uint16 = 2

// HealthName returns a readable name for a health code.
func HealthName(h uint16) string {
	switch h {
	case HealthUnknown:
		return "unknown"
	case HealthOK:
		return "ok"
	case HealthError:
		return "error"
	default:
		return "invalid"
	}
}
