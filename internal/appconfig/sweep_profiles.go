// internal/appconfig/sweep_profiles.go
package appconfig

import "strings"

// ProfileName identifies a concurrency-level preset.
type ProfileName string

const (
	ProfileSmoke    ProfileName = "smoke"
	ProfileStandard ProfileName = "standard"
	ProfileStress   ProfileName = "stress"
	ProfileSpike    ProfileName = "spike"
)

// LevelsForProfile selects a concurrency preset by name.
// Behavior:
//   - empty string => Standard (default)
//   - unknown string => Standard (default)
func LevelsForProfile(name string) []int {
	n := normalizeProfileName(name)

	switch ProfileName(n) {
	case ProfileSmoke:
		return []int{1, 2}
	case ProfileStress:
		return []int{8, 16, 32, 64, 128}
	case ProfileSpike:
		// Deliberately non-monotonic: level order is honored as configured,
		// which exposes recovery behavior after a burst.
		return []int{1, 32, 1}
	case ProfileStandard:
		fallthrough
	default:
		return []int{2, 4, 8, 16, 32}
	}
}

// KnownProfiles lists the preset names for help output.
func KnownProfiles() []string {
	return []string{
		string(ProfileSmoke),
		string(ProfileStandard),
		string(ProfileStress),
		string(ProfileSpike),
	}
}

func normalizeProfileName(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	// allow a few friendly aliases
	switch s {
	case "", "default", "full":
		return string(ProfileStandard)
	case "quick", "sanity":
		return string(ProfileSmoke)
	case "burst":
		return string(ProfileSpike)
	}
	return s
}
