// Package mains works out the local electrical mains frequency, which sets
// where hum is measured in a recording.
package mains

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	tz "github.com/medama-io/go-timezone-country"
	"github.com/thlib/go-timezone-local/tzlocal"
)

// DefaultHz is used when the location is unknown. Most of the world is on 50 Hz.
const DefaultHz = 50

// Info describes how a mains frequency was chosen.
type Info struct {
	Hz       int
	Timezone string // IANA name, empty when not looked up
	Country  string // empty when the timezone has no country
	Source   string // "config", "timezone" or "default"
}

func (i Info) String() string {
	switch i.Source {
	case "timezone":
		if i.Country != "" {
			return fmt.Sprintf("%d Hz (%s, %s)", i.Hz, i.Country, i.Timezone)
		}
		return fmt.Sprintf("%d Hz (%s)", i.Hz, i.Timezone)
	case "config":
		return fmt.Sprintf("%d Hz (configured)", i.Hz)
	default:
		return fmt.Sprintf("%d Hz (default)", i.Hz)
	}
}

// Resolve turns a configured setting into a frequency. "auto" and the empty
// string detect from the system timezone; "50" and "60" are taken as given.
func Resolve(setting string) (Info, error) {
	switch s := strings.ToLower(strings.TrimSpace(setting)); s {
	case "", "auto":
		return Detect(), nil
	case "50", "60":
		hz, _ := strconv.Atoi(s)
		return Info{Hz: hz, Source: "config"}, nil
	default:
		return Info{}, fmt.Errorf("mains frequency must be auto, 50 or 60, got %q", setting)
	}
}

// Detect looks up the runtime timezone. Falls back to DefaultHz.
func Detect() Info {
	name, err := tzlocal.RuntimeTZ()
	if err != nil || name == "" {
		return Info{Hz: DefaultHz, Source: "default"}
	}
	return ForTimezone(name)
}

// ForTimezone maps an IANA timezone to its country's mains frequency.
func ForTimezone(name string) Info {
	info := Info{Hz: DefaultHz, Timezone: name, Source: "timezone"}
	if name == "UTC" || name == "GMT" || strings.HasPrefix(name, "Etc/") {
		return info
	}

	countries, err := tz.NewTimezoneCountryMap()
	if err != nil {
		info.Source = "default"
		return info
	}
	country, err := countries.GetCountry(name)
	if err != nil {
		info.Source = "default"
		return info
	}
	info.Country = country
	info.Hz = forCountry(country)
	return info
}

func forCountry(country string) int {
	if slices.Contains(sixtyHertz, country) {
		return 60
	}
	return DefaultHz
}

// sixtyHertz lists countries on 60 Hz mains. Japan is split by region and
// stays on the default, which covers the Tokyo area. Brazil is mixed but
// mostly 60 Hz.
var sixtyHertz = []string{
	"American Samoa", "Bahamas", "Barbados", "Belize", "Brazil",
	"Canada", "Cayman Islands", "Colombia", "Costa Rica", "Cuba",
	"Dominican Republic", "Ecuador", "El Salvador", "Guam", "Guatemala",
	"Guyana", "Haiti", "Honduras", "Jamaica", "Marshall Islands",
	"Mexico", "Micronesia", "Nicaragua", "Palau", "Panama",
	"Peru", "Philippines", "Puerto Rico", "Saudi Arabia", "South Korea",
	"Suriname", "Taiwan", "Trinidad and Tobago", "U.S. Virgin Islands", "United States",
	"Venezuela",
}
