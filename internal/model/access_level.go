package model

import (
	"encoding/json"
	"strings"
)

// AccessLevel is the purchase tier stored on an enrollment.  The set of
// values is closed; anything else read from storage or a request body is
// normalized through NormalizeAccessLevel.
type AccessLevel string

const (
	AccessFree               AccessLevel = "free"
	AccessDesignWeb          AccessLevel = "design_web"
	AccessDesignIOS          AccessLevel = "design_ios"
	AccessDesignAndroid      AccessLevel = "design_android"
	AccessEngineeringWeb     AccessLevel = "engineering_web"
	AccessEngineeringIOS     AccessLevel = "engineering_ios"
	AccessEngineeringAndroid AccessLevel = "engineering_android"
	AccessDesignFull         AccessLevel = "design_full"
	AccessEngineeringFull    AccessLevel = "engineering_full"
	AccessFull               AccessLevel = "full"
)

// AccessLevels lists every level in catalog order.
var AccessLevels = []AccessLevel{
	AccessFree,
	AccessDesignWeb,
	AccessDesignIOS,
	AccessDesignAndroid,
	AccessEngineeringWeb,
	AccessEngineeringIOS,
	AccessEngineeringAndroid,
	AccessDesignFull,
	AccessEngineeringFull,
	AccessFull,
}

// Track is a course track.  Introduction is not purchasable on its own.
type Track string

const (
	TrackIntroduction Track = "introduction"
	TrackDesign       Track = "design"
	TrackEngineering  Track = "engineering"
	TrackConvergence  Track = "convergence"
)

// Platform is the delivery platform a track is taught for.
type Platform string

const (
	PlatformWeb     Platform = "web"
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
)

// Platforms lists the three certificate platforms.
var Platforms = []Platform{PlatformWeb, PlatformIOS, PlatformAndroid}

// CertificateTracks lists the tracks that make up a platform certificate.
var CertificateTracks = []Track{TrackDesign, TrackEngineering, TrackConvergence}

// Grant is one track×platform pair unlocked by an access level.
type Grant struct {
	Track    Track
	Platform Platform
}

func (p Platform) Valid() bool {
	switch p {
	case PlatformWeb, PlatformIOS, PlatformAndroid:
		return true
	}
	return false
}

// Title is the display name used on certificates.
func (p Platform) Title() string {
	switch p {
	case PlatformWeb:
		return "Web"
	case PlatformIOS:
		return "iOS"
	case PlatformAndroid:
		return "Android"
	}
	return string(p)
}

// Valid reports whether t is one of the certificate tracks.
func (t Track) Valid() bool {
	switch t {
	case TrackDesign, TrackEngineering, TrackConvergence:
		return true
	}
	return false
}

func (t Track) Title() string {
	switch t {
	case TrackIntroduction:
		return "Introduction"
	case TrackDesign:
		return "Design"
	case TrackEngineering:
		return "Engineering"
	case TrackConvergence:
		return "Convergence"
	}
	return string(t)
}

// Valid reports whether l is one of the ten canonical levels.
func (l AccessLevel) Valid() bool {
	_, ok := l.grants()
	return ok
}

// Grants returns the track×platform pairs that l unlocks.  Free unlocks
// nothing beyond the free-tier lessons; full also unlocks convergence.
func (l AccessLevel) Grants() []Grant {
	g, _ := l.grants()
	return g
}

func (l AccessLevel) grants() ([]Grant, bool) {
	switch l {
	case AccessFree:
		return nil, true
	case AccessDesignWeb:
		return []Grant{{TrackDesign, PlatformWeb}}, true
	case AccessDesignIOS:
		return []Grant{{TrackDesign, PlatformIOS}}, true
	case AccessDesignAndroid:
		return []Grant{{TrackDesign, PlatformAndroid}}, true
	case AccessEngineeringWeb:
		return []Grant{{TrackEngineering, PlatformWeb}}, true
	case AccessEngineeringIOS:
		return []Grant{{TrackEngineering, PlatformIOS}}, true
	case AccessEngineeringAndroid:
		return []Grant{{TrackEngineering, PlatformAndroid}}, true
	case AccessDesignFull:
		return allPlatforms(TrackDesign), true
	case AccessEngineeringFull:
		return allPlatforms(TrackEngineering), true
	case AccessFull:
		g := allPlatforms(TrackDesign)
		g = append(g, allPlatforms(TrackEngineering)...)
		g = append(g, allPlatforms(TrackConvergence)...)
		return g, true
	}
	return nil, false
}

func allPlatforms(t Track) []Grant {
	out := make([]Grant, 0, len(Platforms))
	for _, p := range Platforms {
		out = append(out, Grant{Track: t, Platform: p})
	}
	return out
}

// Allows reports whether l unlocks the given track and platform.
func (l AccessLevel) Allows(t Track, p Platform) bool {
	for _, g := range l.Grants() {
		if g.Track == t && g.Platform == p {
			return true
		}
	}
	return false
}

// Breadth is the number of track×platform pairs l unlocks.  It orders
// enrollments when a user holds more than one.
func (l AccessLevel) Breadth() int { return len(l.Grants()) }

var accessAliases = map[string]AccessLevel{
	"all":             AccessFull,
	"all_access":      AccessFull,
	"bundle":          AccessFull,
	"convergence":     AccessFull,
	"design":          AccessDesignFull,
	"engineering":     AccessEngineeringFull,
	"temporary_full":  AccessFull,
	"design_all":      AccessDesignFull,
	"engineering_all": AccessEngineeringFull,
}

// NormalizeAccessLevel maps a stored or legacy value onto the closed
// enumeration.  Matching ignores case and surrounding whitespace and treats
// hyphens and spaces as underscores.  ok is false for unrecognized input.
func NormalizeAccessLevel(raw string) (level AccessLevel, ok bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.NewReplacer("-", "_", " ", "_").Replace(s)
	if s == "" {
		return "", false
	}
	if l := AccessLevel(s); l.Valid() {
		return l, true
	}
	if l, found := accessAliases[s]; found {
		return l, true
	}
	return "", false
}

// ResolveAccessLevel is NormalizeAccessLevel with unknown input defaulted
// to free.
func ResolveAccessLevel(raw string) AccessLevel {
	if l, ok := NormalizeAccessLevel(raw); ok {
		return l
	}
	return AccessFree
}

// UnmarshalJSON accepts either a plain string or a CMS select object of the
// form {"key": "...", "value": "..."}.  Unknown values decode to the empty
// level so callers can reject them with Valid.
func (l *AccessLevel) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		var sel struct {
			Key string `json:"key"`
		}
		if err2 := json.Unmarshal(b, &sel); err2 != nil {
			return err
		}
		s = sel.Key
	}
	norm, _ := NormalizeAccessLevel(s)
	*l = norm
	return nil
}
