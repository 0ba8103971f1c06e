// Package access holds the lesson gating policy.  Everything here is a pure
// function of an access level and a lesson path; enrollment lookup lives in
// the service package.
package access

import (
	"strings"

	"github.com/designengineer/course-api/internal/model"
)

const introductionPrefix = "00-introduction"

// trackDirs maps the first path segment of a lesson to its track.
var trackDirs = map[string]model.Track{
	"design-track":      model.TrackDesign,
	"engineering-track": model.TrackEngineering,
	"convergence":       model.TrackConvergence,
}

// TrackDir returns the path segment lessons of t live under.
func TrackDir(t model.Track) string {
	switch t {
	case model.TrackIntroduction:
		return introductionPrefix
	case model.TrackDesign:
		return "design-track"
	case model.TrackEngineering:
		return "engineering-track"
	case model.TrackConvergence:
		return "convergence"
	}
	return ""
}

// freeLessons is the first lesson of every track×platform plus the
// introduction lessons.
var freeLessons = map[string]struct{}{
	"00-introduction/01-welcome":                                                            {},
	"00-introduction/02-what-is-design-engineering":                                         {},
	"00-introduction/03-choosing-your-path":                                                 {},
	"00-introduction/04-how-this-course-works":                                              {},
	"design-track/web/01-foundations/01-what-is-visual-design":                              {},
	"design-track/ios/01-hig-fundamentals/01-ios-design-philosophy":                         {},
	"design-track/android/01-material-design/01-material-design-philosophy":                 {},
	"engineering-track/web/00-environment-setup/01-your-new-best-friend-the-terminal":       {},
	"engineering-track/ios/00-environment-setup/01-getting-started-with-xcode":              {},
	"engineering-track/android/00-environment-setup/01-getting-started-with-android-studio": {},
}

// Location is the (track, platform) pair a lesson path belongs to.
// Platform is empty for introduction lessons and track index pages.
type Location struct {
	Track    model.Track
	Platform model.Platform
	// Index is true for track and platform landing pages.
	Index bool
}

// NormalizePath trims whitespace and surrounding slashes.  It returns ""
// for paths with empty or relative segments so they classify as unknown.
func NormalizePath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return ""
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return ""
		}
	}
	return p
}

// Classify resolves a lesson path to its location.  ok is false for any
// path outside the known track prefixes.
func Classify(lessonPath string) (loc Location, ok bool) {
	p := NormalizePath(lessonPath)
	if p == "" {
		return Location{}, false
	}
	segs := strings.Split(p, "/")
	if segs[0] == introductionPrefix {
		return Location{Track: model.TrackIntroduction, Index: len(segs) == 1}, true
	}
	track, found := trackDirs[segs[0]]
	if !found {
		return Location{}, false
	}
	if len(segs) == 1 {
		return Location{Track: track, Index: true}, true
	}
	platform := model.Platform(segs[1])
	if !platform.Valid() {
		return Location{}, false
	}
	return Location{Track: track, Platform: platform, Index: len(segs) == 2}, true
}

// IsFreeTierLesson reports whether anyone, signed in or not, may open the
// lesson: track and platform index pages and the curated free lessons.
func IsFreeTierLesson(lessonPath string) bool {
	loc, ok := Classify(lessonPath)
	if !ok {
		return false
	}
	if loc.Index && loc.Track != model.TrackIntroduction {
		return true
	}
	_, free := freeLessons[NormalizePath(lessonPath)]
	return free
}

// FreeLessons returns the curated free lesson paths.
func FreeLessons() []string {
	out := make([]string, 0, len(freeLessons))
	for p := range freeLessons {
		out = append(out, p)
	}
	return out
}
