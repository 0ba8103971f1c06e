package access

import "github.com/designengineer/course-api/internal/model"

// CanAccessLesson decides whether level may open lessonPath.  Unknown paths
// are denied regardless of level.  Introduction lessons beyond the free ones,
// and the introduction index, open only for full; track lessons need a
// grant for their exact track×platform pair.
func CanAccessLesson(level model.AccessLevel, lessonPath string) bool {
	loc, ok := Classify(lessonPath)
	if !ok {
		return false
	}
	if IsFreeTierLesson(lessonPath) {
		return true
	}
	if !level.Valid() || level == model.AccessFree {
		return false
	}
	if loc.Track == model.TrackIntroduction {
		return level == model.AccessFull
	}
	if loc.Platform == "" {
		return false
	}
	return level.Allows(loc.Track, loc.Platform)
}

// Decision is the lesson gate outcome returned to the client.
type Decision struct {
	HasAccess       bool              `json:"hasAccess"`
	AccessLevel     model.AccessLevel `json:"accessLevel"`
	RequiresUpgrade bool              `json:"requiresUpgrade"`
	// RequiredAccess is the product that unlocks the lesson.  Set only
	// alongside RequiresUpgrade.
	RequiredAccess model.AccessLevel `json:"requiredAccess,omitempty"`
	// Preview is true when a preview token opened the lesson.
	Preview bool `json:"preview,omitempty"`
}

// Decide wraps CanAccessLesson.  RequiresUpgrade is set only when the path
// is a real lesson that a purchase could unlock.
func Decide(level model.AccessLevel, lessonPath string) Decision {
	has := CanAccessLesson(level, lessonPath)
	loc, known := Classify(lessonPath)
	d := Decision{
		HasAccess:       has,
		AccessLevel:     level,
		RequiresUpgrade: !has && known,
	}
	if d.RequiresUpgrade {
		d.RequiredAccess = RequiredAccess(loc)
	}
	return d
}

// RequiredAccess is the narrowest product that opens lessons at loc.
// Design and engineering lessons map to their track×platform product;
// everything else, convergence and the introduction included, needs full.
func RequiredAccess(loc Location) model.AccessLevel {
	if loc.Platform == "" {
		return model.AccessFull
	}
	switch loc.Track {
	case model.TrackDesign, model.TrackEngineering:
		if l := model.AccessLevel(string(loc.Track) + "_" + string(loc.Platform)); l.Valid() {
			return l
		}
	}
	return model.AccessFull
}
