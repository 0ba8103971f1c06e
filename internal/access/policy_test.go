package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/designengineer/course-api/internal/model"
)

func TestCanAccessLesson_Scenarios(t *testing.T) {
	assert.True(t, CanAccessLesson(model.AccessDesignWeb, "design-track/web/intro"))
	assert.False(t, CanAccessLesson(model.AccessDesignWeb, "engineering-track/ios/intro"))
}

func TestCanAccessLesson_Table(t *testing.T) {
	tests := []struct {
		name  string
		level model.AccessLevel
		path  string
		want  bool
	}{
		{"free sees free intro", model.AccessFree, "00-introduction/01-welcome", true},
		{"free sees first design lesson", model.AccessFree, "design-track/web/01-foundations/01-what-is-visual-design", true},
		{"free sees track index", model.AccessFree, "engineering-track", true},
		{"free sees platform index", model.AccessFree, "convergence/ios", true},
		{"free denied paid lesson", model.AccessFree, "design-track/web/02-color/01-basics", false},
		{"free denied paid intro", model.AccessFree, "00-introduction/05-extra", false},
		{"single product denied paid intro", model.AccessEngineeringIOS, "00-introduction/05-extra", false},
		{"design_full denied paid intro", model.AccessDesignFull, "00-introduction/05-extra", false},
		{"full opens paid intro", model.AccessFull, "00-introduction/05-extra", true},
		{"intro index needs full", model.AccessEngineeringFull, "00-introduction", false},
		{"full opens intro index", model.AccessFull, "00-introduction", true},
		{"design_full opens android design", model.AccessDesignFull, "design-track/android/02-x/01-y", true},
		{"design_full denied engineering", model.AccessDesignFull, "engineering-track/web/02-x/01-y", false},
		{"engineering_full opens ios", model.AccessEngineeringFull, "engineering-track/ios/01-swiftui/02-state", true},
		{"engineering_full denied convergence", model.AccessEngineeringFull, "convergence/web/01-x", false},
		{"full opens convergence", model.AccessFull, "convergence/android/03-x/01-y", true},
		{"platform mismatch", model.AccessDesignIOS, "design-track/web/02-x/01-y", false},
		{"trailing slash tolerated", model.AccessDesignWeb, "/design-track/web/02-x/", true},
		{"invalid level denied", model.AccessLevel("gold"), "design-track/web/02-x/01-y", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanAccessLesson(tt.level, tt.path))
		})
	}
}

func TestCanAccessLesson_FailsClosedForUnknownPaths(t *testing.T) {
	unknown := []string{
		"",
		"/",
		"blog/post",
		"design-track/windows/01-x",
		"design-track/../engineering-track/web/01",
		"design-track//web",
		"DESIGN-TRACK/web/01-x",
	}
	for _, p := range unknown {
		for _, lvl := range model.AccessLevels {
			assert.False(t, CanAccessLesson(lvl, p), "level=%s path=%q", lvl, p)
		}
	}
}

func TestCanAccessLesson_Deterministic(t *testing.T) {
	paths := []string{"design-track/web/intro", "convergence/ios/01-x", "00-introduction/01-welcome", "nope"}
	for _, lvl := range model.AccessLevels {
		for _, p := range paths {
			first := CanAccessLesson(lvl, p)
			for i := 0; i < 3; i++ {
				assert.Equal(t, first, CanAccessLesson(lvl, p))
			}
		}
	}
}

func TestClassify(t *testing.T) {
	loc, ok := Classify("engineering-track/android/00-environment-setup/01-x")
	assert.True(t, ok)
	assert.Equal(t, model.TrackEngineering, loc.Track)
	assert.Equal(t, model.PlatformAndroid, loc.Platform)
	assert.False(t, loc.Index)

	loc, ok = Classify("00-introduction")
	assert.True(t, ok)
	assert.Equal(t, model.TrackIntroduction, loc.Track)
	assert.True(t, loc.Index)

	_, ok = Classify("convergence/tv/01")
	assert.False(t, ok)
}

func TestDecide(t *testing.T) {
	d := Decide(model.AccessDesignWeb, "engineering-track/ios/intro")
	assert.False(t, d.HasAccess)
	assert.True(t, d.RequiresUpgrade)
	assert.Equal(t, model.AccessDesignWeb, d.AccessLevel)

	assert.Equal(t, model.AccessEngineeringIOS, d.RequiredAccess)

	d = Decide(model.AccessFull, "not/a/lesson")
	assert.False(t, d.HasAccess)
	assert.False(t, d.RequiresUpgrade)
	assert.Empty(t, d.RequiredAccess)

	d = Decide(model.AccessDesignWeb, "design-track/web/02-x/01-y")
	assert.True(t, d.HasAccess)
	assert.Empty(t, d.RequiredAccess)
}

func TestDecide_RequiredAccess(t *testing.T) {
	tests := []struct {
		path string
		want model.AccessLevel
	}{
		{"design-track/web/02-color/01-basics", model.AccessDesignWeb},
		{"design-track/ios/02-x/01-y", model.AccessDesignIOS},
		{"design-track/android/02-x/01-y", model.AccessDesignAndroid},
		{"engineering-track/web/02-x/01-y", model.AccessEngineeringWeb},
		{"engineering-track/ios/02-x/01-y", model.AccessEngineeringIOS},
		{"engineering-track/android/02-x/01-y", model.AccessEngineeringAndroid},
		{"convergence/web/01-x", model.AccessFull},
		{"00-introduction/05-extra", model.AccessFull},
		{"00-introduction", model.AccessFull},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			d := Decide(model.AccessFree, tt.path)
			assert.True(t, d.RequiresUpgrade)
			assert.Equal(t, tt.want, d.RequiredAccess)
		})
	}
}

func TestFreeLessonsAreAllClassified(t *testing.T) {
	for _, p := range FreeLessons() {
		_, ok := Classify(p)
		assert.True(t, ok, p)
		assert.True(t, IsFreeTierLesson(p), p)
	}
}
