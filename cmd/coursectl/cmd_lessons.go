package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/designengineer/course-api/internal/access"
	"github.com/designengineer/course-api/internal/app"
	"github.com/designengineer/course-api/internal/config"
	"github.com/designengineer/course-api/internal/model"
)

var lessonsCmd = &cobra.Command{
	Use:   "lessons",
	Short: "Manage the lesson catalog used for completion totals",
}

var lessonsImportCmd = &cobra.Command{
	Use:   "import [file.json]",
	Short: "Upsert lessons from a JSON array",
	Long: `Reads a JSON array of {"path", "title", "position"} objects and
upserts them into the catalog.  Track and platform are derived from the
path when omitted; introduction lessons and index pages are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runLessonsImport,
}

var lessonsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the catalog",
	RunE:  runLessonsList,
}

func init() {
	lessonsCmd.AddCommand(lessonsImportCmd)
	lessonsCmd.AddCommand(lessonsListCmd)
}

// prepareLessons fills track and platform from the path and drops entries
// that cannot count toward a certificate.
func prepareLessons(in []model.Lesson) ([]model.Lesson, int, error) {
	out := make([]model.Lesson, 0, len(in))
	skipped := 0
	for i, l := range in {
		l.Path = access.NormalizePath(l.Path)
		loc, ok := access.Classify(l.Path)
		if !ok {
			return nil, 0, fmt.Errorf("lesson %d: unknown path %q", i, l.Path)
		}
		if loc.Index || loc.Platform == "" {
			skipped++
			continue
		}
		if l.Track == "" {
			l.Track = loc.Track
		}
		if l.Platform == "" {
			l.Platform = loc.Platform
		}
		if l.Track != loc.Track || l.Platform != loc.Platform {
			return nil, 0, fmt.Errorf("lesson %d: %s/%s does not match path %q", i, l.Track, l.Platform, l.Path)
		}
		out = append(out, l)
	}
	return out, skipped, nil
}

func runLessonsImport(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	var in []model.Lesson
	if err := json.Unmarshal(raw, &in); err != nil {
		return fmt.Errorf("parse %s: %w", args[0], err)
	}
	lessons, skipped, err := prepareLessons(in)
	if err != nil {
		return err
	}
	return withStores(cmd, func(ctx context.Context, st app.Stores, _ config.Config) error {
		for _, l := range lessons {
			if err := st.Lessons.Upsert(ctx, l); err != nil {
				return fmt.Errorf("upsert %s: %w", l.Path, err)
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d lesson(s), skipped %d\n", len(lessons), skipped)
		return nil
	})
}

func runLessonsList(cmd *cobra.Command, args []string) error {
	return withStores(cmd, func(ctx context.Context, st app.Stores, _ config.Config) error {
		lessons, err := st.Lessons.ListAll(ctx)
		if err != nil {
			return err
		}
		if asJSON {
			return json.NewEncoder(cmd.OutOrStdout()).Encode(lessons)
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TRACK\tPLATFORM\tPOS\tPATH")
		for _, l := range lessons {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", l.Track, l.Platform, l.Position, l.Path)
		}
		return tw.Flush()
	})
}
