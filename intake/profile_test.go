package intake

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadProfileYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "profile.yaml", `
academic_program: "MSc Data Science"
field_of_study: "Data Science"
research_area: "Urban mobility patterns"
weekly_hours: 12
total_timeline:
  value: 6
  unit: "months"
existing_skills:
  - python
  - gis
`)

	profile, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("LoadProfile() error = %v", err)
	}
	if profile.ResearchArea != "Urban mobility patterns" {
		t.Errorf("unexpected research area: %s", profile.ResearchArea)
	}
	if profile.TotalTimeline.Value != 6 || profile.TotalTimeline.Unit != "months" {
		t.Errorf("timeline not parsed: %+v", profile.TotalTimeline)
	}
	if len(profile.ExistingSkills) != 2 {
		t.Errorf("expected 2 skills, got %d", len(profile.ExistingSkills))
	}
}

func TestLoadProfileJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "profile.json", `{
		"academic_program": "BSc Sociology",
		"field_of_study": "Sociology",
		"research_area": "Remote work culture",
		"weekly_hours": 8,
		"total_timeline": {"value": 16, "unit": "weeks"}
	}`)

	profile, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("LoadProfile() error = %v", err)
	}
	if profile.WeeklyHours != 8 {
		t.Errorf("unexpected weekly hours: %d", profile.WeeklyHours)
	}
}

func TestLoadProfileInvalid(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name:    "missing required fields",
			file:    "incomplete.yaml",
			content: "academic_program: \"BSc\"\n",
		},
		{
			name:    "zero weekly hours",
			file:    "hours.yaml",
			content: "academic_program: a\nfield_of_study: b\nresearch_area: c\nweekly_hours: 0\ntotal_timeline:\n  value: 6\n  unit: months\n",
		},
		{
			name:    "malformed yaml",
			file:    "broken.yaml",
			content: "academic_program: [unclosed\n",
		},
		{
			name:    "malformed json",
			file:    "broken.json",
			content: "{not json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.file, tt.content)
			if _, err := LoadProfile(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadProfileMissingFile(t *testing.T) {
	if _, err := LoadProfile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
