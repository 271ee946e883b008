package detector

import (
	"os"
	"path/filepath"
)

// BuildTool identifies the build system of a project.
type BuildTool string

const (
	BuildUnknown BuildTool = ""
	BuildMaven   BuildTool = "maven"
	BuildGradle  BuildTool = "gradle"
)

// Layout holds the conventional locations of a build tool.
type Layout struct {
	Tool        BuildTool
	SourceRoots []string
	ClassesDir  string
	Reports     []string
}

// BuildMarker represents a file that indicates a specific build tool.
type BuildMarker struct {
	Filename string
	Tool     BuildTool
	Priority int // Higher priority wins when multiple markers exist
}

// DefaultBuildMarkers defines the project files used for build tool detection.
var DefaultBuildMarkers = []BuildMarker{
	{Filename: "pom.xml", Tool: BuildMaven, Priority: 100},
	{Filename: "mvnw", Tool: BuildMaven, Priority: 90},
	{Filename: "build.gradle", Tool: BuildGradle, Priority: 100},
	{Filename: "build.gradle.kts", Tool: BuildGradle, Priority: 100},
	{Filename: "settings.gradle", Tool: BuildGradle, Priority: 90},
	{Filename: "settings.gradle.kts", Tool: BuildGradle, Priority: 90},
	{Filename: "gradlew", Tool: BuildGradle, Priority: 80},
}

// DetectBuildTool looks for build files in projectDir.
func (d *Detector) DetectBuildTool(projectDir string) BuildTool {
	best := BuildUnknown
	bestPriority := 0
	for _, marker := range DefaultBuildMarkers {
		if _, err := os.Stat(filepath.Join(projectDir, marker.Filename)); err == nil {
			if marker.Priority > bestPriority {
				best = marker.Tool
				bestPriority = marker.Priority
			}
		}
	}
	return best
}

// DefaultLayout returns the conventional directories of tool.
func (d *Detector) DefaultLayout(tool BuildTool) Layout {
	switch tool {
	case BuildGradle:
		return Layout{
			Tool:        BuildGradle,
			SourceRoots: []string{"src/main/java"},
			ClassesDir:  "build/classes/java/main",
			Reports: []string{
				"build/reports/jacoco/test/jacocoTestReport.xml",
				"build/reports/cobertura/coverage.xml",
			},
		}
	case BuildMaven:
		return Layout{
			Tool:        BuildMaven,
			SourceRoots: []string{"src/main/java"},
			ClassesDir:  "target/classes",
			Reports: []string{
				"target/site/jacoco/jacoco.xml",
				"target/site/cobertura/coverage.xml",
			},
		}
	default:
		return Layout{
			SourceRoots: []string{"src/main/java"},
			Reports: []string{
				"target/site/jacoco/jacoco.xml",
				"build/reports/jacoco/test/jacocoTestReport.xml",
				"coverage/lcov.info",
				"coverage.xml",
			},
		}
	}
}

// DetectLayout combines DetectBuildTool and DefaultLayout.
func (d *Detector) DetectLayout(projectDir string) Layout {
	return d.DefaultLayout(d.DetectBuildTool(projectDir))
}

// FindReport returns the first conventional report of layout that exists
// under projectDir, relative to it.
func (d *Detector) FindReport(projectDir string, layout Layout) (string, bool) {
	for _, rel := range layout.Reports {
		info, err := os.Stat(filepath.Join(projectDir, rel))
		if err == nil && !info.IsDir() {
			return rel, true
		}
	}
	return "", false
}
