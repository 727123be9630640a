package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Artifact file names
const (
	JSONFile     = "report.json"
	MarkdownFile = "report.md"
)

// ArtifactWriter writes the report files of a run
type ArtifactWriter struct {
	outputDir string
}

// NewArtifactWriter creates a new artifact writer
func NewArtifactWriter(outputDir string) *ArtifactWriter {
	return &ArtifactWriter{
		outputDir: outputDir,
	}
}

// WriteAll writes the selected artifact formats and returns their paths
func (w *ArtifactWriter) WriteAll(r *Report, writeJSON, writeMarkdown bool) ([]string, error) {
	if !writeJSON && !writeMarkdown {
		return nil, nil
	}

	// Ensure output directory exists
	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var paths []string
	if writeJSON {
		path, err := w.WriteJSON(r)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	if writeMarkdown {
		path, err := w.WriteMarkdown(r)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// WriteJSON writes the full report as JSON
func (w *ArtifactWriter) WriteJSON(r *Report) (string, error) {
	path := filepath.Join(w.outputDir, JSONFile)

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}

	if writeErr := os.WriteFile(path, data, 0600); writeErr != nil {
		return "", fmt.Errorf("failed to write report JSON: %w", writeErr)
	}
	return path, nil
}

// WriteMarkdown writes a human-readable markdown summary
func (w *ArtifactWriter) WriteMarkdown(r *Report) (string, error) {
	path := filepath.Join(w.outputDir, MarkdownFile)

	var md strings.Builder

	// Header
	md.WriteString("# partyprobe run report\n\n")
	md.WriteString(fmt.Sprintf("**Run:** %s\n\n", r.RunID))
	md.WriteString(fmt.Sprintf("**Target:** %s\n\n", r.TargetURL))
	md.WriteString(fmt.Sprintf("**Started:** %s\n\n", r.StartedAt.Format(time.RFC3339)))
	md.WriteString(fmt.Sprintf("**Finished:** %s\n\n", r.FinishedAt.Format(time.RFC3339)))
	md.WriteString(fmt.Sprintf("**Duration:** %s\n\n", r.Duration()))

	// Agents
	md.WriteString("## Agents\n\n")
	md.WriteString("| Agent | Role | Rounds | Result |\n|---|---|---|---|\n")
	for _, a := range r.Agents {
		status := "✅ success"
		if !a.Result.Success {
			status = "❌ " + escapeCell(a.Result.Reason)
		}
		md.WriteString(fmt.Sprintf("| %s | %s | %d | %s |\n", escapeCell(a.Name), a.Role, len(a.Rounds), status))
	}
	md.WriteString("\n")

	// Issues
	md.WriteString(fmt.Sprintf("## Issues (%d)\n\n", len(r.Issues)))
	if len(r.Issues) == 0 {
		md.WriteString("No issues detected.\n")
	} else {
		for _, c := range r.Counts() {
			md.WriteString(fmt.Sprintf("- **%s:** %d\n", c.Kind, c.Count))
		}
		md.WriteString("\n| Time | Agent | Kind | Message | Screenshot |\n|---|---|---|---|---|\n")
		for _, i := range r.Issues {
			shot := ""
			if i.Screenshot != "" {
				shot = fmt.Sprintf("[%s](%s)", filepath.Base(i.Screenshot), i.Screenshot)
			}
			md.WriteString(fmt.Sprintf("| %s | %s | `%s` | %s | %s |\n",
				i.Timestamp.Format("15:04:05.000"), escapeCell(i.Agent), i.Kind, escapeCell(i.Message), shot))
		}
	}

	// Write file
	if writeErr := os.WriteFile(path, []byte(md.String()), 0600); writeErr != nil {
		return "", fmt.Errorf("failed to write report markdown: %w", writeErr)
	}
	return path, nil
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
