// package formatter renders catalog and fetch results for the terminal and exports fetch manifests (CSV, Markdown, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/desertthunder/soundbridge/internal/tasks"
)

// ExportToCSV converts a fetch result to CSV with columns: Track ID, Title, Artist, Album, Duration, Status, Path, Source
func ExportToCSV(result *tasks.FetchResult) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Track ID", "Title", "Artist", "Album", "Duration", "Status", "Path", "Source"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, res := range result.Tracks {
		var album, path, source string
		if res.Track.TrackInfo != nil {
			album = res.Track.TrackInfo.Album
		}
		if res.File != nil {
			path, source = res.File.Path, res.File.SourceURL
		}

		record := []string{
			res.Track.ID,
			res.Track.Name,
			res.Track.Artist,
			album,
			strconv.Itoa(res.Track.DurationMs() / 1000),
			res.Status.String(),
			path,
			source,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a fetch result to a Markdown report.
func ExportToMarkdown(result *tasks.FetchResult) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", result.Collection.Name)
	if result.Collection.Artist != "" {
		fmt.Fprintf(&buf, "**By**: %s\n\n", result.Collection.Artist)
	}

	fmt.Fprintf(&buf, "**Tracks**: %d\n", result.Total)
	fmt.Fprintf(&buf, "**Fetched**: %d\n", result.Found)
	fmt.Fprintf(&buf, "**Not found**: %d\n", result.NotFound)
	fmt.Fprintf(&buf, "**Failed**: %d\n\n", result.Failed)

	buf.WriteString("## Tracks\n\n")
	for i, res := range result.Tracks {
		mark := "x"
		if res.Status != tasks.StatusFound {
			mark = " "
		}
		fmt.Fprintf(&buf, "%d. [%s] %s - %s [%s]", i+1, mark, res.Track.Artist, res.Track.Name, FormatDurationMs(res.Track.DurationMs()))
		switch {
		case res.File != nil:
			fmt.Fprintf(&buf, " ([source](%s))", res.File.SourceURL)
		case res.Error != nil:
			fmt.Fprintf(&buf, " (%s)", res.Status)
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// manifest is the JSON shape of a fetch result. Errors are flattened to strings.
type manifest struct {
	Collection string          `json:"collection"`
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Directory  string          `json:"directory"`
	Total      int             `json:"total"`
	Found      int             `json:"found"`
	NotFound   int             `json:"not_found"`
	Failed     int             `json:"failed"`
	Tracks     []manifestTrack `json:"tracks"`
}

type manifestTrack struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Status string `json:"status"`
	Path   string `json:"path,omitempty"`
	Source string `json:"source,omitempty"`
	Error  string `json:"error,omitempty"`
}

// ExportToJSON converts a fetch result to indented JSON.
func ExportToJSON(result *tasks.FetchResult) ([]byte, error) {
	m := manifest{
		Collection: result.Collection.Name,
		ID:         result.Collection.ID,
		Type:       string(result.Collection.Type),
		Directory:  result.Directory,
		Total:      result.Total,
		Found:      result.Found,
		NotFound:   result.NotFound,
		Failed:     result.Failed,
		Tracks:     make([]manifestTrack, 0, len(result.Tracks)),
	}
	for _, res := range result.Tracks {
		t := manifestTrack{ID: res.Track.ID, Title: res.Track.Name, Artist: res.Track.Artist, Status: res.Status.String()}
		if res.File != nil {
			t.Path, t.Source = res.File.Path, res.File.SourceURL
		}
		if res.Error != nil {
			t.Error = res.Error.Error()
		}
		m.Tracks = append(m.Tracks, t)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return append(data, '\n'), nil
}

// WriteManifest writes a fetch result into its directory as manifest.{json,csv,md}.
//
// Format defaults to json. Returns the path written.
func WriteManifest(result *tasks.FetchResult, format string) (string, error) {
	var (
		data []byte
		err  error
		name string
	)

	switch format {
	case "csv":
		data, err = ExportToCSV(result)
		name = "manifest.csv"
	case "markdown", "md":
		data, err = ExportToMarkdown(result)
		name = "manifest.md"
	case "json", "":
		data, err = ExportToJSON(result)
		name = "manifest.json"
	default:
		return "", fmt.Errorf("unsupported manifest format %q", format)
	}
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(result.Directory, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	path := filepath.Join(result.Directory, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write manifest: %w", err)
	}
	return path, nil
}
