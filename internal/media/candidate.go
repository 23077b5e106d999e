package media

import (
	"bufio"
	"bytes"
	"strings"

	"github.com/tidwall/gjson"
)

const watchURL = "https://www.youtube.com/watch?v="

// Candidate is one media index hit.
type Candidate struct {
	URL             string  `json:"url"`
	Title           string  `json:"title"`
	Uploader        string  `json:"uploader"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// ParseCandidates reads yt-dlp's line-delimited JSON output in index order.
//
// Lines that are not JSON objects, and entries without a URL or a numeric duration, are dropped.
func ParseCandidates(data []byte) []Candidate {
	var out []Candidate

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 16<<20)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 || !gjson.ValidBytes(line) {
			continue
		}

		entry := gjson.ParseBytes(line)
		if !entry.IsObject() {
			continue
		}
		if c, ok := candidateFrom(entry); ok {
			out = append(out, c)
		}
	}
	return out
}

func candidateFrom(entry gjson.Result) (Candidate, bool) {
	duration := entry.Get("duration")
	if duration.Type != gjson.Number {
		return Candidate{}, false
	}

	url := entry.Get("webpage_url").String()
	if url == "" {
		url = entry.Get("url").String()
	}
	if url == "" {
		if id := entry.Get("id").String(); id != "" {
			url = watchURL + id
		}
	}
	if url == "" {
		return Candidate{}, false
	}

	uploader := entry.Get("uploader").String()
	if uploader == "" {
		uploader = entry.Get("channel").String()
	}

	return Candidate{
		URL:             url,
		Title:           entry.Get("title").String(),
		Uploader:        uploader,
		DurationSeconds: duration.Float(),
	}, true
}

// Tolerance returns the accepted deviation in seconds for a target length: 10% of it, kept within [5, 15].
func Tolerance(targetSeconds float64) float64 {
	return min(max(targetSeconds*0.1, 5), 15)
}

// Select returns the first candidate whose duration lies within [Tolerance] of targetMs.
//
// With no target, the first candidate is taken. The first match wins even when a later one is closer.
func Select(candidates []Candidate, targetMs int) (Candidate, bool) {
	if len(candidates) == 0 {
		return Candidate{}, false
	}
	if targetMs <= 0 {
		return candidates[0], true
	}

	target := float64(targetMs) / 1000
	tol := Tolerance(target)
	for _, c := range candidates {
		if c.DurationSeconds >= target-tol && c.DurationSeconds <= target+tol {
			return c, true
		}
	}
	return Candidate{}, false
}

// cleanQuery strips quote characters from a search query.
func cleanQuery(q string) string {
	return strings.TrimSpace(strings.NewReplacer(`"`, "", `'`, "").Replace(q))
}
