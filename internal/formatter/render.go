package formatter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/soundbridge/internal/media"
	"github.com/desertthunder/soundbridge/internal/models"
	"github.com/desertthunder/soundbridge/internal/search"
	"github.com/desertthunder/soundbridge/internal/services"
	"github.com/desertthunder/soundbridge/internal/shared"
	"github.com/desertthunder/soundbridge/internal/tasks"
)

// FormatDurationMs renders a track length as m:ss.
func FormatDurationMs(ms int) string {
	return shared.FormatDuration(ms)
}

func header(title string) string {
	return styles.title.Render(title) + "\n"
}

func field(label string, value any) string {
	return fmt.Sprintf("%s %v\n", styles.label.Render(label+":"), value)
}

func tag(t models.ItemType) string {
	style, ok := styles.types[t]
	if !ok {
		return string(t)
	}
	return style.Render(fmt.Sprintf("%-8s", t))
}

// ItemLine renders one item as a single line.
func ItemLine(item models.Item) string {
	var b strings.Builder
	b.WriteString(tag(item.Type))
	b.WriteString(" ")
	b.WriteString(item.Name)

	if item.Artist != "" && item.Type != models.TypeArtist {
		b.WriteString(styles.dim.Render(" by " + item.Artist))
	}

	switch {
	case item.TrackInfo != nil:
		b.WriteString(styles.dim.Render(" [" + FormatDurationMs(item.TrackInfo.DurationMs) + "]"))
	case item.ArtistInfo != nil:
		b.WriteString(styles.dim.Render(" (" + humanCount(item.ArtistInfo.Followers) + " followers)"))
	case item.AlbumInfo != nil && item.AlbumInfo.ReleaseDate != "":
		b.WriteString(styles.dim.Render(" (" + item.AlbumInfo.ReleaseDate + ")"))
	case item.PlaylistInfo != nil:
		b.WriteString(styles.dim.Render(fmt.Sprintf(" (%d tracks)", item.PlaylistInfo.TrackCount)))
	}

	b.WriteString(styles.dim.Render("  " + item.ID))
	return b.String()
}

// RenderItems renders a numbered list.
func RenderItems(items []models.Item) string {
	if len(items) == 0 {
		return styles.em.Render("No results") + "\n"
	}

	var b strings.Builder
	width := len(strconv.Itoa(len(items)))
	for i, item := range items {
		fmt.Fprintf(&b, "%*d. %s\n", width, i+1, ItemLine(item))
	}
	return b.String()
}

// RenderResults renders aggregated search results with per-category totals.
func RenderResults(res *search.Results) string {
	var b strings.Builder
	b.WriteString(header(fmt.Sprintf("Results for %q", res.Query)))
	b.WriteString(styles.dim.Render(fmt.Sprintf("tracks %d · artists %d · albums %d · playlists %d",
		res.Totals.Tracks, res.Totals.Artists, res.Totals.Albums, res.Totals.Playlists)))
	b.WriteString("\n\n")
	b.WriteString(RenderItems(res.Items))
	return b.String()
}

// RenderPage renders one page of items with its position in the collection.
func RenderPage(title string, page *models.Page[models.Item]) string {
	var b strings.Builder
	b.WriteString(header(title))
	b.WriteString(RenderItems(page.Items))

	if page.Total > len(page.Items) {
		from := page.Offset + 1
		to := page.Offset + len(page.Items)
		b.WriteString(styles.dim.Render(fmt.Sprintf("\n%d-%d of %d", from, to, page.Total)))
		if page.HasNext() {
			b.WriteString(styles.dim.Render(fmt.Sprintf(" (next: --offset %d)", page.Offset+page.Limit)))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// RenderItem renders a detailed view of one item.
func RenderItem(item models.Item) string {
	var b strings.Builder
	b.WriteString(header(item.Name))
	b.WriteString(field("Type", item.Type))
	b.WriteString(field("ID", item.ID))
	if item.Artist != "" && item.Type != models.TypeArtist {
		b.WriteString(field("By", item.Artist))
	}
	if item.Popularity != nil {
		b.WriteString(field("Popularity", *item.Popularity))
	}

	switch {
	case item.TrackInfo != nil:
		t := item.TrackInfo
		b.WriteString(field("Duration", FormatDurationMs(t.DurationMs)))
		if t.Album != "" {
			b.WriteString(field("Album", t.Album))
		}
		if len(t.Artists) > 1 {
			b.WriteString(field("Artists", strings.Join(t.Artists, ", ")))
		}
		if t.ISRC != "" {
			b.WriteString(field("ISRC", t.ISRC))
		}
		if t.Explicit {
			b.WriteString(field("Explicit", "yes"))
		}
	case item.ArtistInfo != nil:
		b.WriteString(field("Followers", humanCount(item.ArtistInfo.Followers)))
		if len(item.ArtistInfo.Genres) > 0 {
			b.WriteString(field("Genres", strings.Join(item.ArtistInfo.Genres, ", ")))
		}
	case item.AlbumInfo != nil:
		a := item.AlbumInfo
		if a.AlbumType != "" {
			b.WriteString(field("Album type", a.AlbumType))
		}
		if a.ReleaseDate != "" {
			b.WriteString(field("Released", a.ReleaseDate))
		}
		b.WriteString(field("Tracks", a.TotalTracks))
	case item.PlaylistInfo != nil:
		p := item.PlaylistInfo
		b.WriteString(field("Owner", p.Owner))
		b.WriteString(field("Tracks", p.TrackCount))
		b.WriteString(field("Followers", humanCount(p.Followers)))
		if p.Description != "" {
			b.WriteString(field("Description", p.Description))
		}
	}

	if item.ImageURL != nil {
		b.WriteString(field("Image", *item.ImageURL))
	}
	return b.String()
}

// RenderCategories renders browse categories.
func RenderCategories(page *models.Page[services.Category]) string {
	var b strings.Builder
	b.WriteString(header("Categories"))
	if len(page.Items) == 0 {
		b.WriteString(styles.em.Render("No categories") + "\n")
		return b.String()
	}
	for _, c := range page.Items {
		fmt.Fprintf(&b, "  %s %s\n", c.Name, styles.dim.Render(c.ID))
	}
	return b.String()
}

// RenderProfile renders the signed-in user's profile.
func RenderProfile(p *services.UserProfile) string {
	var b strings.Builder
	name := p.DisplayName
	if name == "" {
		name = p.ID
	}
	b.WriteString(header(name))
	b.WriteString(field("ID", p.ID))
	if p.Email != "" {
		b.WriteString(field("Email", p.Email))
	}
	if p.Country != "" {
		b.WriteString(field("Country", p.Country))
	}
	if p.Product != "" {
		b.WriteString(field("Plan", p.Product))
	}
	b.WriteString(field("Followers", humanCount(p.Followers)))
	return b.String()
}

// RenderCredential renders a session's credential state at now. Tokens are never printed.
func RenderCredential(cred *models.Credential, now time.Time) string {
	var b strings.Builder
	b.WriteString(header("Session"))

	expiry := cred.Expiry()
	switch {
	case cred.Usable(now):
		b.WriteString(field("Access token", styles.ok.Render("valid")))
		b.WriteString(field("Expires", fmt.Sprintf("%s (in %s)", expiry.Local().Format(time.RFC3339), expiry.Sub(now).Round(time.Second))))
	default:
		b.WriteString(field("Access token", styles.warn.Render("expired, refreshes on next use")))
		b.WriteString(field("Expired", expiry.Local().Format(time.RFC3339)))
	}

	if cred.RefreshToken != "" {
		b.WriteString(field("Refresh token", "present"))
	} else {
		b.WriteString(field("Refresh token", styles.err.Render("missing")))
	}
	if cred.Scope != "" {
		b.WriteString(field("Scope", cred.Scope))
	}
	return b.String()
}

// RenderLocalFile renders a fetched file.
func RenderLocalFile(f *media.LocalFile) string {
	var b strings.Builder
	if f.Reused {
		b.WriteString(styles.ok.Render("✓ already downloaded") + "\n")
	} else {
		b.WriteString(styles.ok.Render("✓ downloaded") + "\n")
	}
	b.WriteString(field("Path", f.Path))
	b.WriteString(field("Title", f.Title))
	if f.Uploader != "" {
		b.WriteString(field("Uploader", f.Uploader))
	}
	b.WriteString(field("Length", FormatDurationMs(int(f.DurationSeconds*1000))))
	b.WriteString(field("Source", f.SourceURL))
	return b.String()
}

// RenderFetchResult renders a bulk fetch summary followed by every track that was not fetched.
func RenderFetchResult(r *tasks.FetchResult) string {
	var b strings.Builder
	b.WriteString(header(r.Collection.Name))
	b.WriteString(field("Directory", r.Directory))
	b.WriteString(field("Fetched", styles.ok.Render(fmt.Sprintf("%d/%d", r.Found, r.Total))))
	if r.NotFound > 0 {
		b.WriteString(field("Not found", styles.warn.Render(strconv.Itoa(r.NotFound))))
	}
	if r.Failed > 0 {
		b.WriteString(field("Failed", styles.err.Render(strconv.Itoa(r.Failed))))
	}

	if r.NotFound+r.Failed == 0 {
		return b.String()
	}

	b.WriteString("\n")
	for _, res := range r.Tracks {
		switch res.Status {
		case tasks.StatusNotFound:
			fmt.Fprintf(&b, "  %s %s - %s\n", styles.warn.Render("?"), res.Track.Artist, res.Track.Name)
		case tasks.StatusFailed:
			fmt.Fprintf(&b, "  %s %s - %s: %v\n", styles.err.Render("✗"), res.Track.Artist, res.Track.Name, res.Error)
		}
	}
	return b.String()
}

func humanCount(n int) string {
	switch {
	case n >= 1_000_000:
		return strconv.FormatFloat(float64(n)/1_000_000, 'f', 1, 64) + "M"
	case n >= 10_000:
		return strconv.Itoa(n/1000) + "K"
	default:
		return strconv.Itoa(n)
	}
}
