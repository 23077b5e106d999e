package formatter

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/soundbridge/internal/models"
)

var styles = NewPalette("#1DB954", "#04B575", "#FF0000", "#FFA500", "#626262")

// Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	label lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	dim   lipgloss.Style
	em    lipgloss.Style
	types map[models.ItemType]lipgloss.Style
}

// NewPalette builds a Palette from title, success, error, warning and muted foreground colors.
func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t),
		label: NewStyle(h),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		dim:   NewStyle(h).Faint(true),
		em:    NewEm(h),
		types: map[models.ItemType]lipgloss.Style{
			models.TypeTrack:    NewStyle("39"),
			models.TypeArtist:   NewStyle("213"),
			models.TypeAlbum:    NewStyle("220"),
			models.TypePlaylist: NewStyle("86"),
		},
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}
