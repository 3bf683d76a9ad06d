package highlight

import (
	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/styles"
	"go.abhg.dev/lazyhl/internal/must"
)

// DefaultTheme is the theme used when none is requested.
const DefaultTheme = "plain"

// PlainStyle is a minimal syntax highlighting style for Chroma.
// It leaves most text as-is, and fades comments ever so slightly.
var PlainStyle = styles.Register(newStyle(DefaultTheme, chroma.StyleEntries{
	chroma.Comment:    "#666666",
	chroma.PreWrapper: "bg:#eeeeee",
	chroma.Background: "bg:#eeeeee",
}))

func newStyle(name string, entries chroma.StyleEntries) *chroma.Style {
	s, err := chroma.NewStyle(name, entries)
	must.NotErrorf(err, "bad style %q", name)
	return s
}

// LookupTheme finds a theme known to Chroma by name.
// It reports false if there's no such theme.
func LookupTheme(name string) (*chroma.Style, bool) {
	s, ok := styles.Registry[name]
	return s, ok
}
