package styles

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
)

// chromaEntries maps JSON token types onto the theme palette.
func (t *Theme) chromaEntries() chroma.StyleEntries {
	return chroma.StyleEntries{
		chroma.Text:                colorToHex(t.FgBase),
		chroma.Error:               colorToHex(t.Error),
		chroma.Punctuation:         colorToHex(t.FgSubtle),
		chroma.NameTag:             colorToHex(t.Primary) + " bold",
		chroma.NameOther:           colorToHex(t.FgBase),
		chroma.Keyword:             colorToHex(t.Accent),
		chroma.KeywordConstant:     colorToHex(t.Accent),
		chroma.Literal:             colorToHex(t.Success),
		chroma.LiteralNumber:       colorToHex(t.Warning),
		chroma.LiteralString:       colorToHex(t.Success),
		chroma.LiteralStringEscape: colorToHex(t.Secondary),
	}
}

// HighlightJSON colors indented JSON for the terminal. The input is
// returned unchanged if highlighting fails.
func HighlightJSON(t *Theme, src string) string {
	lexer := lexers.Get("json")
	if lexer == nil {
		return src
	}
	style, err := chroma.NewStyle("pqdash-"+t.Name, t.chromaEntries())
	if err != nil {
		return src
	}
	it, err := chroma.Coalesce(lexer).Tokenise(nil, src)
	if err != nil {
		return src
	}
	var b strings.Builder
	if err := formatters.Get("terminal16m").Format(&b, style, it); err != nil {
		return src
	}
	return b.String()
}
