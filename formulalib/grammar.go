// Header grammar for the brace-delimited formula-library file format,
// grounded on _examples/launix-de-memcp/scm/packrat.go's parseSyntax/
// ExtractScmer pair: a hand-built packrat.Parser tree walked by a
// dedicated extractor that switches on the concrete Parser type
// attached to each matched Node, the same dispatch packrat.go uses to
// turn a parse tree back into a Scmer. Here the tree is turned into a
// FormulaEntry's Name/BracketValue/ParenValue split instead, replacing
// original_source/libs/FormulaEntry.cpp's manual find_last_of scan.
package formulalib

import (
	"strings"

	packrat "github.com/launix-de/go-packrat/v2"
)

var (
	bracketSegment = packrat.NewAndParser(
		packrat.NewAtomParser("[", false, false),
		packrat.NewRegexParser(`[^\]]*`, false, false),
		packrat.NewAtomParser("]", false, false),
	)
	parenSegment = packrat.NewAndParser(
		packrat.NewAtomParser("(", false, false),
		packrat.NewRegexParser(`[^)]*`, false, false),
		packrat.NewAtomParser(")", false, false),
	)
	plainSegment = packrat.NewRegexParser(`[^\s\[(]+`, false, false)

	// headerSegment matches one name chunk, one [bracket-value], or one
	// (paren-value), in any order and any mixture — FormulaEntry.cpp
	// strips whichever bracket/paren pair appears last in the line,
	// regardless of where the plain name text falls relative to them.
	headerSegment = packrat.NewOrParser(bracketSegment, parenSegment, plainSegment)

	// headerGrammar matches the whole "name[bracket](paren)" header run
	// that precedes the opening '{' on an entry's first line.
	headerGrammar = packrat.NewKleeneParser(headerSegment, packrat.NewEmptyParser())
)

// parsedHeader is the result of walking a matched header Node: the
// concatenated plain-name text plus the last bracket/paren segment seen
// (FormulaEntry.cpp keeps only the last occurrence of each).
type parsedHeader struct {
	name         strings.Builder
	bracketValue string
	parenValue   string
}

// parseHeader runs headerGrammar over the text preceding an entry's
// opening brace and extracts name/bracket/paren exactly as
// original_source/libs/FormulaEntry.cpp's string-scan does, but via the
// packrat combinator tree instead of find_last_of/erase calls.
func parseHeader(line string) (name, bracketValue, parenValue string, ok bool) {
	scanner := packrat.NewScanner(line, packrat.SkipWhitespaceAndCommentsRegex)
	node, err := packrat.Parse(headerGrammar, scanner)
	if err != nil || node == nil {
		return "", "", "", false
	}
	var h parsedHeader
	walkHeader(node, &h)
	return strings.TrimSpace(h.name.String()), h.bracketValue, h.parenValue, true
}

// walkHeader descends a matched header Node, dispatching on the
// concrete Parser attached to each node the way
// _examples/launix-de-memcp/scm/packrat.go's ExtractScmer does for its
// own grammar (OrParser picks the one matching alternative's child,
// KleeneParser repeats over every matched repetition).
func walkHeader(n *packrat.Node, h *parsedHeader) {
	switch {
	case n.Parser == bracketSegment:
		h.bracketValue = n.Children[1].Matched
	case n.Parser == parenSegment:
		h.parenValue = n.Children[1].Matched
	case n.Parser == plainSegment:
		h.name.WriteString(n.Matched)
	default:
		// headerGrammar (Kleene) and headerSegment (Or) wrappers: descend
		// into whichever repetitions/alternative actually matched, the
		// same structural recursion ExtractScmer uses for its own
		// KleeneParser/OrParser cases in scm/packrat.go.
		for _, child := range n.Children {
			walkHeader(child, h)
		}
	}
}
