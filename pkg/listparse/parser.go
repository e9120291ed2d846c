// Package listparse extracts units, points, wargear, and model counts from
// free-form army-list text. It recognises three syntactic dialects; input
// in any other shape yields an empty unit slice, which the sync pipeline
// treats as the signal to escalate to the LLM normalizer.
package listparse

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/metaforge/metaforge/pkg/models"
)

// maxSingleUnitPoints is the heuristic ceiling above which a points value
// on a line is taken to be an army total rather than a unit cost. No
// datasheet costs more than this.
const maxSingleUnitPoints = 800

var (
	// Role-tag prefix like "CH1:", "BL2:", "Char3:".
	prefixTagRe = regexp.MustCompile(`^(Char|EH|CH|BL|IN|VE|MO|BE|DT|DS)\d+:\s*`)

	// Dialect shapes, tried in order per line.
	parenRe   = regexp.MustCompile(`(?i)^(?:(\d+)x\s+)?(.+?)\s*\((\d+)\s*(?:pts|points?)\)\s*(.*)$`)
	bracketRe = regexp.MustCompile(`(?i)^(?:\((\d+)\)\s+)?(.+?)\s*\[(\d+)\s*(?:pts|points?)?\]$`)
	dashedRe  = regexp.MustCompile(`(?i)^(\d+)\s+(.+?)\s+-\s+(\d+)\s*(?:pts|points?)?$`)

	// Trailing model count in a unit name: "Custodian Guard (4)".
	trailingCountRe = regexp.MustCompile(`^(.*\S)\s*\((\d+)\)$`)

	// "Nx Item" gear entries.
	gearItemRe = regexp.MustCompile(`^(\d+)x\s+(.+)$`)

	// Game-size markers; these lines carry the army total, not a unit.
	gameSizeRe = regexp.MustCompile(`(?i)^(Combat Patrol|Incursion|Strike Force|Onslaught)\b`)
)

// prefixKeywords maps role-tag prefixes to the keyword hint they carry.
var prefixKeywords = map[string]string{
	"Char": "Character",
	"CH":   "Character",
	"EH":   "Character",
	"BL":   "Battleline",
	"IN":   "Infantry",
	"VE":   "Vehicle",
	"MO":   "Monster",
	"BE":   "Monster",
	"DT":   "Dedicated Transport",
	"DS":   "Dedicated Transport",
}

// sectionKeywords maps bare section-header lines to the keyword applied to
// units that follow, until the next header.
var sectionKeywords = map[string]string{
	"CHARACTERS":           "Character",
	"CHARACTER":            "Character",
	"EPIC HEROES":          "Character",
	"BATTLELINE":           "Battleline",
	"INFANTRY":             "Infantry",
	"VEHICLES":             "Vehicle",
	"MONSTERS":             "Monster",
	"DEDICATED TRANSPORTS": "Dedicated Transport",
	"OTHER DATASHEETS":     "",
	"ALLIED UNITS":         "",
}

// Parse extracts the ordered unit sequence from list text. An empty result
// means the dialect is unrecognised, so callers escalate to the LLM.
func Parse(text string) []models.Unit {
	p := &parser{}
	for _, raw := range strings.Split(text, "\n") {
		p.line(raw)
	}
	p.flushGear()
	return p.units
}

type gearLine struct {
	indent int
	count  int
	item   string
}

type parser struct {
	units          []models.Unit
	sectionKeyword string
	hasSection     bool
	gear           []gearLine // pending buffer for the most recent unit
}

func (p *parser) line(raw string) {
	indent, stripped := measure(raw)
	trimmed := strings.TrimSpace(stripped)
	if trimmed == "" {
		return
	}

	// Indented or bulleted "Nx Item" lines belong to the previous unit.
	if len(p.units) > 0 && indent > 0 {
		if m := gearItemRe.FindStringSubmatch(trimmed); m != nil {
			n, _ := strconv.Atoi(m[1])
			p.gear = append(p.gear, gearLine{indent: indent, count: n, item: strings.TrimSpace(m[2])})
			return
		}
	}

	// Anything else ends the current gear buffer.
	p.flushGear()

	if upper := strings.ToUpper(trimmed); isSectionHeader(upper) {
		p.sectionKeyword = sectionKeywords[upper]
		p.hasSection = true
		return
	}

	if p.skip(trimmed) {
		return
	}

	line := trimmed
	keyword := p.sectionKeyword
	if m := prefixTagRe.FindStringSubmatch(line); m != nil {
		if kw, ok := prefixKeywords[m[1]]; ok {
			keyword = kw
		}
		line = line[len(m[0]):]
	}

	unit, ok := p.matchDialect(line)
	if !ok {
		return
	}
	if unit.Points > maxSingleUnitPoints {
		// Army-total line dressed up as a unit.
		return
	}
	if keyword != "" {
		unit.Keywords = append(unit.Keywords, keyword)
	}
	p.units = append(p.units, unit)
}

// matchDialect tries the three recognised shapes in order.
func (p *parser) matchDialect(line string) (models.Unit, bool) {
	if m := parenRe.FindStringSubmatch(line); m != nil {
		unit := models.Unit{ModelCount: 1}
		if m[1] != "" {
			unit.ModelCount, _ = strconv.Atoi(m[1])
		}
		unit.Name = cleanName(&unit, m[2])
		unit.Points, _ = strconv.Atoi(m[3])
		if rest := strings.TrimSpace(m[4]); rest != "" {
			unit.Wargear = append(unit.Wargear, parseInlineGear(rest)...)
		}
		return unit, true
	}

	if m := bracketRe.FindStringSubmatch(line); m != nil {
		unit := models.Unit{ModelCount: 1}
		if m[1] != "" {
			unit.ModelCount, _ = strconv.Atoi(m[1])
		}
		name := m[2]
		// "Name, gear, gear [150 pts]": the first comma splits name from gear.
		if i := strings.Index(name, ","); i >= 0 {
			unit.Wargear = append(unit.Wargear, parseInlineGear(name[i+1:])...)
			name = name[:i]
		}
		unit.Name = cleanName(&unit, name)
		unit.Points, _ = strconv.Atoi(m[3])
		return unit, true
	}

	if m := dashedRe.FindStringSubmatch(line); m != nil {
		unit := models.Unit{}
		unit.ModelCount, _ = strconv.Atoi(m[1])
		unit.Name = cleanName(&unit, m[2])
		unit.Points, _ = strconv.Atoi(m[3])
		return unit, true
	}

	return models.Unit{}, false
}

// skip reports whether a line is list metadata rather than a unit.
func (p *parser) skip(line string) bool {
	if gameSizeRe.MatchString(line) {
		return true
	}
	lower := strings.ToLower(line)
	switch {
	case strings.HasPrefix(lower, "enhancement"):
		return true
	case lower == "warlord" || lower == "• warlord":
		return true
	case strings.HasPrefix(lower, "faction keyword"), strings.HasPrefix(lower, "detachment rule"):
		return true
	case strings.HasPrefix(lower, "army roster"), strings.HasPrefix(lower, "roster"):
		return true
	}
	return false
}

// cleanName strips a trailing "(K)" model count from a unit name.
func cleanName(unit *models.Unit, name string) string {
	name = strings.TrimSpace(name)
	if m := trailingCountRe.FindStringSubmatch(name); m != nil {
		if k, err := strconv.Atoi(m[2]); err == nil && k > 0 {
			unit.ModelCount = k
			return strings.TrimSpace(m[1])
		}
	}
	return name
}

// parseInlineGear splits "2x Bolter, 1x Fist" into wargear entries. The
// "Nx " prefix is preserved only when N > 1.
func parseInlineGear(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if m := gearItemRe.FindStringSubmatch(part); m != nil {
			out = append(out, formatGear(mustAtoi(m[1]), strings.TrimSpace(m[2])))
			continue
		}
		out = append(out, part)
	}
	return out
}

// flushGear classifies the pending gear buffer and attaches it to the most
// recent unit. Buffers with a single indent level are uniformly weapons.
// With multiple levels, the minimum-indent lines are model-type breakdowns
// whose counts sum into the unit's model count; deeper lines are weapons.
func (p *parser) flushGear() {
	if len(p.gear) == 0 {
		return
	}
	buf := p.gear
	p.gear = nil
	unit := &p.units[len(p.units)-1]

	minIndent := buf[0].indent
	maxIndent := buf[0].indent
	for _, g := range buf[1:] {
		if g.indent < minIndent {
			minIndent = g.indent
		}
		if g.indent > maxIndent {
			maxIndent = g.indent
		}
	}

	if minIndent == maxIndent {
		for _, g := range buf {
			unit.Wargear = append(unit.Wargear, formatGear(g.count, g.item))
		}
		return
	}

	modelSum := 0
	for _, g := range buf {
		if g.indent == minIndent {
			modelSum += g.count
			continue
		}
		unit.Wargear = append(unit.Wargear, formatGear(g.count, g.item))
	}
	if modelSum > 0 {
		unit.ModelCount = modelSum
	}
}

// measure returns the effective indent of a line, the column where the
// content starts after leading whitespace and bullet glyphs, plus the
// content itself. Bullets count toward the indent so that "  • 1x A" and
// "    1x B" sit at the same level.
func measure(raw string) (int, string) {
	indent := 0
	rest := raw
	for {
		switch {
		case strings.HasPrefix(rest, " "):
			indent++
			rest = rest[1:]
		case strings.HasPrefix(rest, "\t"):
			indent += 4
			rest = rest[1:]
		case strings.HasPrefix(rest, "• "), strings.HasPrefix(rest, "◦ "), strings.HasPrefix(rest, "* "):
			indent += 2
			rest = rest[len("• "):]
		case strings.HasPrefix(rest, "•"), strings.HasPrefix(rest, "◦"):
			indent++
			rest = rest[len("•"):]
		default:
			return indent, rest
		}
	}
}

func formatGear(count int, item string) string {
	if count > 1 {
		return strconv.Itoa(count) + "x " + item
	}
	return item
}

func mustAtoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func isSectionHeader(upper string) bool {
	_, ok := sectionKeywords[upper]
	return ok
}
