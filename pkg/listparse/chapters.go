package listparse

import (
	"regexp"
	"strings"
)

// Chapters of the Space Marines umbrella faction that we can identify from
// list text. Source platforms frequently tag only "Space Marines"; when the
// text reveals the chapter we promote it.
var chapterNames = []string{
	"Black Templars",
	"Blood Angels",
	"Crimson Fists",
	"Dark Angels",
	"Deathwatch",
	"Imperial Fists",
	"Iron Hands",
	"Raven Guard",
	"Salamanders",
	"Space Wolves",
	"Ultramarines",
	"White Scars",
}

// chapterDetachments are detachments exclusive to one chapter.
var chapterDetachments = map[string]string{
	"liberator assault group": "Blood Angels",
	"the angelic host":        "Blood Angels",
	"inner circle task force": "Dark Angels",
	"unforgiven task force":   "Dark Angels",
	"company of hunters":      "Dark Angels",
	"champions of russ":       "Space Wolves",
	"stormlance task force":   "Space Wolves",
	"righteous crusaders":     "Black Templars",
	"black spear task force":  "Deathwatch",
}

// chapterCharacters are named characters exclusive to one chapter.
var chapterCharacters = map[string]string{
	"commander dante":        "Blood Angels",
	"dante":                  "Blood Angels",
	"mephiston":              "Blood Angels",
	"lemartes":               "Blood Angels",
	"the sanguinor":          "Blood Angels",
	"astorath":               "Blood Angels",
	"azrael":                 "Dark Angels",
	"asmodai":                "Dark Angels",
	"belial":                 "Dark Angels",
	"ezekiel":                "Dark Angels",
	"lion el'jonson":         "Dark Angels",
	"logan grimnar":          "Space Wolves",
	"ragnar blackmane":       "Space Wolves",
	"njal stormcaller":       "Space Wolves",
	"ulrik the slayer":       "Space Wolves",
	"high marshal helbrecht": "Black Templars",
	"helbrecht":              "Black Templars",
	"chaplain grimaldus":     "Black Templars",
	"grimaldus":              "Black Templars",
	"the emperor's champion": "Black Templars",
	"marneus calgar":         "Ultramarines",
	"roboute guilliman":      "Ultramarines",
	"uriel ventris":          "Ultramarines",
	"chief librarian tigurius": "Ultramarines",
	"tor garadon":            "Imperial Fists",
	"pedro kantor":           "Crimson Fists",
	"kayvaan shrike":         "Raven Guard",
	"kor'sarro khan":         "White Scars",
	"adrax agatone":          "Salamanders",
	"vulkan he'stan":         "Salamanders",
	"iron father feirros":    "Iron Hands",
}

var (
	astartesDashRe = regexp.MustCompile(`(?i)Astartes\s*-\s*([A-Za-z' ]+)`)
	marinesParenRe = regexp.MustCompile(`(?i)Space Marines\s*\(([A-Za-z' ]+)\)`)
)

// DetectChapter inspects list text for chapter evidence and returns the
// canonical chapter name, or "" when none is found. Five patterns are
// tried: the line after the umbrella faction, the "Astartes - Chapter"
// dashed form, the "Space Marines (Chapter)" parenthetical, chapter-only
// detachment names, and chapter-only named characters.
func DetectChapter(text string) string {
	lower := strings.ToLower(text)

	// "Space Marines (Blood Angels)"
	if m := marinesParenRe.FindStringSubmatch(text); m != nil {
		if name := canonicalChapter(m[1]); name != "" {
			return name
		}
	}

	// "Adeptus Astartes - Dark Angels"
	if m := astartesDashRe.FindStringSubmatch(text); m != nil {
		if name := canonicalChapter(m[1]); name != "" {
			return name
		}
	}

	// Chapter name on the line after the umbrella faction line.
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		t := strings.ToLower(strings.TrimSpace(line))
		if t != "space marines" && t != "adeptus astartes" {
			continue
		}
		for j := i + 1; j < len(lines) && j <= i+2; j++ {
			if name := canonicalChapter(strings.TrimSpace(lines[j])); name != "" {
				return name
			}
		}
	}

	// Chapter-exclusive detachments.
	for det, chapter := range chapterDetachments {
		if strings.Contains(lower, det) {
			return chapter
		}
	}

	// Chapter-exclusive characters. Short and long forms of the same name
	// map to the same chapter, so map iteration order does not matter.
	for ch, chapter := range chapterCharacters {
		if strings.Contains(lower, ch) {
			return chapter
		}
	}

	return ""
}

// canonicalChapter matches s against the known chapter list.
func canonicalChapter(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	for _, name := range chapterNames {
		if s == strings.ToLower(name) {
			return name
		}
	}
	return ""
}
