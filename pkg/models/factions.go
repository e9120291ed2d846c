package models

import (
	"sort"
	"strings"
)

// Allegiance groups factions into the three grand alliances.
const (
	AllegianceImperium = "Imperium"
	AllegianceChaos    = "Chaos"
	AllegianceXenos    = "Xenos"
	AllegianceUnknown  = "Unknown"
)

// FactionInfo describes one canonical faction.
type FactionInfo struct {
	Name          string
	Allegiance    string
	AllegianceSub string // finer grouping, e.g. "Space Marines" for chapters
}

// canonicalFactions is the closed set of faction names every extracted
// record is coerced into. Sources use dozens of spellings; everything funnels
// through factionAliases into one of these.
var canonicalFactions = map[string]FactionInfo{
	"Space Marines":      {Name: "Space Marines", Allegiance: AllegianceImperium, AllegianceSub: "Space Marines"},
	"Blood Angels":       {Name: "Blood Angels", Allegiance: AllegianceImperium, AllegianceSub: "Space Marines"},
	"Dark Angels":        {Name: "Dark Angels", Allegiance: AllegianceImperium, AllegianceSub: "Space Marines"},
	"Space Wolves":       {Name: "Space Wolves", Allegiance: AllegianceImperium, AllegianceSub: "Space Marines"},
	"Black Templars":     {Name: "Black Templars", Allegiance: AllegianceImperium, AllegianceSub: "Space Marines"},
	"Deathwatch":         {Name: "Deathwatch", Allegiance: AllegianceImperium, AllegianceSub: "Space Marines"},
	"Grey Knights":       {Name: "Grey Knights", Allegiance: AllegianceImperium, AllegianceSub: "Space Marines"},
	"Adepta Sororitas":   {Name: "Adepta Sororitas", Allegiance: AllegianceImperium},
	"Adeptus Custodes":   {Name: "Adeptus Custodes", Allegiance: AllegianceImperium},
	"Adeptus Mechanicus": {Name: "Adeptus Mechanicus", Allegiance: AllegianceImperium},
	"Astra Militarum":    {Name: "Astra Militarum", Allegiance: AllegianceImperium},
	"Imperial Knights":   {Name: "Imperial Knights", Allegiance: AllegianceImperium},
	"Imperial Agents":    {Name: "Imperial Agents", Allegiance: AllegianceImperium},
	"Chaos Space Marines": {Name: "Chaos Space Marines", Allegiance: AllegianceChaos},
	"Death Guard":         {Name: "Death Guard", Allegiance: AllegianceChaos},
	"Thousand Sons":       {Name: "Thousand Sons", Allegiance: AllegianceChaos},
	"World Eaters":        {Name: "World Eaters", Allegiance: AllegianceChaos},
	"Emperor's Children":  {Name: "Emperor's Children", Allegiance: AllegianceChaos},
	"Chaos Daemons":       {Name: "Chaos Daemons", Allegiance: AllegianceChaos},
	"Chaos Knights":       {Name: "Chaos Knights", Allegiance: AllegianceChaos},
	"Aeldari":           {Name: "Aeldari", Allegiance: AllegianceXenos},
	"Drukhari":          {Name: "Drukhari", Allegiance: AllegianceXenos},
	"Necrons":           {Name: "Necrons", Allegiance: AllegianceXenos},
	"Orks":              {Name: "Orks", Allegiance: AllegianceXenos},
	"T'au Empire":       {Name: "T'au Empire", Allegiance: AllegianceXenos},
	"Tyranids":          {Name: "Tyranids", Allegiance: AllegianceXenos},
	"Genestealer Cults": {Name: "Genestealer Cults", Allegiance: AllegianceXenos},
	"Leagues of Votann": {Name: "Leagues of Votann", Allegiance: AllegianceXenos},
}

// factionAliases maps lowercased source spellings to canonical names.
// Regional spellings, legacy names, abbreviations, and chapter-level entries
// all appear here.
var factionAliases = map[string]string{
	"space marines":    "Space Marines",
	"space marine":     "Space Marines",
	"adeptus astartes": "Space Marines",
	"astartes":         "Space Marines",
	"marines":          "Space Marines",
	"sm":               "Space Marines",

	"blood angels":   "Blood Angels",
	"dark angels":    "Dark Angels",
	"space wolves":   "Space Wolves",
	"black templars": "Black Templars",
	"black templar":  "Black Templars",
	"deathwatch":     "Deathwatch",
	"grey knights":   "Grey Knights",
	"gray knights":   "Grey Knights",

	"adepta sororitas":  "Adepta Sororitas",
	"sisters of battle": "Adepta Sororitas",
	"sisters":           "Adepta Sororitas",
	"sob":               "Adepta Sororitas",

	"adeptus custodes": "Adeptus Custodes",
	"custodes":         "Adeptus Custodes",

	"adeptus mechanicus": "Adeptus Mechanicus",
	"admech":             "Adeptus Mechanicus",
	"ad mech":            "Adeptus Mechanicus",
	"mechanicus":         "Adeptus Mechanicus",
	"skitarii":           "Adeptus Mechanicus",

	"astra militarum": "Astra Militarum",
	"imperial guard":  "Astra Militarum",
	"guard":           "Astra Militarum",
	"ig":              "Astra Militarum",
	"am":              "Astra Militarum",

	"imperial knights": "Imperial Knights",
	"imperial knight":  "Imperial Knights",

	"imperial agents":        "Imperial Agents",
	"agents of the imperium": "Imperial Agents",
	"inquisition":            "Imperial Agents",

	"chaos space marines": "Chaos Space Marines",
	"chaos space marine":  "Chaos Space Marines",
	"heretic astartes":    "Chaos Space Marines",
	"csm":                 "Chaos Space Marines",
	"chaos marines":       "Chaos Space Marines",

	"death guard":        "Death Guard",
	"dg":                 "Death Guard",
	"thousand sons":      "Thousand Sons",
	"tsons":              "Thousand Sons",
	"ts":                 "Thousand Sons",
	"world eaters":       "World Eaters",
	"we":                 "World Eaters",
	"emperor's children": "Emperor's Children",
	"emperors children":  "Emperor's Children",
	"ec":                 "Emperor's Children",

	"chaos daemons":      "Chaos Daemons",
	"daemons":            "Chaos Daemons",
	"demons":             "Chaos Daemons",
	"legiones daemonica": "Chaos Daemons",

	"chaos knights": "Chaos Knights",
	"chaos knight":  "Chaos Knights",

	"aeldari":      "Aeldari",
	"eldar":        "Aeldari",
	"craftworlds":  "Aeldari",
	"craftworld":   "Aeldari",
	"asuryani":     "Aeldari",
	"ynnari":       "Aeldari",
	"harlequins":   "Aeldari",

	"drukhari":   "Drukhari",
	"dark eldar": "Drukhari",
	"de":         "Drukhari",

	"necrons": "Necrons",
	"necron":  "Necrons",

	"orks": "Orks",
	"ork":  "Orks",
	"orcs": "Orks",

	"t'au empire": "T'au Empire",
	"tau empire":  "T'au Empire",
	"t'au":        "T'au Empire",
	"tau":         "T'au Empire",

	"tyranids": "Tyranids",
	"tyranid":  "Tyranids",
	"nids":     "Tyranids",

	"genestealer cults": "Genestealer Cults",
	"genestealer cult":  "Genestealer Cults",
	"gsc":               "Genestealer Cults",

	"leagues of votann": "Leagues of Votann",
	"votann":            "Leagues of Votann",
	"squats":            "Leagues of Votann",
}

// promotedChapters are chapter-level identities with their own codex; when
// one appears as a subfaction it replaces the umbrella faction.
var promotedChapters = map[string]string{
	"blood angels":   "Blood Angels",
	"dark angels":    "Dark Angels",
	"space wolves":   "Space Wolves",
	"black templars": "Black Templars",
	"deathwatch":     "Deathwatch",
	"grey knights":   "Grey Knights",
}

// demotedChapters are codex-compliant chapters; when one appears as the
// faction it is demoted to subfaction under the umbrella faction.
var demotedChapters = map[string]string{
	"ultramarines":  "Ultramarines",
	"imperial fists": "Imperial Fists",
	"crimson fists":  "Crimson Fists",
	"salamanders":    "Salamanders",
	"iron hands":     "Iron Hands",
	"raven guard":    "Raven Guard",
	"white scars":    "White Scars",
}

// NormalizeFactionName maps any source spelling to a canonical faction.
// Exact alias match first, then substring containment ordered longest alias
// first so "chaos space marines" wins over "space marines". Containment is
// blacklisted where it would confuse rival factions: a name mentioning
// Chaos never resolves to Space Marines or Imperial Knights.
func NormalizeFactionName(name string) (FactionInfo, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return FactionInfo{Allegiance: AllegianceUnknown}, false
	}
	if canonical, ok := factionAliases[key]; ok {
		return canonicalFactions[canonical], true
	}
	if chapter, ok := demotedChapters[key]; ok {
		info := canonicalFactions["Space Marines"]
		info.AllegianceSub = chapter
		return info, true
	}

	best := ""
	for alias := range factionAliases {
		if len(alias) < 3 || !strings.Contains(key, alias) {
			continue
		}
		if containsBlacklisted(key, factionAliases[alias]) {
			continue
		}
		if len(alias) > len(best) {
			best = alias
		}
	}
	if best != "" {
		return canonicalFactions[factionAliases[best]], true
	}
	return FactionInfo{Name: strings.TrimSpace(name), Allegiance: AllegianceUnknown}, false
}

// containsBlacklisted rejects substring matches that would cross the
// Imperium/Chaos line: "Chaos Space Marines" must never resolve to
// "Space Marines", nor "Chaos Knights" to "Imperial Knights".
func containsBlacklisted(key, canonical string) bool {
	switch canonical {
	case "Space Marines", "Imperial Knights":
		return strings.Contains(key, "chaos")
	}
	return false
}

// ResolveFaction coerces a (faction, subfaction) pair into the canonical
// set. A promoted chapter in the subfaction slot becomes the faction; a
// demoted chapter in the faction slot becomes the subfaction under the
// umbrella faction.
func ResolveFaction(faction, subfaction string) (string, string, string) {
	subKey := strings.ToLower(strings.TrimSpace(subfaction))
	if chapter, ok := promotedChapters[subKey]; ok {
		info := canonicalFactions[chapter]
		return info.Name, "", info.Allegiance
	}

	facKey := strings.ToLower(strings.TrimSpace(faction))
	if chapter, ok := demotedChapters[facKey]; ok {
		info := canonicalFactions["Space Marines"]
		return info.Name, chapter, info.Allegiance
	}

	info, ok := NormalizeFactionName(faction)
	if !ok {
		return info.Name, subfaction, AllegianceUnknown
	}
	return info.Name, subfaction, info.Allegiance
}

// CanonicalFactionNames returns the closed canonical set, for prompt
// construction and validation.
func CanonicalFactionNames() []string {
	names := make([]string, 0, len(canonicalFactions))
	for name := range canonicalFactions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
