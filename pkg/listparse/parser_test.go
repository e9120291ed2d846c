package listparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParenthesizedWithGear(t *testing.T) {
	text := "Brotherhood Librarian (150 points)\n" +
		"  • 1x Combi-weapon\n" +
		"    1x Nemesis force weapon\n" +
		"Nemesis Dreadknight (245 points)\n" +
		"  • 1x Heavy psycannon\n"

	units := Parse(text)
	require.Len(t, units, 2)

	assert.Equal(t, "Brotherhood Librarian", units[0].Name)
	assert.Equal(t, 1, units[0].ModelCount)
	assert.Equal(t, 150, units[0].Points)
	assert.Equal(t, []string{"Combi-weapon", "Nemesis force weapon"}, units[0].Wargear)

	assert.Equal(t, "Nemesis Dreadknight", units[1].Name)
	assert.Equal(t, 245, units[1].Points)
	assert.Equal(t, []string{"Heavy psycannon"}, units[1].Wargear)
}

func TestParseBracketedWithCountPrefix(t *testing.T) {
	text := "EH1: Trajann Valoris [140 pts]\n" +
		"BL1: (4) Custodian Guard, Guardian Spear [150 pts]\n"

	units := Parse(text)
	require.Len(t, units, 2)

	assert.Equal(t, "Trajann Valoris", units[0].Name)
	assert.Equal(t, 140, units[0].Points)

	assert.Equal(t, "Custodian Guard", units[1].Name)
	assert.Equal(t, 4, units[1].ModelCount)
	assert.Equal(t, 150, units[1].Points)
	assert.Equal(t, []string{"Guardian Spear"}, units[1].Wargear)
	assert.Contains(t, units[1].Keywords, "Battleline")
}

func TestParseDashed(t *testing.T) {
	text := "1 Captain - 80 pts\n5 Intercessors - 90 pts\n"

	units := Parse(text)
	require.Len(t, units, 2)
	assert.Equal(t, "Captain", units[0].Name)
	assert.Equal(t, 1, units[0].ModelCount)
	assert.Equal(t, 80, units[0].Points)
	assert.Equal(t, "Intercessors", units[1].Name)
	assert.Equal(t, 5, units[1].ModelCount)
}

func TestParseUnknownDialectReturnsEmpty(t *testing.T) {
	// Whitespace-tabulated columns: none of the three shapes.
	text := "Captain\t\t80\nIntercessors\t\t90\nTotal\t\t170\n"
	units := Parse(text)
	assert.Empty(t, units)
}

func TestParseSkipsMetadataLines(t *testing.T) {
	text := "Strike Force (2000 points)\n" +
		"Enhancement: Artisan of War (+25 pts)\n" +
		"Warlord\n" +
		"Captain (80 points)\n"

	units := Parse(text)
	require.Len(t, units, 1)
	assert.Equal(t, "Captain", units[0].Name)
}

func TestParseSkipsArmyTotalLine(t *testing.T) {
	// 2000 points in a unit shape is an army total, not a datasheet.
	text := "Army Roster (2000 points)\nCaptain (80 points)\n"
	units := Parse(text)
	require.Len(t, units, 1)
	assert.Equal(t, "Captain", units[0].Name)
}

func TestParseSectionHeaderKeyword(t *testing.T) {
	text := "CHARACTERS\n" +
		"Captain (80 points)\n" +
		"BATTLELINE\n" +
		"Intercessor Squad (160 points)\n" +
		"OTHER DATASHEETS\n" +
		"Gladiator Lancer (160 points)\n"

	units := Parse(text)
	require.Len(t, units, 3)
	assert.Equal(t, []string{"Character"}, units[0].Keywords)
	assert.Equal(t, []string{"Battleline"}, units[1].Keywords)
	assert.Empty(t, units[2].Keywords)
}

func TestParseTrailingModelCount(t *testing.T) {
	text := "Custodian Guard (4) (170 points)\n"
	units := Parse(text)
	require.Len(t, units, 1)
	assert.Equal(t, "Custodian Guard", units[0].Name)
	assert.Equal(t, 4, units[0].ModelCount)
	assert.Equal(t, 170, units[0].Points)
}

func TestParseLeadingMultiplier(t *testing.T) {
	text := "3x Vertus Praetors (225 points)\n"
	units := Parse(text)
	require.Len(t, units, 1)
	assert.Equal(t, "Vertus Praetors", units[0].Name)
	assert.Equal(t, 3, units[0].ModelCount)
}

func TestParseNestedGearBuffer(t *testing.T) {
	// App export shape: model-type breakdown at the shallow level, weapons
	// nested one deeper. Model counts sum into the unit.
	text := "Custodian Guard (170 points)\n" +
		"  • 2x Custodian w/ spear\n" +
		"    ◦ 2x Guardian spear\n" +
		"  • 2x Custodian w/ shield\n" +
		"    ◦ 2x Sentinel blade\n"

	units := Parse(text)
	require.Len(t, units, 1)
	assert.Equal(t, 4, units[0].ModelCount)
	assert.Equal(t, []string{"2x Guardian spear", "2x Sentinel blade"}, units[0].Wargear)
}

func TestParseInlineTrailingGear(t *testing.T) {
	text := "Terminator Squad (180 points) 4x Storm bolter, 1x Assault cannon\n"
	units := Parse(text)
	require.Len(t, units, 1)
	assert.Equal(t, []string{"4x Storm bolter", "Assault cannon"}, units[0].Wargear)
}

func TestParseGearSinglePrefixDropped(t *testing.T) {
	text := "Captain (80 points)\n  • 1x Power fist\n  • 2x Grenades\n"
	units := Parse(text)
	require.Len(t, units, 1)
	assert.Equal(t, []string{"Power fist", "2x Grenades"}, units[0].Wargear)
}

func TestParsePrefixTagKeywords(t *testing.T) {
	text := "VE1: Caladius Grav-tank [215 pts]\nDT1: Rhino [75 pts]\n"
	units := Parse(text)
	require.Len(t, units, 2)
	assert.Equal(t, []string{"Vehicle"}, units[0].Keywords)
	assert.Equal(t, []string{"Dedicated Transport"}, units[1].Keywords)
}

func TestDetectChapter(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"parenthetical", "Space Marines (Blood Angels)\nStrike Force", "Blood Angels"},
		{"dashed astartes", "Adeptus Astartes - Dark Angels\n2000 pts", "Dark Angels"},
		{"line after umbrella", "Space Marines\nSpace Wolves\nStrike Force (2000 points)", "Space Wolves"},
		{"detachment", "Detachment: Righteous Crusaders\nCaptain (80 points)", "Black Templars"},
		{"named character", "Chaplain Grimaldus (90 points)", "Black Templars"},
		{"no evidence", "Generic Captain (80 points)", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectChapter(tt.text))
		})
	}
}
