package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveFactionPromotesChapter(t *testing.T) {
	faction, sub, allegiance := ResolveFaction("Space Marines", "Blood Angels")
	assert.Equal(t, "Blood Angels", faction)
	assert.Empty(t, sub)
	assert.Equal(t, AllegianceImperium, allegiance)
}

func TestResolveFactionUmbrellaAlias(t *testing.T) {
	faction, sub, allegiance := ResolveFaction("Adeptus Astartes", "")
	assert.Equal(t, "Space Marines", faction)
	assert.Empty(t, sub)
	assert.Equal(t, AllegianceImperium, allegiance)
}

func TestResolveFactionDemotesChapter(t *testing.T) {
	faction, sub, _ := ResolveFaction("Ultramarines", "")
	assert.Equal(t, "Space Marines", faction)
	assert.Equal(t, "Ultramarines", sub)
}

func TestNormalizeFactionNameAliases(t *testing.T) {
	cases := map[string]string{
		"Eldar":             "Aeldari",
		"eldar":             "Aeldari",
		"Dark Eldar":        "Drukhari",
		"Tau":               "T'au Empire",
		"Imperial Guard":    "Astra Militarum",
		"Sisters of Battle": "Adepta Sororitas",
		"GSC":               "Genestealer Cults",
		"Emperors Children": "Emperor's Children",
	}
	for input, want := range cases {
		info, ok := NormalizeFactionName(input)
		assert.True(t, ok, input)
		assert.Equal(t, want, info.Name, input)
	}
}

func TestNormalizeFactionNameBlacklist(t *testing.T) {
	info, ok := NormalizeFactionName("Chaos Space Marines - Word Bearers")
	assert.True(t, ok)
	assert.Equal(t, "Chaos Space Marines", info.Name)
	assert.Equal(t, AllegianceChaos, info.Allegiance)

	info, ok = NormalizeFactionName("Chaos Knights (Iconoclast)")
	assert.True(t, ok)
	assert.Equal(t, "Chaos Knights", info.Name)
}

func TestNormalizeFactionNameUnknown(t *testing.T) {
	info, ok := NormalizeFactionName("Middle-earth Rohan")
	assert.False(t, ok)
	assert.Equal(t, AllegianceUnknown, info.Allegiance)
}
