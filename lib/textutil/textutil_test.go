package textutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseFrenchDate(t *testing.T) {
	date, err := ParseFrenchDate("29/08/2021")
	require.NoError(t, err)
	require.Equal(t, time.Date(2021, 8, 29, 0, 0, 0, 0, time.Local), date)

	date, err = ParseFrenchDate(" 01/01/2022 ")
	require.NoError(t, err)
	require.Equal(t, time.Date(2022, 1, 1, 0, 0, 0, 0, time.Local), date)

	for _, input := range []string{"", "29/08", "2021-08-29", "aa/bb/cccc", "29/08/2021/12"} {
		_, err := ParseFrenchDate(input)
		require.Error(t, err, "input %q", input)
	}
}

func TestCollapseSpaces(t *testing.T) {
	require.Equal(t, "Multirisque Habitation", CollapseSpaces("Multirisque    Habitation"))
	require.Equal(t, " no interior runs ", CollapseSpaces(" no  interior   runs "))
	require.Equal(t, "untouched", CollapseSpaces("untouched"))
}

func TestAbsoluteURL(t *testing.T) {
	require.Equal(
		t,
		"https://espace-perso.assurance-mutuelle-poitiers.fr/get-document/abc123",
		AbsoluteURL("https://espace-perso.assurance-mutuelle-poitiers.fr", "/get-document/abc123"),
	)
}

func TestSafeFilename(t *testing.T) {
	require.Equal(t, "Relevé_annuel_-_2021.pdf", SafeFilename("Relevé  annuel / 2021"))
	require.Equal(t, "Conditions_générales.pdf", SafeFilename("Conditions générales"))

	// same label twice yields the same name, dedup depends on it
	first := SafeFilename("Relevé  annuel / 2021")
	second := SafeFilename("Relevé  annuel / 2021")
	require.Equal(t, first, second)
}
