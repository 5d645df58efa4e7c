package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/internquest-api/internal/models"
)

func TestNormalizeTitle(t *testing.T) {
	require.Equal(t, "proof of enrollment", NormalizeTitle("Proof of Enrollment (COM)"))
	require.Equal(t, "parent guardian consent form", NormalizeTitle("  Parent/Guardian   Consent-Form!! "))
	require.Equal(t, "ojt orientation certificate", NormalizeTitle("OJT (2024) Orientation Certificate"))
	require.Equal(t, "", NormalizeTitle("(draft)"))
}

func TestTitlesEquivalent(t *testing.T) {
	require.True(t, TitlesEquivalent("Notarized Parental Consent", "Parent/Guardian Consent Form"))
	require.True(t, TitlesEquivalent("Proof of Insurance", "insurance certificate"))
	require.True(t, TitlesEquivalent("Proof of Enrollment (COM)", "Certificate of Matriculation"))
	require.True(t, TitlesEquivalent("Memorandum of Agreement", "MOA"))
	require.True(t, TitlesEquivalent("Curriculum Vitae", "Resume/CV"))
	require.True(t, TitlesEquivalent("Medical Certificate", "medical certificate"))

	require.False(t, TitlesEquivalent("Proof of Insurance", "Proof of Enrollment (COM)"))
	require.False(t, TitlesEquivalent("Medical Certificate", "Proof of Insurance"))
	require.False(t, TitlesEquivalent("", ""))
}

func TestFuzzyTitleMatch(t *testing.T) {
	require.True(t, FuzzyTitleMatch("Psychological Test Certification", "Psychological Test Results Form"))
	require.True(t, FuzzyTitleMatch("Company Orientation Seminar", "Orientation Seminar Attendance"))
	require.False(t, FuzzyTitleMatch("OJT Orientation Certificate", "Orientation Seminar"))

	// stopwords and short words do not count
	require.False(t, FuzzyTitleMatch("Proof of Insurance", "Proof of Enrollment"))
	require.False(t, FuzzyTitleMatch("Medical Certificate Form", "Insurance Certificate Form"))

	// COM token never matches insurance even with shared words
	require.False(t, FuzzyTitleMatch("Student Coverage Registration (COM)", "Student Coverage Insurance"))
}

func TestReconcileTitlesPrefersExactAndConsumesOnce(t *testing.T) {
	canonical := []models.RequirementDefinition{
		{ID: "1", Title: "Proof of Enrollment (COM)"},
		{ID: "2", Title: "Notarized Parental Consent"},
		{ID: "5", Title: "Proof of Insurance"},
	}
	saved := []models.Requirement{
		{Title: "Parental Consent"},
		{Title: "Notarized Parental Consent"},
		{Title: "Proof of Insurance"},
	}

	mapping := ReconcileTitles(canonical, saved)
	require.Equal(t, map[string]int{"2": 1, "5": 2}, mapping)
}

func TestReconcileTitlesInsuranceNeverMergesIntoEnrollment(t *testing.T) {
	canonical := []models.RequirementDefinition{{ID: "1", Title: "Proof of Enrollment (COM)"}}
	saved := []models.Requirement{{Title: "Proof of Insurance"}}

	require.Empty(t, ReconcileTitles(canonical, saved))
}

func TestReconcileTitlesFuzzyFallback(t *testing.T) {
	canonical := []models.RequirementDefinition{
		{ID: "4", Title: "Psychological Test Certification"},
		{ID: "6", Title: "OJT Orientation Certificate"},
	}
	saved := []models.Requirement{
		{Title: "Psychological Test Outcome"},
		{Title: "Certificate of Orientation"},
	}

	mapping := ReconcileTitles(canonical, saved)
	require.Equal(t, 0, mapping["4"])
	require.Equal(t, 1, mapping["6"])
}

func TestContainsKeyword(t *testing.T) {
	require.True(t, containsKeyword("signed moa 2024", "moa"))
	require.False(t, containsKeyword("moana handbook", "moa"))
	require.True(t, containsKeyword("company memorandum of agreement", "memorandum of agreement"))
	require.False(t, containsKeyword("", "moa"))
}
