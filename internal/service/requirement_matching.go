package service

import (
	"regexp"
	"strings"

	"github.com/noah-isme/internquest-api/internal/models"
)

var (
	parenthesizedSegment = regexp.MustCompile(`\([^)]*\)`)
	nonAlphanumericRun   = regexp.MustCompile(`[^a-z0-9]+`)
)

// legacyTitleAliases lists titles older clients stored for the same requirement.
var legacyTitleAliases = [][]string{
	{"notarized parental consent", "parent/guardian consent form", "parental consent", "parents consent form"},
	{"proof of insurance", "insurance certificate", "certificate of insurance"},
	{"proof of enrollment", "certificate of matriculation", "certificate of registration"},
	{"medical certificate", "medical clearance", "health certificate"},
	{"memorandum of agreement", "moa"},
	{"psychological test certification", "psychological evaluation", "psychological test result"},
	{"ojt orientation certificate", "orientation certificate", "certificate of orientation"},
	{"curriculum vitae", "resume", "resume/cv"},
}

var aliasGroupByTitle = buildAliasIndex(legacyTitleAliases)

var fuzzyStopwords = map[string]struct{}{
	"proof":         {},
	"of":            {},
	"certificate":   {},
	"certification": {},
	"form":          {},
	"document":      {},
}

func buildAliasIndex(groups [][]string) map[string]int {
	index := make(map[string]int)
	for i, group := range groups {
		for _, title := range group {
			index[NormalizeTitle(title)] = i
		}
	}
	return index
}

// NormalizeTitle lowercases, drops parenthesized segments and collapses non-alphanumeric runs to one space.
func NormalizeTitle(title string) string {
	normalized := strings.ToLower(title)
	normalized = parenthesizedSegment.ReplaceAllString(normalized, " ")
	normalized = nonAlphanumericRun.ReplaceAllString(normalized, " ")
	return strings.TrimSpace(normalized)
}

// TitlesEquivalent reports an exact normalized match or membership in the same legacy alias group.
func TitlesEquivalent(a, b string) bool {
	if blockedTitlePair(a, b) {
		return false
	}
	na, nb := NormalizeTitle(a), NormalizeTitle(b)
	if na == "" || nb == "" {
		return false
	}
	if na == nb {
		return true
	}
	ga, okA := aliasGroupByTitle[na]
	gb, okB := aliasGroupByTitle[nb]
	return okA && okB && ga == gb
}

// FuzzyTitleMatch requires two shared significant words between the titles.
func FuzzyTitleMatch(a, b string) bool {
	if blockedTitlePair(a, b) {
		return false
	}
	return sharedWordCount(significantWords(a, true), significantWords(b, true)) >= 2
}

// ReconcileTitles maps canonical requirement ids to the index of the saved record they inherit state from.
// Equivalent titles are assigned first (exact before alias), fuzzy matches only fill the remaining
// canonical entries, and each saved record is used at most once.
func ReconcileTitles(canonical []models.RequirementDefinition, saved []models.Requirement) map[string]int {
	mapping := make(map[string]int, len(canonical))
	consumed := make(map[int]bool, len(saved))

	assign := func(match func(canonicalTitle, savedTitle string) bool) {
		for _, def := range canonical {
			if _, done := mapping[def.ID]; done {
				continue
			}
			for idx, record := range saved {
				if consumed[idx] {
					continue
				}
				if match(def.Title, record.Title) {
					mapping[def.ID] = idx
					consumed[idx] = true
					break
				}
			}
		}
	}

	assign(func(a, b string) bool {
		na := NormalizeTitle(a)
		return na != "" && na == NormalizeTitle(b) && !blockedTitlePair(a, b)
	})
	assign(TitlesEquivalent)
	assign(FuzzyTitleMatch)

	return mapping
}

// blockedTitlePair guards known false positives: insurance never matches enrollment,
// and a title carrying a COM token never matches an insurance title.
func blockedTitlePair(a, b string) bool {
	na, nb := NormalizeTitle(a), NormalizeTitle(b)
	insuranceA := strings.Contains(na, "insurance")
	insuranceB := strings.Contains(nb, "insurance")
	enrollmentA := strings.Contains(na, "enrollment")
	enrollmentB := strings.Contains(nb, "enrollment")
	if (insuranceA && enrollmentB) || (insuranceB && enrollmentA) {
		return true
	}
	comA, comB := hasCOMToken(a), hasCOMToken(b)
	return (comA && insuranceB) || (comB && insuranceA)
}

// hasCOMToken looks at the raw title because normalization removes the "(COM)" suffix.
func hasCOMToken(title string) bool {
	for _, word := range strings.Fields(nonAlphanumericRun.ReplaceAllString(strings.ToLower(title), " ")) {
		if word == "com" || word == "coms" {
			return true
		}
	}
	return false
}

func significantWords(title string, dropStopwords bool) map[string]struct{} {
	words := make(map[string]struct{})
	for _, word := range strings.Fields(NormalizeTitle(title)) {
		if len(word) <= 3 {
			continue
		}
		if dropStopwords {
			if _, stop := fuzzyStopwords[word]; stop {
				continue
			}
		}
		words[word] = struct{}{}
	}
	return words
}

func sharedWordCount(a, b map[string]struct{}) int {
	count := 0
	for word := range a {
		if _, ok := b[word]; ok {
			count++
		}
	}
	return count
}

// containsKeyword matches short keywords (3 chars or fewer) on whole words only.
func containsKeyword(normalizedText, keyword string) bool {
	if keyword == "" || normalizedText == "" {
		return false
	}
	if len(keyword) > 3 {
		return strings.Contains(normalizedText, keyword)
	}
	for _, word := range strings.Fields(normalizedText) {
		if word == keyword {
			return true
		}
	}
	return false
}
