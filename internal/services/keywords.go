package services

import (
	"sort"
	"strings"
	"unicode"

	"github.com/jdkato/prose/v2"
)

// KeywordExtractor pulls the most informative terms out of catalog item
// text. The results are attached to index metadata at ingestion so a search
// hit can explain why it matched.
type KeywordExtractor struct {
	stopWords map[string]bool
	minLength int
}

// NewKeywordExtractor creates a new keyword extractor
func NewKeywordExtractor() *KeywordExtractor {
	stopWords := map[string]bool{
		"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
		"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
		"with": true, "by": true, "is": true, "are": true, "was": true, "were": true,
		"be": true, "been": true, "have": true, "has": true, "had": true, "do": true,
		"does": true, "did": true, "will": true, "would": true, "could": true, "should": true,
		"this": true, "that": true, "these": true, "those": true, "i": true, "you": true,
		"he": true, "she": true, "it": true, "we": true, "they": true, "my": true,
		"your": true, "his": true, "her": true, "its": true, "our": true, "their": true,
	}

	return &KeywordExtractor{
		stopWords: stopWords,
		minLength: 2,
	}
}

type keywordCandidate struct {
	word      string
	frequency int
	score     float64
}

// Extract returns up to max keywords from text, most important first.
func (ke *KeywordExtractor) Extract(text string, max int) ([]string, error) {
	doc, err := prose.NewDocument(text)
	if err != nil {
		return nil, err
	}

	wordFreq := make(map[string]*keywordCandidate)

	for _, tok := range doc.Tokens() {
		word := strings.ToLower(tok.Text)

		if ke.shouldSkipWord(word, tok.Tag) {
			continue
		}

		score := ke.calculateScore(tok.Tag)

		if existing, exists := wordFreq[word]; exists {
			existing.frequency++
			existing.score += score
		} else {
			wordFreq[word] = &keywordCandidate{
				word:      word,
				frequency: 1,
				score:     score,
			}
		}
	}

	// Named entities get a boost
	for _, ent := range doc.Entities() {
		word := strings.ToLower(ent.Text)
		if len(word) >= ke.minLength && !ke.stopWords[word] {
			if existing, exists := wordFreq[word]; exists {
				existing.score += 2.0
			} else {
				wordFreq[word] = &keywordCandidate{
					word:      word,
					frequency: 1,
					score:     2.0,
				}
			}
		}
	}

	candidates := make([]*keywordCandidate, 0, len(wordFreq))
	for _, candidate := range wordFreq {
		candidate.score = candidate.score * float64(candidate.frequency)
		candidates = append(candidates, candidate)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].word < candidates[j].word
	})

	if max > 0 && len(candidates) > max {
		candidates = candidates[:max]
	}

	keywords := make([]string, len(candidates))
	for i, candidate := range candidates {
		keywords[i] = candidate.word
	}
	return keywords, nil
}

// shouldSkipWord determines if a word should be filtered out
func (ke *KeywordExtractor) shouldSkipWord(word, posTag string) bool {
	if len(word) < ke.minLength {
		return true
	}

	if ke.stopWords[word] {
		return true
	}

	if ke.isPureNumber(word) || ke.isPunctuation(word) {
		return true
	}

	// Skip function-word POS tags (determiners, prepositions, etc.)
	skipTags := map[string]bool{
		"DT":   true, // determiner
		"IN":   true, // preposition
		"TO":   true, // to
		"CC":   true, // coordinating conjunction
		"PRP":  true, // personal pronoun
		"PRP$": true, // possessive pronoun
		"WP":   true, // wh-pronoun
		"WDT":  true, // wh-determiner
	}

	return skipTags[posTag]
}

// calculateScore assigns importance based on POS tag
func (ke *KeywordExtractor) calculateScore(posTag string) float64 {
	scores := map[string]float64{
		"NN":   1.5, // noun
		"NNS":  1.5, // plural noun
		"NNP":  2.0, // proper noun
		"NNPS": 2.0, // plural proper noun
		"VB":   1.2, // verb
		"VBD":  1.2, // past tense verb
		"VBG":  1.2, // gerund
		"VBN":  1.2, // past participle
		"JJ":   1.0, // adjective
		"JJR":  1.0, // comparative adjective
		"JJS":  1.0, // superlative adjective
	}

	if score, ok := scores[posTag]; ok {
		return score
	}
	return 0.5
}

func (ke *KeywordExtractor) isPureNumber(word string) bool {
	for _, r := range word {
		if !unicode.IsDigit(r) && r != '.' && r != ',' {
			return false
		}
	}
	return true
}

func (ke *KeywordExtractor) isPunctuation(word string) bool {
	for _, r := range word {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
