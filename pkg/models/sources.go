package models

import (
	"regexp"
	"sort"
	"strings"
)

// SourcesMentioned maps cited source names to mention counts, split by kind.
type SourcesMentioned struct {
	CredibleNewsSources map[string]int `json:"credible_news_sources"`
	SocialMedia         map[string]int `json:"social_media"`
}

// Score is the credibility score: credible mentions minus social media
// mentions.
func (s SourcesMentioned) Score() int {
	score := 0
	for _, n := range s.CredibleNewsSources {
		score += n
	}
	for _, n := range s.SocialMedia {
		score -= n
	}
	return score
}

// Rows flattens the mapping into mentioned_sources rows, credible sources
// first, names sorted within each kind.
func (s SourcesMentioned) Rows() []MentionedSource {
	rows := make([]MentionedSource, 0, len(s.CredibleNewsSources)+len(s.SocialMedia))
	rows = appendSorted(rows, s.CredibleNewsSources, SourceTypeCredible)
	rows = appendSorted(rows, s.SocialMedia, SourceTypeSocial)
	return rows
}

func appendSorted(rows []MentionedSource, m map[string]int, kind string) []MentionedSource {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		rows = append(rows, MentionedSource{Name: name, Type: kind, Count: m[name]})
	}
	return rows
}

// SourcesFromRows reshapes mentioned_sources rows into the two-kind mapping.
// Repeated names within a kind are summed.
func SourcesFromRows(rows []MentionedSource) SourcesMentioned {
	out := SourcesMentioned{
		CredibleNewsSources: map[string]int{},
		SocialMedia:         map[string]int{},
	}
	for _, r := range rows {
		switch r.Type {
		case SourceTypeCredible:
			out.CredibleNewsSources[r.Name] += r.Count
		case SourceTypeSocial:
			out.SocialMedia[r.Name] += r.Count
		}
	}
	return out
}

// Question is a ranked lateral-reading question. Rank 1 is the most important.
type Question struct {
	Rank int    `db:"importance" json:"rank"`
	Text string `db:"question" json:"question"`
}

// MaxQuestions caps the lateral-reading questions kept per article.
const MaxQuestions = 10

// numbering matches "1. " or "2) " but not the "1.5" of a leading number.
var numbering = regexp.MustCompile(`^\d+[.)](\s+|$)`)

// ParseQuestions splits newline-delimited questions, strips leading "N. "
// numbering and ranks them by position, keeping at most MaxQuestions. Blank
// lines are skipped and do not consume a rank.
func ParseQuestions(text string) []Question {
	var out []Question
	for _, line := range strings.Split(text, "\n") {
		if len(out) == MaxQuestions {
			break
		}
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(numbering.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		out = append(out, Question{Rank: len(out) + 1, Text: line})
	}
	return out
}
