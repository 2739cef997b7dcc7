package models

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSourcesMentioned_Score(t *testing.T) {
	sm := SourcesMentioned{
		CredibleNewsSources: map[string]int{"Reuters": 3},
		SocialMedia:         map[string]int{"X": 5},
	}
	assert.Equal(t, -2, sm.Score())
	assert.Equal(t, 0, SourcesMentioned{}.Score())
}

func TestSourcesMentioned_RowsRoundTrip(t *testing.T) {
	sm := SourcesMentioned{
		CredibleNewsSources: map[string]int{"Reuters": 3, "BBC": 1},
		SocialMedia:         map[string]int{"X": 5},
	}
	rows := sm.Rows()
	assert.Equal(t, []MentionedSource{
		{Name: "BBC", Type: SourceTypeCredible, Count: 1},
		{Name: "Reuters", Type: SourceTypeCredible, Count: 3},
		{Name: "X", Type: SourceTypeSocial, Count: 5},
	}, rows)
	assert.Equal(t, sm, SourcesFromRows(rows))
}

func TestParseQuestions(t *testing.T) {
	got := ParseQuestions("1. Quem escreveu?\n\n2) Quem financia?\n  3.   Há outras fontes?  ")
	assert.Equal(t, []Question{
		{Rank: 1, Text: "Quem escreveu?"},
		{Rank: 2, Text: "Quem financia?"},
		{Rank: 3, Text: "Há outras fontes?"},
	}, got)
	assert.Empty(t, ParseQuestions("\n  \n"))
}

func TestSubmissionTerms(t *testing.T) {
	s := ArticleSubmission{
		Keywords: []string{"clima", "água"},
		Entities: []string{"Lisboa", "clima"},
	}
	assert.Equal(t, []string{"clima", "água", "Lisboa"}, s.Terms())
}

func TestParseQuestions_KeepsLeadingNumbers(t *testing.T) {
	got := ParseQuestions("1. 1.5 milhões de pessoas foram afetadas?\n2.\n3) 2) Quem?")
	assert.Equal(t, []Question{
		{Rank: 1, Text: "1.5 milhões de pessoas foram afetadas?"},
		{Rank: 2, Text: "2) Quem?"},
	}, got)
}

func TestParseQuestions_Capped(t *testing.T) {
	var lines []string
	for i := 1; i <= MaxQuestions+3; i++ {
		lines = append(lines, fmt.Sprintf("%d. Pergunta %d?", i, i))
	}
	got := ParseQuestions(strings.Join(lines, "\n"))
	assert.Len(t, got, MaxQuestions)
	assert.Equal(t, Question{Rank: MaxQuestions, Text: fmt.Sprintf("Pergunta %d?", MaxQuestions)}, got[MaxQuestions-1])
}
