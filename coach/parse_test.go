// ABOUTME: Tests for model reply parsing
// ABOUTME: Covers headings, bullets, markdown decoration and tolerant fallbacks
package coach

import (
	"testing"

	"github.com/harperreed/salescrm/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wellFormedReply = `SUMMARY: The buyer reviewed pricing and confirmed budget
for Q3. Legal review is the remaining hurdle.
SENTIMENT: Positive
KEY POINTS:
- Budget approved for Q3
- Needs SSO support
OBJECTIONS:
- Contract length too long
NEXT STEPS:
1. Send revised contract
2. Book legal review
RECOMMENDED STAGE: negotiation
WIN PROBABILITY: 70%`

func TestParseAnalysisWellFormed(t *testing.T) {
	p := ParseAnalysis(wellFormedReply)

	assert.Equal(t, "The buyer reviewed pricing and confirmed budget for Q3. Legal review is the remaining hurdle.", p.Summary)
	assert.Equal(t, models.SentimentPositive, p.Sentiment)
	assert.Equal(t, []string{"Budget approved for Q3", "Needs SSO support"}, p.KeyPoints)
	assert.Equal(t, []string{"Contract length too long"}, p.Objections)
	assert.Equal(t, []string{"Send revised contract", "Book legal review"}, p.NextSteps)
	assert.Equal(t, models.StageNegotiation, p.RecommendedStage)
	require.NotNil(t, p.WinProbability)
	assert.Equal(t, 70, *p.WinProbability)
}

func TestParseAnalysisMarkdownHeadings(t *testing.T) {
	reply := "## Summary:\nQuick intro call.\n\n**Sentiment:** neutral\n\n**Key Points:**\n* Uses a competitor\n\n" +
		"### Objections:\nNone\n\n**Next steps:** follow up next week\n\n**Recommended stage:** Qualified.\n\n**Win probability:** 25"

	p := ParseAnalysis(reply)

	assert.Equal(t, "Quick intro call.", p.Summary)
	assert.Equal(t, models.SentimentNeutral, p.Sentiment)
	assert.Equal(t, []string{"Uses a competitor"}, p.KeyPoints)
	assert.Equal(t, []string{}, p.Objections)
	assert.Equal(t, []string{"follow up next week"}, p.NextSteps)
	assert.Equal(t, models.StageQualified, p.RecommendedStage)
	require.NotNil(t, p.WinProbability)
	assert.Equal(t, 25, *p.WinProbability)
}

func TestParseAnalysisMissingSections(t *testing.T) {
	p := ParseAnalysis("I could not understand this transcript.")

	assert.Empty(t, p.Summary)
	assert.Empty(t, p.Sentiment)
	assert.Equal(t, []string{}, p.KeyPoints)
	assert.Equal(t, []string{}, p.Objections)
	assert.Equal(t, []string{}, p.NextSteps)
	assert.Empty(t, p.RecommendedStage)
	assert.Nil(t, p.WinProbability)
}

func TestParseAnalysisDropsUnknownStage(t *testing.T) {
	p := ParseAnalysis("RECOMMENDED STAGE: discovery")
	assert.Empty(t, p.RecommendedStage)
}

func TestParseAnalysisClosedWon(t *testing.T) {
	p := ParseAnalysis("Recommended Stage: Closed Won")
	assert.Equal(t, models.StageWon, p.RecommendedStage)
}

func TestParseAnalysisClampsProbability(t *testing.T) {
	p := ParseAnalysis("WIN PROBABILITY: 150%")
	require.NotNil(t, p.WinProbability)
	assert.Equal(t, 100, *p.WinProbability)

	p = ParseAnalysis("WIN PROBABILITY: 33.6%")
	require.NotNil(t, p.WinProbability)
	assert.Equal(t, 34, *p.WinProbability)

	p = ParseAnalysis("WIN PROBABILITY: unclear")
	assert.Nil(t, p.WinProbability)
}

func TestParseAnalysisFirstHeadingWins(t *testing.T) {
	p := ParseAnalysis("SENTIMENT: negative\nSENTIMENT: positive")
	assert.Equal(t, models.SentimentNegative, p.Sentiment)
}

func TestParseSentimentReadsNegation(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Positive", models.SentimentPositive},
		{"**positive** overall", models.SentimentPositive},
		{"not positive at all", ""},
		{"Not very positive; negative on price", models.SentimentNegative},
		{"The buyer wasn't negative, mostly neutral", models.SentimentNeutral},
		{"Mixed. Keen on the product, not on the price", models.SentimentNeutral},
		{"Negative, though not hostile", models.SentimentNegative},
		{"cautiously optimistic", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseSentiment(tt.in))
		})
	}
}

func TestParseAnalysisNegatedSentiment(t *testing.T) {
	p := ParseAnalysis("SUMMARY: Pricing call.\nSENTIMENT: Not positive, the buyer is negative about renewal terms.")
	assert.Equal(t, models.SentimentNegative, p.Sentiment)
}
