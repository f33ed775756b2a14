// ABOUTME: Parses free-text model replies into structured conversation analysis fields
// ABOUTME: Section headers and bullets are matched with regular expressions; missing parts stay empty
package coach

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/harperreed/salescrm/models"
)

// Parsed is the structured content extracted from one reply.
type Parsed struct {
	Summary          string
	Sentiment        string
	KeyPoints        []string
	Objections       []string
	NextSteps        []string
	RecommendedStage models.Stage
	WinProbability   *int
}

const (
	secSummary     = "summary"
	secSentiment   = "sentiment"
	secKeyPoints   = "key points"
	secObjections  = "objections"
	secNextSteps   = "next steps"
	secStage       = "recommended stage"
	secProbability = "win probability"
)

var (
	// "## Key Points:", "**Next steps:** call back", "WIN PROBABILITY - 40%"
	headerRe = regexp.MustCompile(`(?i)^\s*(?:#{1,6}\s*)?(?:\*\*)?\s*(summary|sentiment|key\s+points|objections|next\s+steps|recommended\s+stage|win\s+probability)\s*(?:\*\*)?\s*[:\-]\s*(?:\*\*)?\s*(.*)$`)
	bulletRe = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s+(.+)$`)
	spaceRe  = regexp.MustCompile(`\s+`)
	numberRe = regexp.MustCompile(`(\d{1,3}(?:\.\d+)?)\s*%?`)
	stageRe  = regexp.MustCompile(`(?i)\b(?:closed[\s-]+)?(lead|qualified|proposal|negotiation|won|lost)\b`)

	// "positive", "not very positive", "wasn't negative"
	sentimentRe = regexp.MustCompile(`(?i)(\bnot|\bnever|\bhardly|n't)?\s*(?:\b(?:very|entirely|particularly|overly|really|that)\s+)?\b(positive|negative|neutral|mixed)\b`)
	noneRe      = regexp.MustCompile(`(?i)^(?:none|n/?a|no(?:ne)? (?:raised|identified|noted))\.?$`)
)

// ParseAnalysis never fails. Unknown stages are dropped and probabilities are
// clamped to 0..100.
func ParseAnalysis(text string) Parsed {
	sections := splitSections(text)

	p := Parsed{
		Summary:    strings.Join(sections[secSummary].prose(), " "),
		KeyPoints:  sections[secKeyPoints].items(),
		Objections: sections[secObjections].items(),
		NextSteps:  sections[secNextSteps].items(),
	}

	p.Sentiment = parseSentiment(strings.Join(sections[secSentiment].prose(), " "))
	p.RecommendedStage = parseStage(strings.Join(sections[secStage].prose(), " "))
	p.WinProbability = parseProbability(strings.Join(sections[secProbability].prose(), " "))

	return p
}

type section struct {
	lines []string
}

func (s *section) prose() []string {
	if s == nil {
		return nil
	}
	var out []string
	for _, line := range s.lines {
		if m := bulletRe.FindStringSubmatch(line); m != nil {
			line = m[1]
		}
		if line = cleanLine(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func (s *section) items() []string {
	items := []string{}
	if s == nil {
		return items
	}

	var bullets, plain []string
	for _, line := range s.lines {
		if m := bulletRe.FindStringSubmatch(line); m != nil {
			if item := cleanLine(m[1]); item != "" {
				bullets = append(bullets, item)
			}
			continue
		}
		if item := cleanLine(line); item != "" {
			plain = append(plain, item)
		}
	}

	source := bullets
	if len(source) == 0 {
		source = plain
	}
	for _, item := range source {
		if noneRe.MatchString(item) {
			continue
		}
		items = append(items, item)
	}
	return items
}

func splitSections(text string) map[string]*section {
	sections := make(map[string]*section)
	var current *section

	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if m := headerRe.FindStringSubmatch(line); m != nil {
			name := strings.ToLower(spaceRe.ReplaceAllString(m[1], " "))
			current = &section{}
			// first occurrence wins
			if _, seen := sections[name]; !seen {
				sections[name] = current
			}
			if rest := strings.TrimSpace(m[2]); rest != "" {
				current.lines = append(current.lines, rest)
			}
			continue
		}
		if current != nil {
			current.lines = append(current.lines, line)
		}
	}

	return sections
}

func cleanLine(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "*_`")
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// parseSentiment takes the first sentiment word that is not negated. "Not
// positive" says nothing definite, so it is skipped rather than flipped.
func parseSentiment(s string) string {
	for _, m := range sentimentRe.FindAllStringSubmatch(s, -1) {
		if m[1] != "" {
			continue
		}
		switch strings.ToLower(m[2]) {
		case models.SentimentPositive:
			return models.SentimentPositive
		case models.SentimentNegative:
			return models.SentimentNegative
		default:
			return models.SentimentNeutral
		}
	}
	return ""
}

func parseStage(s string) models.Stage {
	m := stageRe.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	stage := models.Stage(strings.ToLower(m[1]))
	if !models.IsValidStage(stage) {
		return ""
	}
	return stage
}

func parseProbability(s string) *int {
	m := numberRe.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	v := int(math.Round(f))
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	return &v
}
