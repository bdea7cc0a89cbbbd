package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoointerview/internal/metrics"
	"github.com/yoockh/yoointerview/internal/models"
	"github.com/yoockh/yoointerview/internal/providers/llm"
)

const (
	CategoryHR            = "hr"
	CategoryTechnical     = "technical"
	CategoryCollaboration = "collaboration"
)

var categoryRotation = []string{CategoryHR, CategoryTechnical, CategoryCollaboration}

// QuestionGenerator produces interviewer questions and the AI counterpart's answers.
type QuestionGenerator interface {
	Next(ctx context.Context, rec *models.InterviewRecord, profileSummary string) (models.Question, error)
	Answer(ctx context.Context, rec *models.InterviewRecord, q models.Question) (string, error)
}

type bankEntry struct {
	text     string // {company} and {position} are substituted
	keywords []string
}

var questionBank = map[string][]bankEntry{
	CategoryHR: {
		{"Tell me about yourself and why you want to join {company} as a {position}.", []string{"motivation", "background"}},
		{"What do you know about {company}, and how does this {position} role fit your career plans?", []string{"research", "goals"}},
		{"Describe a setback in your career and what you changed afterwards.", []string{"resilience", "learning"}},
		{"Where do you see yourself two years after joining {company}?", []string{"growth", "goals"}},
	},
	CategoryTechnical: {
		{"Walk me through a recent project that is relevant to the {position} role. What was the hardest technical decision?", []string{"architecture", "trade-offs"}},
		{"How would you design a service at {company} that must stay responsive under a sudden tenfold traffic spike?", []string{"scalability", "caching", "load"}},
		{"Tell me about a production incident you debugged. How did you find the root cause?", []string{"debugging", "monitoring"}},
		{"How do you decide what to test, and how do you keep a test suite fast as it grows?", []string{"testing", "quality"}},
	},
	CategoryCollaboration: {
		{"Describe a time you disagreed with a teammate on an approach. How was it resolved?", []string{"conflict", "communication"}},
		{"How do you keep stakeholders informed when a {position} deliverable is at risk?", []string{"communication", "expectations"}},
		{"Tell me about a time you helped a colleague grow.", []string{"mentoring", "teamwork"}},
		{"How would you onboard yourself into an unfamiliar team at {company} in your first month?", []string{"onboarding", "relationships"}},
	},
}

var fallbackAnswers = map[string]string{
	CategoryHR:            "I have spent the last few years building products end to end, and {company} stands out to me because the {position} role lets me keep doing that at a larger scale. I prepare by studying the product, and I measure myself by the impact I deliver for users.",
	CategoryTechnical:     "I would start by clarifying the requirements and the expected load, then pick the simplest design that meets them. I would add caching and back-pressure where the data shows hotspots, instrument everything, and verify the design with a load test before rollout.",
	CategoryCollaboration: "I start by understanding the other person's constraints, then propose a small experiment we can both evaluate. I keep everyone informed early, write down the decision, and follow up so the team learns from the outcome.",
}

// TimeLimitFor maps difficulty to the answer window in seconds.
func TimeLimitFor(difficulty string) int {
	switch difficulty {
	case "easy":
		return 150
	case "hard":
		return 90
	default:
		return 120
	}
}

// CategoryAt is the category of the n-th (zero based) question.
func CategoryAt(n int) string {
	if n < 0 {
		n = 0
	}
	return categoryRotation[n%len(categoryRotation)]
}

type questionGenerator struct {
	llm llm.Provider
	log *logrus.Entry
}

// NewQuestionGenerator uses p when set and falls back to the built-in bank
// whenever generation fails. p may be nil.
func NewQuestionGenerator(p llm.Provider, log *logrus.Entry) QuestionGenerator {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &questionGenerator{llm: p, log: log}
}

func (g *questionGenerator) Next(ctx context.Context, rec *models.InterviewRecord, profileSummary string) (models.Question, error) {
	if err := ctx.Err(); err != nil {
		return models.Question{}, err
	}

	cfg := rec.Config.WithDefaults()
	n := len(rec.Questions)
	category := CategoryAt(n)
	q := models.Question{
		ID:        uuid.NewString(),
		Category:  category,
		TimeLimit: TimeLimitFor(cfg.Difficulty),
	}

	if g.llm != nil {
		text, err := llm.Collect(ctx, g.llm, questionPrompt(cfg, category, profileSummary, rec.Questions))
		text = cleanQuestion(text)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return models.Question{}, ctx.Err()
			}
			g.log.WithError(err).Warn("question generation failed, using bank")
		case text == "" || asked(rec.Questions, text):
			g.log.Warn("generated question empty or repeated, using bank")
		default:
			q.Text = text
			q.Keywords = bankKeywords(category, n)
			return q, nil
		}
	}

	metrics.QuestionFallbacks.Inc()
	entry := pickBankEntry(cfg, category, n, rec.Questions)
	q.Text = renderBank(entry, cfg)
	q.Keywords = entry.keywords
	return q, nil
}

func (g *questionGenerator) Answer(ctx context.Context, rec *models.InterviewRecord, q models.Question) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	cfg := rec.Config.WithDefaults()
	if g.llm != nil {
		text, err := llm.Collect(ctx, g.llm, answerPrompt(cfg, q))
		if err == nil && text != "" {
			return text, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		g.log.WithError(err).Warn("ai answer generation failed, using canned answer")
	}

	tmpl, ok := fallbackAnswers[q.Category]
	if !ok {
		tmpl = fallbackAnswers[CategoryHR]
	}
	return fill(tmpl, cfg), nil
}

func questionPrompt(cfg models.InterviewConfig, category, profile string, prior []models.Question) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are interviewing a candidate for the %s position at %s.\n", cfg.Position, cfg.Company)
	fmt.Fprintf(&b, "Difficulty: %s. Question category: %s.\n", cfg.Difficulty, category)
	if cfg.Language == "id" {
		b.WriteString("Ask the question in Indonesian.\n")
	}
	if profile != "" {
		b.WriteString("Candidate background:\n")
		b.WriteString(profile)
		b.WriteString("\nTailor the question to this background.\n")
	}
	if len(prior) > 0 {
		b.WriteString("Questions already asked:\n")
		for _, q := range prior {
			b.WriteString("- ")
			b.WriteString(q.Text)
			b.WriteString("\n")
		}
	}
	b.WriteString("Ask exactly one new interview question. Reply with the question only.")
	return b.String()
}

func answerPrompt(cfg models.InterviewConfig, q models.Question) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a strong candidate interviewing for the %s position at %s.\n", cfg.Position, cfg.Company)
	if cfg.Language == "id" {
		b.WriteString("Answer in Indonesian.\n")
	}
	b.WriteString("Answer this interview question in under 150 words, in the first person:\n")
	b.WriteString(q.Text)
	return b.String()
}

func cleanQuestion(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "Question:")
	s = strings.Trim(strings.TrimSpace(s), "\"")
	return strings.TrimSpace(s)
}

func asked(prior []models.Question, text string) bool {
	for _, q := range prior {
		if strings.EqualFold(strings.TrimSpace(q.Text), text) {
			return true
		}
	}
	return false
}

// pickBankEntry walks the category's bank from the rotation slot and returns the
// first entry not asked yet; once the bank is exhausted it repeats.
func pickBankEntry(cfg models.InterviewConfig, category string, n int, prior []models.Question) bankEntry {
	bank := questionBank[category]
	start := n / len(categoryRotation)
	for i := 0; i < len(bank); i++ {
		e := bank[(start+i)%len(bank)]
		if !asked(prior, renderBank(e, cfg)) {
			return e
		}
	}
	return bank[start%len(bank)]
}

func bankKeywords(category string, n int) []string {
	bank := questionBank[category]
	return bank[(n/len(categoryRotation))%len(bank)].keywords
}

func renderBank(e bankEntry, cfg models.InterviewConfig) string {
	return fill(e.text, cfg)
}

func fill(tmpl string, cfg models.InterviewConfig) string {
	return strings.NewReplacer("{company}", cfg.Company, "{position}", cfg.Position).Replace(tmpl)
}
