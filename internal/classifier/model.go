package classifier

//go:generate mockgen -source=model.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"news_ingest/internal/domain"
	"news_ingest/internal/llm"
	"news_ingest/internal/textclean"
)

const (
	PromptVersion = "classification_v2"

	promptContentChars = 1500
)

// Completer is the external text-generation service.
type Completer interface {
	Complete(ctx context.Context, prompt string) (llm.Completion, error)
}

// Attempt is the verdict of one model call along with its telemetry.
type Attempt struct {
	Result Result
	Call   domain.ModelCall
	Err    error
}

// Cost is the number of budget units the call consumed.
func (a Attempt) Cost() int {
	return a.Call.TokensIn + a.Call.TokensOut
}

// Model is the model-assisted classifier. Any failure is reported as *Error.
type Model struct {
	client     Completer
	categories domain.Categories
	now        func() time.Time
}

func NewModel(client Completer, categories domain.Categories) *Model {
	return &Model{client: client, categories: categories, now: time.Now}
}

func (m *Model) Classify(ctx context.Context, a *domain.Article) (Result, error) {
	att := m.Attempt(ctx, a)
	return att.Result, att.Err
}

func (m *Model) Attempt(ctx context.Context, a *domain.Article) Attempt {
	completion, err := m.client.Complete(ctx, m.prompt(a))

	call := domain.ModelCall{
		ArticleURL:    a.URL,
		Model:         completion.Model,
		PromptVersion: PromptVersion,
		Latency:       completion.Latency,
		TokensIn:      completion.TokensIn,
		TokensOut:     completion.TokensOut,
		Status:        domain.ModelCallOK,
		CreatedAt:     m.now().UTC(),
	}

	if err != nil {
		call.Status = callStatus(err)
		call.FallbackReason = fmt.Sprintf("%s: %v", call.Status, err)
		return Attempt{Call: call, Err: &Error{Reason: string(call.Status), Err: err}}
	}

	res, err := ParseClassification(completion.Text, m.categories)
	if err != nil {
		call.Status = domain.ModelCallParseError
		call.FallbackReason = err.Error()
		return Attempt{Call: call, Err: &Error{Reason: string(call.Status), Err: err}}
	}

	return Attempt{Result: ValidateClassification(res, m.categories), Call: call}
}

func (m *Model) prompt(a *domain.Article) string {
	content := textclean.Truncate(textclean.Clean(a.Content), promptContentChars)

	var sb strings.Builder
	sb.WriteString("You classify articles for a European AI and technology news service.\n\n")
	sb.WriteString("Choose exactly one category by the article's primary focus: ")
	sb.WriteString(strings.Join(m.categories, ", "))
	sb.WriteString(".\n")
	sb.WriteString("Use \"other\" for content that is not about AI, technology, startups or tech policy.\n")
	sb.WriteString("Rate European relevance from 0 (no European connection) to 10 (European company, EU policy or European lab).\n")
	sb.WriteString("Give the country as a full name, \"Europe\" for pan-European stories, or \"\" when not European.\n")
	sb.WriteString("Rate your confidence from 0.0 to 1.0.\n\n")
	fmt.Fprintf(&sb, "Source: %s\nTitle: %s\nContent: %s\n\n", a.Source, a.Title, content)
	sb.WriteString(`Respond in JSON only: {"category": "...", "country": "...", "eu_relevance": N, "confidence": N.N}`)
	return sb.String()
}

func callStatus(err error) domain.ModelCallStatus {
	switch {
	case errors.Is(err, llm.ErrNoAPIKey):
		return domain.ModelCallNoAPIKey
	case llm.IsTimeout(err):
		return domain.ModelCallTimeout
	default:
		return domain.ModelCallAPIError
	}
}
