package homophone

import (
	"context"
	"fmt"

	"golang.org/x/text/language"

	"github.com/MimeLyc/xieyin/internal/llm"
	"github.com/MimeLyc/xieyin/pkg/log"
)

// Chatter sends a single prompt and returns the reply text.
type Chatter interface {
	Chat(ctx context.Context, prompt string, opts *llm.ChatCompletionOptions) (string, error)
}

// LLMFetcher asks a chat model for a whole batch in one request.
type LLMFetcher struct {
	chat        Chatter
	target      language.Tag
	temperature float64
}

func NewLLMFetcher(chat Chatter, target language.Tag, temperature float64) *LLMFetcher {
	return &LLMFetcher{
		chat:        chat,
		target:      target,
		temperature: temperature,
	}
}

// Fetch returns the model's answer for words. Transport failures and
// unparseable replies are errors; words the model skipped are simply absent.
func (f *LLMFetcher) Fetch(ctx context.Context, words []string) (map[string]string, error) {
	if len(words) == 0 {
		return map[string]string{}, nil
	}

	opts := llm.NewChatCompletionOptions().
		WithSystemPrompt(systemPrompt).
		WithTemperature(f.temperature)

	content, err := f.chat.Chat(ctx, BuildPrompt(words, f.target), opts)
	if err != nil {
		return nil, fmt.Errorf("homophone request: %w", err)
	}
	log.Debug("Homophone raw reply: %s", content)

	ret, err := ParseOutput(content)
	if err != nil {
		log.Error("Unparseable homophone reply: %s", truncate(content, 200))
		return nil, err
	}
	return ret, nil
}

// StaticFetcher answers locally with a bracketed placeholder per word. It is
// meant for development without an API key.
type StaticFetcher struct{}

func (StaticFetcher) Fetch(_ context.Context, words []string) (map[string]string, error) {
	ret := make(map[string]string, len(words))
	for _, w := range words {
		ret[w] = "【" + w + "的谐音】"
	}
	return ret, nil
}
