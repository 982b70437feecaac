package homophone

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/MimeLyc/xieyin/internal/llm"
)

type fakeChatter struct {
	reply  string
	err    error
	prompt string
	opts   *llm.ChatCompletionOptions
	calls  int
}

func (f *fakeChatter) Chat(_ context.Context, prompt string, opts *llm.ChatCompletionOptions) (string, error) {
	f.calls++
	f.prompt = prompt
	f.opts = opts
	return f.reply, f.err
}

func TestBuildPrompt_ListsWordsWithExactCase(t *testing.T) {
	t.Parallel()

	prompt := BuildPrompt([]string{"escapeHtml", "PX"}, language.Chinese)

	assert.Contains(t, prompt, `"escapeHtml": "", "PX": ""`)
	assert.Contains(t, prompt, "Chinese")
	assert.Contains(t, prompt, "JSON object")
	assert.Contains(t, prompt, "屁克斯")
	assert.Contains(t, prompt, "PRONUNCIATION HINTS")
	assert.Contains(t, prompt, "- PX: ")
}

func TestBuildPrompt_NonChineseTargetHasNoChineseExample(t *testing.T) {
	t.Parallel()

	prompt := BuildPrompt([]string{"hello"}, language.Japanese)
	assert.Contains(t, prompt, "Japanese")
	assert.NotContains(t, prompt, "屁克斯")
}

func TestBuildPrompt_QuotesSpecialWords(t *testing.T) {
	t.Parallel()

	prompt := BuildPrompt([]string{`a"b`}, language.Chinese)
	assert.Contains(t, prompt, `"a\"b": ""`)
}

func TestParseOutput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    map[string]string
	}{
		{
			name:    "plain object",
			content: `{"Hi": "嗨", "World": "世界"}`,
			want:    map[string]string{"Hi": "嗨", "World": "世界"},
		},
		{
			name:    "markdown fence",
			content: "```json\n{\"px\": \"屁克斯\"}\n```",
			want:    map[string]string{"px": "屁克斯"},
		},
		{
			name:    "thinking block and chatter",
			content: "<think>px sounds like pi ke si</think>Sure! {\"px\": \"屁克斯\"} hope this helps",
			want:    map[string]string{"px": "屁克斯"},
		},
		{
			name:    "empty object",
			content: "{}",
			want:    map[string]string{},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseOutput(tt.content)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseOutput_Malformed(t *testing.T) {
	t.Parallel()

	for _, content := range []string{
		"",
		"   ",
		"<think>hmm</think>",
		"no json here",
		`["屁克斯", "弟五"]`,
		`{"px": 1}`,
		`{"px": "屁克斯"`,
	} {
		_, err := ParseOutput(content)
		require.Error(t, err, content)
		assert.ErrorIs(t, err, ErrMalformedOutput, content)
	}
}

func TestLLMFetcher_Fetch(t *testing.T) {
	t.Parallel()

	chat := &fakeChatter{reply: `{"Hi": "嗨", "World": "世界"}`}
	f := NewLLMFetcher(chat, language.Chinese, 0.1)

	got, err := f.Fetch(context.Background(), []string{"Hi", "World"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Hi": "嗨", "World": "世界"}, got)

	assert.Equal(t, 1, chat.calls)
	assert.True(t, strings.Contains(chat.prompt, `"Hi": "", "World": ""`))
	require.NotNil(t, chat.opts)
	assert.Equal(t, "You are a translator.", chat.opts.SystemPrompt)
	assert.InDelta(t, 0.1, chat.opts.Temperature, 1e-9)
}

func TestLLMFetcher_EmptyBatchSkipsRequest(t *testing.T) {
	t.Parallel()

	chat := &fakeChatter{}
	got, err := NewLLMFetcher(chat, language.Chinese, 0.1).Fetch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, chat.calls)
}

func TestLLMFetcher_TransportError(t *testing.T) {
	t.Parallel()

	chat := &fakeChatter{err: errors.New("dial tcp: connection refused")}
	_, err := NewLLMFetcher(chat, language.Chinese, 0.1).Fetch(context.Background(), []string{"px"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestLLMFetcher_MalformedReply(t *testing.T) {
	t.Parallel()

	chat := &fakeChatter{reply: "I cannot do that"}
	_, err := NewLLMFetcher(chat, language.Chinese, 0.1).Fetch(context.Background(), []string{"px"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedOutput)
}

func TestStaticFetcher(t *testing.T) {
	t.Parallel()

	got, err := StaticFetcher{}.Fetch(context.Background(), []string{"Hi", "hi"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Hi": "【Hi的谐音】", "hi": "【hi的谐音】"}, got)
}

func TestLanguageName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Chinese", LanguageName(language.Chinese))
	assert.Equal(t, "English", LanguageName(language.English))
}
