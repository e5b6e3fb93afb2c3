package qa

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const systemPrompt = "Answer the question using only the provided context. " +
	"If the context does not contain the answer, say that you do not know."

// OpenAI implements Embedder and Generator against the OpenAI API or any
// compatible server.
type OpenAI struct {
	client         *openai.Client
	chatModel      string
	embeddingModel string
}

// NewOpenAI builds a client. baseURL may be empty for the public API.
func NewOpenAI(apiKey, baseURL, chatModel, embeddingModel string) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg), chatModel: chatModel, embeddingModel: embeddingModel}
}

func (o *OpenAI) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(o.embeddingModel),
	})
	if err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

func (o *OpenAI) Generate(ctx context.Context, question string, passages []string) (string, error) {
	var sb strings.Builder
	sb.WriteString("Context information is below.\n---------------------\n")
	for _, p := range passages {
		sb.WriteString(p)
		sb.WriteString("\n\n")
	}
	sb.WriteString("---------------------\nQuery: ")
	sb.WriteString(question)

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: sb.String()},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
