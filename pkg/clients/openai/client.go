package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"stylegenie/pkg/prompting"
	"stylegenie/pkg/search"
)

var ErrNotFashion = errors.New("request is not fashion related")

// ImageResolver maps image references to URLs the model can fetch.
type ImageResolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

// Client is a search.Classifier backed by an OpenAI compatible chat model.
type Client struct {
	client openai.Client
	model  string
	images ImageResolver
}

func isModelInList(model string, models []openai.Model) bool {
	for i := range models {
		if models[i].ID == model {
			return true
		}
	}
	return false
}

// NewClient connects to the API and checks that model is served there. Every
// request, retries included, is bounded by timeout when it is positive.
func NewClient(ctx context.Context, key, url, model string, timeout time.Duration, images ImageResolver) (*Client, error) {
	opts := []option.RequestOption{option.WithAPIKey(key), option.WithBaseURL(url)}
	if timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(timeout))
	}
	client := openai.NewClient(opts...)

	modelList, err := client.Models.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("connection test failed: %w", err)
	}
	if !isModelInList(model, modelList.Data) {
		return nil, fmt.Errorf("such model does not exist: %s", model)
	}

	return &Client{client: client, model: model, images: images}, nil
}

func (c *Client) makeParams(text, imageURL string) openai.ChatCompletionNewParams {
	parts := []openai.ChatCompletionContentPartUnionParam{
		{OfText: &openai.ChatCompletionContentPartTextParam{Text: text}},
	}
	if imageURL != "" {
		parts = append(parts, openai.ChatCompletionContentPartUnionParam{
			OfImageURL: &openai.ChatCompletionContentPartImageParam{
				ImageURL: openai.ChatCompletionContentPartImageImageURLParam{
					URL:    imageURL,
					Detail: "auto",
				},
			},
		})
	}

	return openai.ChatCompletionNewParams{
		Model:     openai.ChatModel(c.model),
		MaxTokens: openai.Int(512),
		Messages: []openai.ChatCompletionMessageParamUnion{
			{
				OfSystem: &openai.ChatCompletionSystemMessageParam{
					Content: openai.ChatCompletionSystemMessageParamContentUnion{
						OfString: openai.String(prompting.ClassifierPrompt()),
					},
				},
			},
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfArrayOfContentParts: parts,
					},
				},
			},
		},
	}
}

type classification struct {
	search.Attributes
	Error string `json:"error,omitempty"`
}

// Classify implements search.Classifier.
func (c *Client) Classify(ctx context.Context, text, imageRef string) (*search.Attributes, error) {
	var imageURL string
	if imageRef != "" && c.images != nil {
		url, err := c.images.Resolve(ctx, imageRef)
		if err != nil {
			return nil, fmt.Errorf("resolve image: %w", err)
		}
		imageURL = url
	}

	response, err := c.client.Chat.Completions.New(ctx, c.makeParams(text, imageURL))
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}
	if len(response.Choices) == 0 {
		return nil, errors.New("openai returned no choices")
	}
	return ParseAttributes(response.Choices[0].Message.Content)
}

// ParseAttributes decodes a model answer, tolerating a markdown code fence.
func ParseAttributes(content string) (*search.Attributes, error) {
	var out classification
	if err := json.Unmarshal([]byte(trimMessage(content)), &out); err != nil {
		return nil, fmt.Errorf("decode classification: %w", err)
	}
	if out.Error != "" {
		return nil, ErrNotFashion
	}
	return &out.Attributes, nil
}

func trimMessage(message string) string {
	message = strings.TrimSpace(message)
	message = strings.TrimPrefix(message, "```json")
	message = strings.TrimPrefix(message, "```")
	message = strings.TrimSuffix(message, "```")
	return strings.TrimSpace(message)
}
