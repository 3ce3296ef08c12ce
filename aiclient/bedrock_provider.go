package aiclient

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/itsneelabh/agentctl/core"
)

// bedrockProvider speaks AWS Bedrock's Converse API. Adapted from the
// teacher's ai/providers/bedrock/client.go: same Converse-based
// request/response shape, trimmed to this module's three call modes.
type bedrockProvider struct {
	cfg    *Config
	client *bedrockruntime.Client
}

func newBedrockProvider(ctx context.Context, cfg *Config) (*bedrockProvider, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	var awsCfg aws.Config
	var err error
	if cfg.AWSAccessKeyID != "" && cfg.AWSSecretKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretKey, cfg.AWSSessionToken)
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region), awsconfig.WithCredentialsProvider(credProvider))
	} else {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	}
	if err != nil {
		return nil, core.NewFrameworkError("newBedrockProvider", "ai", err)
	}

	return &bedrockProvider{
		cfg:    cfg,
		client: bedrockruntime.NewFromConfig(awsCfg),
	}, nil
}

func (p *bedrockProvider) converse(ctx context.Context, system, user string) (string, error) {
	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(p.cfg.Model),
		Messages: []types.Message{
			{
				Role: types.ConversationRoleUser,
				Content: []types.ContentBlock{
					&types.ContentBlockMemberText{Value: user},
				},
			},
		},
		System: []types.SystemContentBlock{
			&types.SystemContentBlockMemberText{Value: system},
		},
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(int32(p.cfg.MaxTokens)),
			Temperature: aws.Float32(p.cfg.Temperature),
		},
	}

	output, err := p.client.Converse(ctx, input)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrModelCallFailed, err)
	}

	msg, ok := output.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return "", core.ErrMalformedResponse
	}
	var text string
	for _, block := range msg.Value.Content {
		if b, ok := block.(*types.ContentBlockMemberText); ok {
			text += b.Value
		}
	}
	if text == "" {
		return "", core.ErrMalformedResponse
	}
	return text, nil
}

func (p *bedrockProvider) Plan(ctx context.Context, req Request) (*PlanResponse, error) {
	text, err := p.converse(ctx, planningSystemPrompt, buildPromptText("planning", req))
	if err != nil {
		return nil, err
	}
	return &PlanResponse{Text: text}, nil
}

func (p *bedrockProvider) Ground(ctx context.Context, req Request) (*GroundResponse, error) {
	text, err := p.converse(ctx, groundingSystemPrompt, buildPromptText("grounding", req))
	if err != nil {
		return nil, err
	}
	return parseGroundResponse(text)
}

func (p *bedrockProvider) Judge(ctx context.Context, req Request) (*JudgeResponse, error) {
	text, err := p.converse(ctx, judgmentSystemPrompt, buildPromptText("judgment", req))
	if err != nil {
		return nil, err
	}
	return parseJudgeResponse(text)
}
