package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/bedrock"

	"github.com/neilberkman/escriba/internal/core/config"
	"github.com/neilberkman/escriba/internal/core/errs"
)

const (
	defaultBedrockRegion = "us-east-1"
	defaultBedrockModel  = "anthropic.claude-3-5-sonnet-20240620-v1:0"
	defaultBedrockTokens = 2048
)

// BedrockProvider sends completions through AWS Bedrock
type BedrockProvider struct {
	model   *bedrock.LLM
	modelID string
	options []llms.CallOption
}

// NewBedrockProvider resolves AWS credentials (profile, static keys or the
// default chain) and binds the model named in cfg.Bedrock
func NewBedrockProvider(ctx context.Context, cfg config.LLMConfig) (*BedrockProvider, error) {
	bc := cfg.Bedrock
	modelID := bc.ModelID
	if modelID == "" {
		modelID = defaultBedrockModel
	}

	awsCfg, err := loadAWSConfig(ctx, bc)
	if err != nil {
		return nil, err
	}
	model, err := bedrock.New(
		bedrock.WithModel(modelID),
		bedrock.WithClient(bedrockruntime.NewFromConfig(awsCfg)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bedrock model %s: %w", modelID, err)
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultBedrockTokens
	}
	options := []llms.CallOption{llms.WithMaxTokens(maxTokens)}
	if cfg.Temperature != nil {
		options = append(options, llms.WithTemperature(*cfg.Temperature))
	}

	return &BedrockProvider{model: model, modelID: modelID, options: options}, nil
}

func loadAWSConfig(ctx context.Context, bc config.BedrockConfig) (aws.Config, error) {
	region := bc.Region
	if region == "" {
		region = defaultBedrockRegion
	}
	loaders := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if bc.Profile != "" {
		loaders = append(loaders, awsconfig.WithSharedConfigProfile(bc.Profile))
	}
	if bc.AccessKeyID != "" && bc.SecretAccessKey != "" {
		static := credentials.NewStaticCredentialsProvider(bc.AccessKeyID, bc.SecretAccessKey, "")
		loaders = append(loaders, awsconfig.WithCredentialsProvider(static))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config for %s: %w", region, err)
	}
	return awsCfg, nil
}

func (p *BedrockProvider) GenerateText(ctx context.Context, prompt string) (string, error) {
	text, err := llms.GenerateFromSinglePrompt(ctx, p.model, prompt, p.options...)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}
	if err != nil {
		return "", bedrockError(p.modelID, err)
	}
	return text, nil
}

// bedrockError keeps the HTTP status of a failed InvokeModel call when the
// SDK reports one
func bedrockError(modelID string, err error) error {
	e := &errs.Error{
		Kind:    errs.KindProviderError,
		Op:      "llm.bedrock",
		Message: modelID + ": " + err.Error(),
		Err:     err,
	}
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) && respErr.Response != nil {
		e.Status = respErr.HTTPStatusCode()
	}
	return e
}

func (p *BedrockProvider) Name() string { return "bedrock" }
