package dynamo

import (
	"context"
	"fmt"
	"net/url"

	"github.com/Guizzs26/tradebook/internal/platform/config"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	smithyendpoints "github.com/aws/smithy-go/endpoints"
)

// staticEndpointResolver always resolves to one fixed URL, e.g. amazon/dynamodb-local
type staticEndpointResolver struct {
	url *url.URL
}

// ResolveEndpoint satisfies dynamodb.EndpointResolverV2
func (r *staticEndpointResolver) ResolveEndpoint(_ context.Context, _ dynamodb.EndpointParameters) (
	smithyendpoints.Endpoint,
	error,
) {
	return smithyendpoints.Endpoint{URI: *r.url}, nil
}

// NewDynamoDBClient builds a DynamoDB client.
//   - With DYNAMODB_ENDPOINT set, requests go to that endpoint with static dummy credentials.
//   - Otherwise the default AWS credential chain and region are used.
func NewDynamoDBClient(ctx context.Context, cfg config.Config) (*dynamodb.Client, error) {
	var cfgOptions []func(*awsconfig.LoadOptions) error
	var clientOptions []func(*dynamodb.Options)

	if cfg.DynamoDB.Region != "" {
		cfgOptions = append(cfgOptions, awsconfig.WithRegion(cfg.DynamoDB.Region))
	}

	if cfg.DynamoDB.Endpoint != "" {
		u, err := url.Parse(cfg.DynamoDB.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("failed to parse dynamodb endpoint: %w", err)
		}

		cfgOptions = append(cfgOptions, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("DUMMY", "DUMMY", ""),
		))
		clientOptions = append(clientOptions, dynamodb.WithEndpointResolverV2(&staticEndpointResolver{url: u}))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, cfgOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	return dynamodb.NewFromConfig(awsCfg, clientOptions...), nil
}
