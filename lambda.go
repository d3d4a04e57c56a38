// lambda.go
package dynaquery

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"go.uber.org/zap"

	"github.com/pay-theory/dynaquery/pkg/session"
)

var (
	// Global Lambda DB for connection reuse across warm invocations
	globalLambdaDB  *DB
	globalLambdaErr error
	lambdaOnce      sync.Once
)

// NewLambdaOptimized returns the process-wide DB, creating it on the first
// call. Options only apply to that first call.
func NewLambdaOptimized(opts ...Option) (*DB, error) {
	lambdaOnce.Do(func() {
		globalLambdaDB, globalLambdaErr = createLambdaDB(opts...)
	})
	return globalLambdaDB, globalLambdaErr
}

func createLambdaDB(opts ...Option) (*DB, error) {
	httpClient := &http.Client{
		Timeout: 5 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	cfg := session.Config{
		Region:     getRegion(),
		MaxRetries: 3,
		AWSConfigOptions: []func(*config.LoadOptions) error{
			config.WithHTTPClient(httpClient),
			config.WithRetryMode(aws.RetryModeAdaptive),
		},
	}
	if endpoint := os.Getenv("DYNAMODB_ENDPOINT"); endpoint != "" {
		cfg.Endpoint = endpoint
	}

	return New(cfg, opts...)
}

// ForInvocation returns a DB whose log entries carry the request id, function
// ARN and memory size of the current Lambda invocation. Outside Lambda it
// returns db unchanged.
func (db *DB) ForInvocation(ctx context.Context) *DB {
	lc, ok := lambdacontext.FromContext(ctx)
	if !ok {
		return db
	}

	fields := []zap.Field{zap.String("request_id", lc.AwsRequestID)}
	if lc.InvokedFunctionArn != "" {
		fields = append(fields, zap.String("function_arn", lc.InvokedFunctionArn))
	}
	if remaining := GetRemainingTimeMillis(ctx); remaining >= 0 {
		fields = append(fields, zap.Int64("remaining_ms", remaining))
	}
	if IsLambdaEnvironment() {
		fields = append(fields, zap.String("function_name", lambdacontext.FunctionName))
	}
	if mem := GetLambdaMemoryMB(); mem > 0 {
		fields = append(fields, zap.Int("memory_mb", mem))
	}
	return db.WithFields(fields...)
}

// IsLambdaEnvironment detects if running in AWS Lambda
func IsLambdaEnvironment() bool {
	return lambdacontext.FunctionName != ""
}

// GetLambdaMemoryMB returns the allocated memory in MB
func GetLambdaMemoryMB() int {
	if lambdacontext.MemoryLimitInMB > 0 {
		return lambdacontext.MemoryLimitInMB
	}

	mem, err := strconv.Atoi(os.Getenv("AWS_LAMBDA_FUNCTION_MEMORY_SIZE"))
	if err != nil {
		return 0
	}
	return mem
}

// getRegion returns the AWS region from environment
func getRegion() string {
	if region := os.Getenv("AWS_REGION"); region != "" {
		return region
	}
	return "us-east-1"
}

// GetRemainingTimeMillis returns milliseconds until Lambda timeout
func GetRemainingTimeMillis(ctx context.Context) int64 {
	deadline, ok := ctx.Deadline()
	if !ok {
		return -1
	}
	return time.Until(deadline).Milliseconds()
}
