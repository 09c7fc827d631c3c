package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=arm64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"

	"boneai-backend/internal/bootstrap"
	"boneai-backend/internal/shared/config"
	"boneai-backend/internal/shared/server/respond"
	"boneai-backend/internal/shared/telemetry"
)

var (
	initOnce  sync.Once
	initErr   error
	ginLambda *ginadapter.GinLambdaV2
)

// initApp runs once per cold start. Lambda keeps the DB singleton and the
// router warm between invocations, so nothing is closed here.
func initApp() {
	cfg := config.Load()
	app, err := bootstrap.Build(cfg)
	if err != nil {
		initErr = err
		return
	}
	telemetry.Info("lambda.cold_start", map[string]any{
		"env":          cfg.Env,
		"dialect":      string(app.Dialect),
		"object_store": cfg.ObjectStoreType,
		"llm":          cfg.LLMProvider,
	})
	ginLambda = ginadapter.NewV2(app.Router)
}

func handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	initOnce.Do(initApp)
	if initErr != nil {
		telemetry.Error("lambda.bootstrap_failed", map[string]any{
			"error":      initErr.Error(),
			"request_id": req.RequestContext.RequestID,
		})
		body, _ := json.Marshal(respond.Envelope("service_unavailable", "service unavailable", nil))
		return events.APIGatewayV2HTTPResponse{
			StatusCode: http.StatusServiceUnavailable,
			Body:       string(body),
			Headers: map[string]string{
				"Content-Type":                "application/json",
				"Access-Control-Allow-Origin": "*",
			},
		}, nil
	}
	return ginLambda.ProxyWithContext(ctx, req)
}

func main() {
	lambda.Start(handler)
}
