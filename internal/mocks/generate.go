// Package mocks provides mock implementations for testing the webhook ingestion pipeline.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for our repository interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	mockRepo := mocks.NewMockDeliveryRepository(ctrl)
//	mockRepo.EXPECT().CheckIdempotency(gomock.Any(), gomock.Any()).Return(decision, nil)
package mocks

// Generate mock for DeliveryRepository interface from internal/core package.
// This creates MockDeliveryRepository with methods for all DeliveryRepository interface methods:
// CheckIdempotency, MarkProcessed, MarkFailed, GetByDeliveryID
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=delivery_repository_mock.go github.com/buddyhq/webhook-ingest/internal/core DeliveryRepository

// Generate mock for DLQRepository interface from internal/core package.
// This creates MockDLQRepository with methods for all DLQRepository interface methods:
// Enqueue, Stats, List
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=dlq_repository_mock.go github.com/buddyhq/webhook-ingest/internal/core DLQRepository

// Generate mock for ClaimStore interface from internal/core package.
// This creates MockClaimStore with methods for all ClaimStore interface methods:
// TryClaim, ReleaseClaim
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=claim_store_mock.go github.com/buddyhq/webhook-ingest/internal/core ClaimStore
