package handlers

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/turtacn/COF-H2-Predictor/internal/application/prediction"
	"github.com/turtacn/COF-H2-Predictor/internal/domain/history"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) Schema(ctx context.Context) *prediction.Schema {
	args := m.Called(ctx)
	return args.Get(0).(*prediction.Schema)
}

func (m *mockService) Descriptors(ctx context.Context, smiles string) (*prediction.DescriptorsResult, error) {
	args := m.Called(ctx, smiles)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*prediction.DescriptorsResult), args.Error(1)
}

func (m *mockService) Predict(ctx context.Context, input *prediction.PredictInput) (*prediction.PredictResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*prediction.PredictResult), args.Error(1)
}

func (m *mockService) Ready(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockService) History(ctx context.Context, limit int) ([]*history.Record, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*history.Record), args.Error(1)
}

func (m *mockService) GetPrediction(ctx context.Context, id string) (*history.Record, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*history.Record), args.Error(1)
}

func (m *mockService) Close() error { return nil }
