package mocks

import (
	"context"

	"github.com/NDERI007/simflow/pkg/smsprovider"
	"github.com/stretchr/testify/mock"
)

type Provider struct {
	mock.Mock
}

func (p *Provider) SendBatch(ctx context.Context, phones []string, text string, senderID string) []smsprovider.Result {
	args := p.Called(ctx, phones, text, senderID)
	return args.Get(0).([]smsprovider.Result)
}
