package funnel

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/habitmastery/blueprint-api/pkg/ai"
	"github.com/habitmastery/blueprint-api/pkg/crm"
	"github.com/habitmastery/blueprint-api/pkg/mailer"
)

// --- CRM Mock ---

type mockCRMClient struct {
	mock.Mock
}

func (m *mockCRMClient) GetContact(ctx context.Context, contactID string) (*crm.Contact, error) {
	args := m.Called(ctx, contactID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*crm.Contact), args.Error(1)
}

func (m *mockCRMClient) AddTags(ctx context.Context, contactID string, tags []string) error {
	args := m.Called(ctx, contactID, tags)
	return args.Error(0)
}

// --- AI Mock ---

type mockAIClient struct {
	mock.Mock
}

func (m *mockAIClient) CreateMessage(ctx context.Context, req ai.MessageRequest) (*ai.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ai.MessageResponse), args.Error(1)
}

// --- Mailer Mock ---

type mockMailClient struct {
	mock.Mock
}

func (m *mockMailClient) Send(ctx context.Context, msg mailer.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}
