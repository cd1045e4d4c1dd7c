package mocks

import (
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"
)

// MockTx records Commit and Rollback. The embedded ExtContext is nil; the
// mocked repository never queries through it.
type MockTx struct {
	mock.Mock
	sqlx.ExtContext
}

func (m *MockTx) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockTx) Rollback() error {
	args := m.Called()
	return args.Error(0)
}
