package mocks

import (
	"github.com/stretchr/testify/mock"
)

type Notifier struct {
	mock.Mock
}

func (n *Notifier) QuotaApplyFailed(userID string, messageID int64, amount int64, cause string) error {
	args := n.Called(userID, messageID, amount, cause)
	return args.Error(0)
}
