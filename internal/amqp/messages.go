package amqp

import (
	"encoding/json"
	"time"
)

// TransactionRecordedMessage is a lightweight event for a recorded
// transaction. It carries only identifiers; consumers fetch the full
// transaction from the database.
type TransactionRecordedMessage struct {
	ID        int64     `json:"id"`
	AccountID int64     `json:"account_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionRecordedMessage(id, accountID int64) *TransactionRecordedMessage {
	return &TransactionRecordedMessage{
		ID:        id,
		AccountID: accountID,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionRecordedMessageFromJSON creates a message from JSON bytes
func TransactionRecordedMessageFromJSON(data []byte) (*TransactionRecordedMessage, error) {
	var msg TransactionRecordedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
