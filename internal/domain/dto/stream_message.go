package dto

import (
	"encoding/json"

	"github.com/guttosm/coinpulse/internal/domain/models"
)

// Live channel message types.
const (
	MessageTypeInfo    = "info"
	MessageTypeTickers = "tickers"
)

// ConnectedMessage is sent once to every new subscriber.
const ConnectedMessage = "Connected to Crypto WebSocket"

// StreamMessage is one frame on the live channel.
type StreamMessage struct {
	Type    string          `json:"type" example:"tickers"`
	Message string          `json:"message,omitempty" example:"Connected to Crypto WebSocket"`
	Data    []models.Ticker `json:"data,omitempty"`
}

// InfoPayload returns the serialized connection acknowledgment.
func InfoPayload() []byte {
	b, _ := json.Marshal(StreamMessage{Type: MessageTypeInfo, Message: ConnectedMessage})
	return b
}

// TickersPayload serializes a snapshot frame.
func TickersPayload(tickers []models.Ticker) ([]byte, error) {
	return json.Marshal(StreamMessage{Type: MessageTypeTickers, Data: tickers})
}

// TrendingResponse is the body of the trending endpoint.
type TrendingResponse struct {
	Data []models.Ticker `json:"data"`
}
