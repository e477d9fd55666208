package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/avvvet/foodbuddy-agent/internal/config"
	"github.com/avvvet/foodbuddy-agent/internal/handlers"
	"github.com/avvvet/foodbuddy-agent/internal/models"
)

type NATSTransport struct {
	conn    *nats.Conn
	config  *config.Config
	handler *handlers.ChatHandler
}

func NewNATSTransport(cfg *config.Config, handler *handlers.ChatHandler) (*NATSTransport, error) {
	conn, err := nats.Connect(cfg.NatsURL,
		nats.Name(cfg.ServiceName),
		nats.Timeout(cfg.NatsTimeout),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1), // Infinite reconnects
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	log.Printf("Connected to NATS server: %s", cfg.NatsURL)

	return &NATSTransport{
		conn:    conn,
		config:  cfg,
		handler: handler,
	}, nil
}

func (nt *NATSTransport) Start() error {
	_, err := nt.conn.Subscribe(nt.config.NatsRequestSubject, nt.handleChatRequest)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", nt.config.NatsRequestSubject, err)
	}

	log.Printf("Subscribed to subject: %s", nt.config.NatsRequestSubject)
	return nil
}

func (nt *NATSTransport) handleChatRequest(msg *nats.Msg) {
	response := nt.handle(msg.Data)

	if err := nt.sendResponse(msg, response); err != nil {
		log.Printf("Error sending response: %v", err)
	}
}

// handle decodes one request payload and always produces a reply envelope.
func (nt *NATSTransport) handle(data []byte) *models.ChatResponse {
	var request models.ChatRequest
	if err := json.Unmarshal(data, &request); err != nil {
		log.Printf("Error parsing request: %v", err)
		return handlers.ErrorResponse(&request, models.ErrorParseError, "Invalid request format")
	}

	log.Printf("Processing chat request for user %s, session %q", request.UserID, request.SessionID)

	ctx, cancel := context.WithTimeout(context.Background(), nt.config.NatsTimeout)
	defer cancel()

	response, err := nt.handler.ProcessChat(ctx, &request)
	if err != nil {
		log.Printf("Error processing chat: %v", err)
		if response == nil {
			response = handlers.ErrorResponse(&request, models.ErrorProcessingFailed, handlers.ProcessingFailedMessage)
		}
	}
	return response
}

func (nt *NATSTransport) sendResponse(msg *nats.Msg, response *models.ChatResponse) error {
	responseData, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}

	if err := msg.Respond(responseData); err != nil {
		return fmt.Errorf("failed to send response: %w", err)
	}

	log.Printf("Response sent for session: %s", response.SessionID)
	return nil
}

func (nt *NATSTransport) Close() error {
	if nt.conn != nil {
		nt.conn.Drain()
		log.Println("NATS connection closed")
	}
	return nil
}
