package purchases

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProcessRequest is what the payment processor needs to attempt a charge.
type ProcessRequest struct {
	TransactionID string
	Amount        decimal.Decimal
	PhoneNumber   string
	Retry         bool
}

// ProcessResult captures the gateway outcome and its raw response payload.
type ProcessResult struct {
	Success  bool
	Response json.RawMessage
}

// Processor charges a purchase attempt. Implementations decide the outcome;
// the service only records it.
type Processor interface {
	Process(ctx context.Context, req ProcessRequest) (*ProcessResult, error)
}

// SimulatedProcessor mimics an upstream recharge gateway: a fixed success
// percentage on first attempts and a lower one on retries.
type SimulatedProcessor struct {
	successRate      int
	retrySuccessRate int
	roll             func(n int) int
}

// NewSimulatedProcessor builds the simulator. roll may be nil, in which case
// a PRNG decides; tests inject a deterministic roll.
func NewSimulatedProcessor(successRate, retrySuccessRate int, roll func(n int) int) *SimulatedProcessor {
	if roll == nil {
		roll = rand.IntN
	}
	return &SimulatedProcessor{
		successRate:      successRate,
		retrySuccessRate: retrySuccessRate,
		roll:             roll,
	}
}

type gatewayResponse struct {
	GatewayTransactionID string `json:"gateway_transaction_id"`
	Status               string `json:"status"`
	Message              string `json:"message"`
	Retry                bool   `json:"retry"`
	ProcessedAt          string `json:"processed_at"`
}

func (p *SimulatedProcessor) Process(_ context.Context, req ProcessRequest) (*ProcessResult, error) {
	rate := p.successRate
	if req.Retry {
		rate = p.retrySuccessRate
	}
	success := p.roll(100) < rate

	resp := gatewayResponse{
		GatewayTransactionID: "GW-" + uuid.NewString(),
		Status:               "failed",
		Message:              "recharge could not be processed",
		Retry:                req.Retry,
		ProcessedAt:          time.Now().UTC().Format(time.RFC3339),
	}
	if success {
		resp.Status = "success"
		resp.Message = fmt.Sprintf("recharge of %s to %s processed", req.Amount.StringFixed(2), req.PhoneNumber)
	}

	payload, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("marshal gateway response: %w", err)
	}
	return &ProcessResult{Success: success, Response: payload}, nil
}
