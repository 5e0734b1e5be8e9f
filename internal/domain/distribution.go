package domain

// OutcomeStatus tags a TransferOutcome.
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeFailure OutcomeStatus = "failure"
)

// String returns the string representation of OutcomeStatus.
func (s OutcomeStatus) String() string {
	return string(s)
}

// TransferStage is a step of a single (recipient, token type) transfer attempt.
// Pending -> ResolvingSenderAccount -> ResolvingRecipientAccount -> Submitting -> Confirming -> Succeeded | Failed
type TransferStage string

const (
	StagePending                   TransferStage = "PENDING"
	StageResolvingSenderAccount    TransferStage = "RESOLVING_SENDER_ACCOUNT"
	StageResolvingRecipientAccount TransferStage = "RESOLVING_RECIPIENT_ACCOUNT"
	StageSubmitting                TransferStage = "SUBMITTING"
	StageConfirming                TransferStage = "CONFIRMING"
	StageSucceeded                 TransferStage = "SUCCEEDED"
	StageFailed                    TransferStage = "FAILED"
)

// String returns the string representation of TransferStage.
func (s TransferStage) String() string {
	return string(s)
}

// TransferOutcome is the result of one transfer attempt.
// Created once per (recipient, token type) and never mutated afterwards.
type TransferOutcome struct {
	TokenType string        `json:"tokenType,omitempty"`
	Status    OutcomeStatus `json:"status"`
	Signature string        `json:"signature,omitempty"` // confirmation id on success
	Reason    string        `json:"reason,omitempty"`    // failure reason
	Stage     TransferStage `json:"stage,omitempty"`     // stage where a failure originated
}

// NewSuccess creates a successful outcome.
func NewSuccess(tokenType, signature string) TransferOutcome {
	return TransferOutcome{
		TokenType: tokenType,
		Status:    OutcomeSuccess,
		Signature: signature,
		Stage:     StageSucceeded,
	}
}

// NewFailure creates a failed outcome. stage is where the failure originated.
func NewFailure(tokenType string, stage TransferStage, reason string) TransferOutcome {
	return TransferOutcome{
		TokenType: tokenType,
		Status:    OutcomeFailure,
		Reason:    reason,
		Stage:     stage,
	}
}

// Succeeded reports whether the outcome is a success.
func (o TransferOutcome) Succeeded() bool {
	return o.Status == OutcomeSuccess
}

// DistributionResult aggregates all transfer attempts of one distribution request.
// OverallSuccess is true when the orchestration completed, even if individual
// transfers failed.
type DistributionResult struct {
	ID             string            `json:"id"`
	Recipient      string            `json:"recipient"`
	OverallSuccess bool              `json:"overallSuccess"`
	Outcomes       []TransferOutcome `json:"outcomes"`
	StartedAt      int64             `json:"startedAt"`   // Unix ms
	CompletedAt    int64             `json:"completedAt"` // Unix ms
}

// SuccessCount returns the number of successful outcomes.
func (r *DistributionResult) SuccessCount() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Succeeded() {
			n++
		}
	}
	return n
}

// FailureCount returns the number of failed outcomes.
func (r *DistributionResult) FailureCount() int {
	return len(r.Outcomes) - r.SuccessCount()
}

// TransferRecord is a flattened transfer outcome stored in the transfer log.
type TransferRecord struct {
	DistributionID string
	Recipient      string
	TokenType      string
	Status         OutcomeStatus
	Signature      string
	Reason         string
	Stage          TransferStage
	Amount         uint64 // smallest token units
	CreatedAt      int64  // Unix ms
}

// TransferRecords flattens a distribution result into transfer log rows.
// Synthetic failures without a token type are skipped.
func TransferRecords(r *DistributionResult, amount uint64) []*TransferRecord {
	records := make([]*TransferRecord, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		if o.TokenType == "" {
			continue
		}
		rec := &TransferRecord{
			DistributionID: r.ID,
			Recipient:      r.Recipient,
			TokenType:      o.TokenType,
			Status:         o.Status,
			Signature:      o.Signature,
			Reason:         o.Reason,
			Stage:          o.Stage,
			CreatedAt:      r.CompletedAt,
		}
		if o.Succeeded() {
			rec.Amount = amount
		}
		records = append(records, rec)
	}
	return records
}
