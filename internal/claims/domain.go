// Package claims adjudicates treatment claims and coordinates their payout
// from the pool.
package claims

import (
	"context"
	"time"

	"github.com/healthpool/riskpool/internal/shared"
)

// Status is the adjudication state of a claim.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// TreatmentType classifies the treatment being claimed.
type TreatmentType string

const (
	TreatmentEmergency  TreatmentType = "EMERGENCY"
	TreatmentOutpatient TreatmentType = "OUTPATIENT"
	TreatmentInpatient  TreatmentType = "INPATIENT"
)

// Valid reports whether t is a known treatment type.
func (t TreatmentType) Valid() bool {
	switch t {
	case TreatmentEmergency, TreatmentOutpatient, TreatmentInpatient:
		return true
	}
	return false
}

// PayoutState tracks disbursement of an approved claim.
type PayoutState string

const (
	PayoutNone      PayoutState = "NONE"
	PayoutScheduled PayoutState = "SCHEDULED"
	PayoutPaid      PayoutState = "PAID"
)

// PayoutMode selects how approval and payment relate.
type PayoutMode string

const (
	// PayoutInline pays in the same unit as the approval.
	PayoutInline PayoutMode = "inline"
	// PayoutDeferred approves first and disburses in a separate step.
	PayoutDeferred PayoutMode = "deferred"
)

var (
	ErrNotActiveParticipant = shared.NewReason(shared.ErrUnauthorized, "NotActiveParticipant", "claims: caller is not an active participant")
	ErrNotApprovedProvider  = shared.NewReason(shared.ErrUnauthorized, "NotApprovedProvider", "claims: caller is not an approved provider")
	ErrMissingHospitalRole  = shared.NewReason(shared.ErrUnauthorized, "MissingHospitalRole", "claims: caller lacks the HOSPITAL role")
	ErrInvalidAmount        = shared.NewReason(shared.ErrInvalidInput, "InvalidAmount", "claims: amount must be greater than zero")
	ErrInvalidTreatment     = shared.NewReason(shared.ErrInvalidInput, "InvalidTreatmentType", "claims: unknown treatment type")
	ErrClaimNotFound        = shared.NewReason(shared.ErrNotFound, "ClaimNotFound", "claims: claim not found")
	ErrNotPending           = shared.NewReason(shared.ErrInvalidState, "NotPending", "claims: claim already decided")
	ErrNotApproved          = shared.NewReason(shared.ErrInvalidState, "NotApproved", "claims: claim is not approved")
	ErrAlreadyDisbursed     = shared.NewReason(shared.ErrInvalidState, "AlreadyDisbursed", "claims: claim already disbursed")
	ErrInvalidPayoutMode    = shared.NewReason(shared.ErrInvalidInput, "InvalidPayoutMode", "claims: unknown payout mode")
)

// Claim is one request for reimbursement.
type Claim struct {
	ID            int64            `json:"id"`
	Participant   shared.Principal `json:"participant"`
	Amount        shared.Amount    `json:"amount"`
	Status        Status           `json:"status"`
	TreatmentType TreatmentType    `json:"treatment_type"`
	PatientCode   string           `json:"patient_code"`
	SubmittedAt   time.Time        `json:"submitted_at"`
	DecidedAt     *time.Time       `json:"decided_at,omitempty"`
	DecidedBy     shared.Principal `json:"decided_by"`
	Payout        PayoutState      `json:"payout"`
	PaidAt        *time.Time       `json:"paid_at,omitempty"`
}

// Filter narrows ListClaims. Zero fields match everything.
type Filter struct {
	Participant shared.Principal
	Status      Status
	Limit       int
}

// Match reports whether c satisfies f, ignoring Limit.
func (f Filter) Match(c Claim) bool {
	if !f.Participant.IsZero() && c.Participant != f.Participant {
		return false
	}
	return f.Status == "" || c.Status == f.Status
}

// Config tunes adjudication.
type Config struct {
	// Principal is the identity the ledger uses when calling the pool. It
	// must hold CLAIM_MANAGER.
	Principal           shared.Principal
	PayoutMode          PayoutMode
	RequireHospitalRole bool
}

// Repository persists claims.
type Repository interface {
	// Insert stores c under the next sequential id and returns it.
	Insert(ctx context.Context, c Claim) (int64, error)
	Get(ctx context.Context, id int64) (Claim, bool, error)
	Save(ctx context.Context, c Claim) error
	List(ctx context.Context, f Filter) ([]Claim, error)
}
