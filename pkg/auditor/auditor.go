// Package auditor runs integrity audits of anchored batches and records
// durable alerts when they fail. The verification itself only computes
// and reports; deciding that a failed audit warrants an alert, and
// persisting that alert, happens here.
package auditor

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/anchorline/did-audit/pkg/anchor"
	"github.com/anchorline/did-audit/pkg/store"
	"github.com/anchorline/did-audit/pkg/types"
)

// Auditor verifies anchoring proofs for DID subjects and records
// integrity alerts on failure.
type Auditor struct {
	store  store.IAuditStore
	logger *zap.Logger
}

// NewAuditor creates an auditor backed by the given store.
func NewAuditor(s store.IAuditStore, logger *zap.Logger) *Auditor {
	return &Auditor{
		store:  s,
		logger: logger,
	}
}

// Audit normalizes and verifies an anchoring proof for a subject. The
// full verification trace is returned whether or not the audit passed.
// On failure an IntegrityAlert is recorded against the subject; an error
// is returned only when recording the alert fails, never for the
// verification outcome itself.
func (a *Auditor) Audit(subject string, raw *anchor.RawProof) (*anchor.Trace, error) {
	proof := raw.Normalize()
	trace := anchor.TraceVerification(proof)

	if trace.IsValid {
		a.logger.Info("audit passed",
			zap.String("subject", subject),
			zap.String("root", trace.ComputedRoot),
			zap.Int("levels", len(trace.Steps)),
		)
		return trace, nil
	}

	alert := &types.IntegrityAlert{
		ID:           uuid.New().String(),
		Subject:      subject,
		BatchID:      proof.BatchID,
		TxHash:       proof.TxHash,
		ComputedRoot: trace.ComputedRoot,
		ExpectedRoot: trace.ExpectedRoot,
		Reason:       "computed merkle root does not match anchored root",
		CreatedAt:    time.Now().UTC(),
	}

	if err := a.store.SaveAlert(alert); err != nil {
		return trace, fmt.Errorf("failed to record integrity alert: %w", err)
	}

	a.logger.Warn("audit failed, integrity alert recorded",
		zap.String("subject", subject),
		zap.String("alertId", alert.ID),
		zap.String("computedRoot", alert.ComputedRoot),
		zap.String("expectedRoot", alert.ExpectedRoot),
	)

	return trace, nil
}
