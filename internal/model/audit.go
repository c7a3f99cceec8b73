package model

import (
	"time"

	"github.com/google/uuid"
)

type DecisionOutcome string

const (
	DecisionAllow DecisionOutcome = "ALLOW"
	DecisionDeny  DecisionOutcome = "DENY"
)

// DecisionRecord is one append-only entry in the decision log. Both
// authorization verdicts and scheduling commits/rejections are recorded
// through the same sink.
type DecisionRecord struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	SubjectID    uuid.UUID       `db:"subject_id" json:"subject_id"`
	Role         Role            `db:"role" json:"role"`
	Verb         Verb            `db:"verb" json:"verb"`
	ResourceType ResourceType    `db:"resource_type" json:"resource_type"`
	ResourceID   uuid.UUID       `db:"resource_id" json:"resource_id"`
	Outcome      DecisionOutcome `db:"outcome" json:"outcome"`
	Reason       string          `db:"reason" json:"reason,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

// DecisionFilters narrows a decision log query. Results are always ordered
// by timestamp ascending and restartable via Offset.
type DecisionFilters struct {
	SubjectID    uuid.UUID
	ResourceType ResourceType
	Outcome      DecisionOutcome
	Since        time.Time
	Until        time.Time
	Offset       int
	Limit        int
}
