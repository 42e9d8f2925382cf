package idgen

import "github.com/google/uuid"

// NewFunc returns a new globally unique identifier.
var NewFunc = func() string { return uuid.New().String() }

// New returns a new globally unique identifier as string.
func New() string { return NewFunc() }

// NewBatchID returns an identifier for a single Process call.
func NewBatchID() string { return "batch-" + NewFunc() }
