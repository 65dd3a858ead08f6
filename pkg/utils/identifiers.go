package utils

import (
	"strings"

	"github.com/google/uuid"
)

// NewRunID returns a short unique identifier for a pipeline run.
func NewRunID() string {
	return "run-" + shortUUID()
}

// NewSimJobID returns a unique identifier for a locally simulated job.
func NewSimJobID() string {
	return "sim-" + shortUUID()
}

func shortUUID() string {
	return strings.Split(uuid.NewString(), "-")[0]
}
