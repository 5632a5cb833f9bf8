package agent

import (
	"context"

	"github.com/webpilot/webpilot/pkg/models"
)

// Observation is one interactive element reported by an OBSERVE action.
type Observation struct {
	// Selector locates the element on the page.
	Selector string `json:"selector"`
	// Description is the human-readable label of the element.
	Description string `json:"description"`
}

// ActionResult is the tool-specific payload returned by the actuator.
type ActionResult struct {
	// Text holds the result for navigation and extraction tools.
	Text string
	// Observations holds the element list for OBSERVE.
	Observations []Observation
	// Screenshot holds the captured image for SCREENSHOT.
	Screenshot []byte
}

// Actuator executes a single atomic action against the browser session.
// DONE and FAIL never reach the actuator; the loop intercepts them.
type Actuator interface {
	// Execute performs the step's tool and returns its payload, or an
	// error for a transient fault the loop may retry.
	Execute(ctx context.Context, sessionID string, step models.Step) (ActionResult, error)
	// Screenshot captures the current page image.
	Screenshot(ctx context.Context, sessionID string) ([]byte, error)
	// CurrentURL reports the session's current location.
	CurrentURL(ctx context.Context, sessionID string) (string, error)
}
