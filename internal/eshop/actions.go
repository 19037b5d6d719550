package eshop

import (
	"context"
	"fmt"
)

// Action is a staff-requested order transition.
type Action int

const (
	ActionStartPreparing Action = iota + 1
	ActionMarkReady
	ActionMarkCollected
)

// String returns the action's display label.
func (a Action) String() string {
	switch a {
	case ActionStartPreparing:
		return "start preparing"
	case ActionMarkReady:
		return "mark ready"
	case ActionMarkCollected:
		return "mark collected"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Path returns the endpoint for orderID.
func (a Action) Path(orderID int64) (string, error) {
	switch a {
	case ActionStartPreparing:
		return fmt.Sprintf("/eshop/queue/start/%d/", orderID), nil
	case ActionMarkReady:
		return fmt.Sprintf("/eshop/queue/ready/%d/", orderID), nil
	case ActionMarkCollected:
		return fmt.Sprintf("/eshop/queue/collected/%d/", orderID), nil
	default:
		return "", fmt.Errorf("unknown action %d", int(a))
	}
}

// ActionResult is the backend's answer to a transition request.
type ActionResult struct {
	Success            bool   `json:"success"`
	Message            string `json:"message"`
	Error              string `json:"error"`
	EstimatedReadyTime string `json:"estimated_ready_time"`
}

// ActionError is a transition the backend refused.
type ActionError struct {
	Path    string
	Message string
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("action %s rejected: %s", e.Path, e.Message)
}

// Act requests a transition for orderID. The order itself is not touched;
// the next snapshot reflects the outcome.
func (c *Client) Act(ctx context.Context, action Action, orderID int64) (ActionResult, error) {
	if c == nil {
		return ActionResult{}, fmt.Errorf("client is nil")
	}
	if orderID <= 0 {
		return ActionResult{}, fmt.Errorf("order id required")
	}
	path, err := action.Path(orderID)
	if err != nil {
		return ActionResult{}, err
	}
	return c.post(ctx, path)
}
