package request

import "tablepilot/internal/usecase/commands"

type DecideReservationRequest struct {
	Action  string `json:"action" binding:"required,oneof=accept decline"`
	Version int64  `json:"version" binding:"required,min=1"`
}

func (r DecideReservationRequest) ToAction() commands.DecisionAction {
	return commands.DecisionAction(r.Action)
}
