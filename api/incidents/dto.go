package incidents

import "github.com/kilianp07/emsdispatch/core/model"

type SubmitRequest struct {
	Kind     string `json:"kind" validate:"required,oneof=trauma cardiac respiratory neurological general"`
	Severity string `json:"severity" validate:"required,oneof=low medium high critical"`
	Location string `json:"location" validate:"required,max=128"`
}

type SubmitResponse struct {
	ID       uint64         `json:"id"`
	Incident model.Incident `json:"incident"`
}

type CompleteRequest struct {
	ResponseSeconds float64 `json:"response_seconds" validate:"gte=0"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
