package server

import (
	"github.com/josephgoksu/PRDWing/internal/store"
)

type createProjectRequest struct {
	Name string `json:"name"`
}

type renameProjectRequest struct {
	Name string `json:"name"`
}

type selectIdeaRequest struct {
	Idea string `json:"idea"`
}

// stageResponse is returned by every stage trigger.
type stageResponse struct {
	Project *store.Project `json:"project"`
	Result  any            `json:"result,omitempty"`
}

type repairResponse struct {
	Project *store.Project `json:"project"`
	Added   int            `json:"added"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type healthResponse struct {
	Status string `json:"status"`
}
