package server

import (
	"strings"

	"github.com/consensusai/consensus/pkg/db/pagination"
)

type listEventsQuery struct {
	pagination.Pagination
	Period string `form:"period"`
	Type   string `form:"type"`
}

func optionalQuery(value string) string {
	return strings.TrimSpace(value)
}
