// Package events holds the payloads published on the eventbus. Every
// payload is published with the context of the request it belongs to,
// so subscribers find the request id there.
package events

import (
	"net/http"
	"time"
)

// HTTPStart is emitted when the gateway receives an HTTP request.
type HTTPStart struct {
	Request *http.Request
}

// HTTPFinish is emitted after the response was written. Operations is the
// number of GraphQL operations in the request body, zero when the body was
// rejected before parsing.
type HTTPFinish struct {
	Request    *http.Request
	Status     int
	Operations int
	Duration   time.Duration
}

// GraphQLStart is emitted before a gateway operation executes.
type GraphQLStart struct {
	Query         string
	OperationName string
	OperationType string
}

// GraphQLFinish is emitted after a gateway operation executes.
type GraphQLFinish struct {
	Query         string
	OperationName string
	OperationType string
	Errors        []error
	Duration      time.Duration
}

// DelegationStart is emitted before a sub-request is sent to a subschema.
// ID pairs it with the matching DelegationFinish.
type DelegationStart struct {
	ID            string
	Subschema     string
	OperationType string
	Fields        []string
}

// DelegationFinish is emitted once the subschema answered or failed.
type DelegationFinish struct {
	ID            string
	Subschema     string
	OperationType string
	Fields        []string
	Errors        int
	Err           error
	Duration      time.Duration
}
