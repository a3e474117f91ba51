// Package client provides a transport-agnostic interface for the Fetch dog
// adoption service and an HTTP/JSON implementation that talks to its REST API.
package client

import (
	"context"

	"github.com/alfredjeanlab/dogmatch/internal/model"
)

// FetchClient is the interface that all dogmatch components use to talk to
// the Fetch service. It is implemented by HTTPClient and decorated by
// RetryingClient.
type FetchClient interface {
	// Auth
	Login(ctx context.Context, name, email string) error
	Logout(ctx context.Context) error

	// Dogs
	Breeds(ctx context.Context) ([]string, error)
	SearchDogs(ctx context.Context, params *model.DogSearchParams) (*model.DogSearchResponse, error)
	// Dogs resolves up to model.MaxBatch ids to full records. An empty id
	// list returns an empty result without a network call.
	Dogs(ctx context.Context, ids []string) ([]model.Dog, error)
	// Match asks the service to pick one dog id out of ids.
	Match(ctx context.Context, ids []string) (string, error)

	// Locations
	Locations(ctx context.Context, zipCodes []string) ([]model.Location, error)
	SearchLocations(ctx context.Context, params *model.LocationSearchParams) (*model.LocationSearchResponse, error)

	// Lifecycle
	Close() error
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}
