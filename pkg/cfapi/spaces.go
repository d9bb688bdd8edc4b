package cfapi

import (
	"context"
	"fmt"
	"net/http"
)

// SpaceByName resolves a space name to its guid through the filtered space
// listing. Absence maps to a NotFound APIError.
func SpaceByName(ctx context.Context, client Spaces, name string) (string, error) {
	spaces, err := DrainPages(ctx, func(ctx context.Context, page int) (*Page[Space], error) {
		return client.ListSpaces(ctx, name, page)
	})
	if err != nil {
		return "", fmt.Errorf("listing spaces: %w", err)
	}
	for _, space := range spaces {
		if space.Name == name {
			return space.GUID, nil
		}
	}
	return "", &APIError{
		StatusCode: http.StatusNotFound,
		Title:      "CF-ResourceNotFound",
		Detail:     fmt.Sprintf("space %s not found", name),
	}
}
