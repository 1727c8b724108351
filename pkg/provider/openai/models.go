package openai

import (
	"context"
	"slices"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/schardosin/formstudio/pkg/ferrors"
)

// ListModels returns the sorted model ids served by client, keeping only
// those that start with prefix.
func ListModels(ctx context.Context, client *openai.Client, prefix string) ([]string, error) {
	resp, err := client.ListModels(ctx)
	if err != nil {
		return nil, classify(ctx, err)
	}
	ids := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		if strings.HasPrefix(m.ID, prefix) {
			ids = append(ids, m.ID)
		}
	}
	if len(ids) == 0 {
		return nil, ferrors.New(ferrors.CodeNotFound, "endpoint returned no models")
	}
	slices.Sort(ids)
	return ids, nil
}
