package repository

import (
	"context"

	"post-alert/internal/domain/entity"
)

// SourceRepository lists the blog listing pages to monitor, in run order.
type SourceRepository interface {
	ListActive(ctx context.Context) ([]entity.Source, error)
}
