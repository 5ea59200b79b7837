package storage

import (
	"context"

	"github.com/google/uuid"
)

// ImageStorage — архив исходных изображений сканов.
type ImageStorage interface {
	// PutScanImage сохраняет изображение и возвращает ключ объекта.
	PutScanImage(ctx context.Context, userID, scanID uuid.UUID, contentType string, data []byte) (string, error)
}
