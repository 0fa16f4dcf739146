package usecase

import (
	"context"
	"time"
)

const statusConnected = "connected"

type HealthUseCase struct {
	db     DBPinger
	images ImagesInfra
}

func NewHealthUC(db DBPinger, images ImagesInfra) *HealthUseCase {
	return &HealthUseCase{db: db, images: images}
}

// Check опрашивает базу данных и хранилище изображений.
func (h *HealthUseCase) Check(ctx context.Context) *HealthRes {
	res := &HealthRes{
		Healthy:      true,
		Database:     statusConnected,
		ImageStorage: statusConnected,
		CheckedAt:    time.Now().UTC(),
	}

	if err := h.db.Ping(ctx); err != nil {
		res.Healthy = false
		res.Database = "error: " + err.Error()
	}

	if err := h.images.Ping(ctx); err != nil {
		res.Healthy = false
		res.ImageStorage = "error: " + err.Error()
	}

	return res
}
