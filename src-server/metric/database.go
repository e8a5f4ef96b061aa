package metric

import (
	"context"
	"time"

	"evhub/src-server/model"

	"github.com/uptrace/bun"
)

func database(db *bun.DB) (time.Duration, error) {
	start := time.Now()
	if _, err := db.NewSelect().
		Model((*model.Event)(nil)).
		Where("id = ?", "").
		Exists(context.Background()); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}
