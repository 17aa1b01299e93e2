package app

import (
	"context"

	"go.uber.org/zap"

	"github.com/TiagoDeMatosDias/EDINET/internal/logger"
)

func testContext() context.Context {
	return context.WithValue(context.Background(), logger.ContextKey, zap.NewNop().Sugar())
}
