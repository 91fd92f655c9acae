package mongodb

import (
	"context"
	"errors"
	"fmt"
	"net"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"

	"github.com/bigkaa/goartstore/document-store/internal/domain/model"
)

// classify приводит ошибку драйвера к таксономии model:
// отсутствие документа → ErrNotFound, сеть и таймауты → ErrStoreUnavailable.
// Исходная ошибка остаётся в цепочке.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, model.ErrNotFound), errors.Is(err, model.ErrStoreUnavailable):
		return fmt.Errorf("%s: %w", op, err)
	case errors.Is(err, gridfs.ErrFileNotFound), errors.Is(err, mongo.ErrNoDocuments):
		return fmt.Errorf("%s: %w", op, model.ErrNotFound)
	case isUnavailable(err):
		return fmt.Errorf("%s: %w: %w", op, model.ErrStoreUnavailable, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// isUnavailable определяет ошибки связности: таймауты, сеть, закрытый клиент.
func isUnavailable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, mongo.ErrClientDisconnected) ||
		mongo.IsTimeout(err) ||
		mongo.IsNetworkError(err) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
