package repository

import (
	"context"
	"errors"
	"strings"

	"garagebook/internal/models"
	"garagebook/internal/observability"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	backendMemory = "memory"
	backendGorm   = "gorm"
)

// instrument starts latency tracking and a span for one repository call.
func instrument(ctx context.Context, backend, operation string) (context.Context, func(error)) {
	done := observability.TrackStoreOperation(backend, operation)
	ctx, span := observability.StartSpan(ctx, backend, operation)
	return ctx, func(err error) {
		done()
		observability.EndSpan(span, err)
	}
}

// isUniqueViolation recognises unique constraint errors from postgres and sqlite.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint")
}

// internal wraps storage failures, passing AppErrors through unchanged.
func internal(err error) error {
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return models.NewInternalError(err)
}

func page[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
