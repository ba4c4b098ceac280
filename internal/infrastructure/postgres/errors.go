package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/Distribuidora-api/internal/domain"
)

// Códigos SQLSTATE que se traducen a domain.ErrConcurrency.
const (
	codeLockNotAvailable     = "55P03" // lock_timeout agotado
	codeDeadlockDetected     = "40P01"
	codeSerializationFailure = "40001"
	codeUniqueViolation      = "23505"
	codeQueryCanceled        = "57014" // statement_timeout
)

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}

func isNoRows(err error) bool { return errors.Is(err, pgx.ErrNoRows) }

// mapError traduce errores de contención a domain.ErrConcurrency (reintentable) conservando el original.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeLockNotAvailable, codeDeadlockDetected, codeSerializationFailure, codeQueryCanceled:
			return fmt.Errorf("%w: %w", domain.ErrConcurrency, err)
		}
	}
	return err
}

// uniqueAsConcurrency una colisión de consecutivo significa que otro generador ganó la carrera.
func uniqueAsConcurrency(err error, what string) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("%s: %w", what, domain.ErrConcurrency)
	}
	return mapError(err)
}
