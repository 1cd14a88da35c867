package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrInvalidInput         = errors.New("entrada inválida")
	ErrInvalidMovementType  = fmt.Errorf("tipo de movimiento inválido: %w", ErrInvalidInput)
	ErrNotFound             = errors.New("recurso no encontrado")
	ErrProductNotFound      = fmt.Errorf("producto no encontrado: %w", ErrNotFound)
	ErrWarehouseNotFound    = fmt.Errorf("bodega no encontrada: %w", ErrNotFound)
	ErrMovementNotFound     = fmt.Errorf("movimiento no encontrado: %w", ErrNotFound)
	ErrInsufficientQuantity = errors.New("cantidad insuficiente")
	ErrPersistence          = errors.New("error de persistencia")
	ErrUnauthorized         = errors.New("no autorizado")
	ErrForbidden            = errors.New("acceso denegado")
	ErrDuplicate            = errors.New("recurso duplicado")
)

// InsufficientQuantityError indica que aplicar un delta dejaría negativa la cantidad
// de una entrada del ledger. Coincide con ErrInsufficientQuantity vía errors.Is.
type InsufficientQuantityError struct {
	WarehouseID string
	ProductID   string
	Available   int64
	Requested   int64
}

func (e *InsufficientQuantityError) Error() string {
	return fmt.Sprintf("cantidad insuficiente en bodega %s para producto %s: disponible %d, requerido %d",
		e.WarehouseID, e.ProductID, e.Available, e.Requested)
}

func (e *InsufficientQuantityError) Is(target error) bool {
	return target == ErrInsufficientQuantity
}

// PersistenceError envuelve un fallo opaco del gateway de persistencia.
// La causa original se conserva para logging; el motor no la interpreta.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrPersistence.Error(), e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// WrapPersistence devuelve err sin cambios si ya es un error de dominio conocido;
// en otro caso lo envuelve en un PersistenceError con la operación indicada.
func WrapPersistence(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsDomainError(err) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

// IsDomainError reporta si err pertenece a la taxonomía de errores del dominio.
func IsDomainError(err error) bool {
	for _, kind := range []error{ErrInvalidInput, ErrNotFound, ErrInsufficientQuantity, ErrPersistence, ErrUnauthorized, ErrForbidden, ErrDuplicate} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
