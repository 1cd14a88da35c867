package http

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/stock-movements/internal/application/dto"
	"github.com/rs/zerolog"
)

// HeaderIdempotencyKey cabecera con la que el cliente marca una creación reintentable.
const HeaderIdempotencyKey = "Idempotency-Key"

// LocalResourceID key de c.Locals donde el handler deja el ID del recurso creado.
const LocalResourceID = "resource_id"

const maxIdempotencyKeyLen = 255

// IdempotencyStore reserva y recuerda claves de idempotencia (Redis o memoria).
type IdempotencyStore interface {
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Complete(ctx context.Context, key, result string, ttl time.Duration) error
	Lookup(ctx context.Context, key string) (result string, done bool, err error)
	Release(ctx context.Context, key string) error
}

// Idempotency rechaza con 409 una creación cuya Idempotency-Key ya fue usada por el mismo usuario.
// Sin cabecera la petición pasa sin control. La clave solo queda consumida si el handler responde 2xx.
func Idempotency(store IdempotencyStore, ttl time.Duration, log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := strings.TrimSpace(c.Get(HeaderIdempotencyKey))
		if key == "" {
			return c.Next()
		}
		if len(key) > maxIdempotencyKeyLen {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: CodeValidation, Message: "Idempotency-Key demasiado larga"})
		}
		scoped := GetUserID(c) + ":" + key
		ctx := c.UserContext()

		resourceID, done, err := store.Lookup(ctx, scoped)
		if err != nil {
			log.Error().Err(err).Msg("idempotencia: consulta de clave")
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "IDEMPOTENCY_UNAVAILABLE", Message: "no se pudo verificar la clave de idempotencia"})
		}
		if done {
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
				Code:    "DUPLICATE_REQUEST",
				Message: "la petición ya fue procesada",
				Details: []dto.FieldError{{Field: "id", Message: resourceID}},
			})
		}
		ok, err := store.Reserve(ctx, scoped, ttl)
		if err != nil {
			log.Error().Err(err).Msg("idempotencia: reserva de clave")
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "IDEMPOTENCY_UNAVAILABLE", Message: "no se pudo reservar la clave de idempotencia"})
		}
		if !ok {
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "REQUEST_IN_PROGRESS", Message: "una petición con la misma clave está en curso"})
		}

		err = c.Next()
		status := c.Response().StatusCode()
		if err == nil && status >= 200 && status < 300 {
			id, _ := c.Locals(LocalResourceID).(string)
			if cerr := store.Complete(ctx, scoped, id, ttl); cerr != nil {
				log.Error().Err(cerr).Str("resource_id", id).Msg("idempotencia: completar clave")
			}
			return nil
		}
		if rerr := store.Release(ctx, scoped); rerr != nil {
			log.Warn().Err(rerr).Msg("idempotencia: liberar clave")
		}
		return err
	}
}
