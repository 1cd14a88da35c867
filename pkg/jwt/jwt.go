package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role rol del operador dentro del servicio de movimientos.
type Role string

// Roles reconocidos en el claim "role".
const (
	RoleAdmin     Role = "admin"     // todo, incluido eliminar movimientos y crear catálogo
	RoleBodeguero Role = "bodeguero" // registra y edita movimientos, lee todo
)

// Known indica si el rol es uno de los reconocidos.
func (r Role) Known() bool {
	return r == RoleAdmin || r == RoleBodeguero
}

var (
	ErrEmptySecret = errors.New("jwt: secret vacío")
	ErrMissingUser = errors.New("jwt: token sin usuario")
	ErrUnknownRole = errors.New("jwt: rol desconocido")
)

// Claims el usuario viaja en "sub"; el rol puede faltar y lo rechaza RequireRole.
type Claims struct {
	jwt.RegisteredClaims
	Role Role `json:"role,omitempty"`
}

// Identity quien firma los movimientos de la petición.
type Identity struct {
	UserID string
	Role   Role
}

// Generate firma un token HS256 para la identidad. Sirve a los tests y a herramientas internas;
// los tokens de producción los emite el proveedor de identidad con el mismo secreto.
func Generate(secret string, id Identity, issuer string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}
	if id.UserID == "" {
		return "", ErrMissingUser
	}
	if id.Role != "" && !id.Role.Known() {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, id.Role)
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: id.Role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Parse valida firma HS256, expiración (obligatoria) y, si issuer no está vacío, el emisor.
// Un rol presente pero desconocido invalida el token.
func Parse(secret, issuer, tokenString string) (Identity, error) {
	if secret == "" {
		return Identity{}, ErrEmptySecret
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		return Identity{}, err
	}
	if claims.Subject == "" {
		return Identity{}, ErrMissingUser
	}
	if claims.Role != "" && !claims.Role.Known() {
		return Identity{}, fmt.Errorf("%w: %q", ErrUnknownRole, claims.Role)
	}
	return Identity{UserID: claims.Subject, Role: claims.Role}, nil
}
