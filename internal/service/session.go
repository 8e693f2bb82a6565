package service

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/gestorerp/notas-bfa-go/internal/domain"
)

// SessionService validates the access tokens issued by the ERP's auth server.
// This service never issues tokens; it only verifies the shared-secret
// signature and extracts the operator identity.
type SessionService struct {
	jwtSecret []byte
}

func NewSession(jwtSecret string) *SessionService {
	return &SessionService{jwtSecret: []byte(jwtSecret)}
}

// SessionClaims are the custom claims carried by ERP access tokens.
type SessionClaims struct {
	Sub    string `json:"sub"`
	Nome   string `json:"nome,omitempty"`
	Perfil string `json:"perfil,omitempty"`
	Type   string `json:"type"`
	jwt.RegisteredClaims
}

func (s *SessionService) ValidateAccessToken(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "Token inválido ou expirado"}
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, &domain.ErrUnauthorized{Message: "Token inválido"}
	}

	if claims.Type != "" && claims.Type != "access" {
		return nil, &domain.ErrUnauthorized{Message: "Tipo de token inválido"}
	}

	return claims, nil
}
