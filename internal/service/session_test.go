package service_test

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/gestorerp/notas-bfa-go/internal/domain"
	"github.com/gestorerp/notas-bfa-go/internal/service"
)

func assinarToken(t *testing.T, secret string, claims service.SessionClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return signed
}

func TestValidateAccessToken(t *testing.T) {
	svc := service.NewSession("segredo-de-teste")
	now := time.Now()

	valido := assinarToken(t, "segredo-de-teste", service.SessionClaims{
		Sub:  "operador-1",
		Type: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(15 * time.Minute)),
		},
	})

	claims, err := svc.ValidateAccessToken(valido)
	if err != nil {
		t.Fatalf("expected valid token, got %v", err)
	}
	if claims.Sub != "operador-1" {
		t.Errorf("expected sub 'operador-1', got %q", claims.Sub)
	}
}

func TestValidateAccessToken_Rejeicoes(t *testing.T) {
	svc := service.NewSession("segredo-de-teste")
	now := time.Now()

	expirado := assinarToken(t, "segredo-de-teste", service.SessionClaims{
		Sub:  "operador-1",
		Type: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now.Add(-time.Hour)),
			ExpiresAt: jwt.NewNumericDate(now.Add(-30 * time.Minute)),
		},
	})
	outroSegredo := assinarToken(t, "outro-segredo", service.SessionClaims{
		Sub:  "operador-1",
		Type: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(15 * time.Minute)),
		},
	})
	tipoErrado := assinarToken(t, "segredo-de-teste", service.SessionClaims{
		Sub:  "operador-1",
		Type: "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(15 * time.Minute)),
		},
	})

	casos := []struct {
		nome  string
		token string
	}{
		{"expirado", expirado},
		{"assinatura inválida", outroSegredo},
		{"tipo errado", tipoErrado},
		{"lixo", "nem.um.jwt"},
	}
	for _, c := range casos {
		t.Run(c.nome, func(t *testing.T) {
			_, err := svc.ValidateAccessToken(c.token)
			var unauthorized *domain.ErrUnauthorized
			if !errors.As(err, &unauthorized) {
				t.Fatalf("expected ErrUnauthorized, got %v", err)
			}
		})
	}
}
