package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nurpe/fleetops-contracts/internal/model"
)

type Parser struct {
	secret []byte
}

func NewParser(secret string) *Parser {
	return &Parser{secret: []byte(secret)}
}

// Parse validates an access token and extracts the principal from its
// "sub" and "role" claims.
func (p *Parser) Parse(raw string) (model.Principal, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil {
		return model.Principal{}, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return model.Principal{}, fmt.Errorf("invalid token claims")
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return model.Principal{}, fmt.Errorf("missing sub claim: %w", err)
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return model.Principal{}, fmt.Errorf("invalid sub claim: %w", err)
	}

	role, _ := claims["role"].(string)
	if role == "" {
		return model.Principal{}, fmt.Errorf("missing role claim")
	}

	return model.Principal{UserID: userID, Role: role}, nil
}
