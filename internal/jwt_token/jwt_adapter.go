package jwttoken

import (
	"flightsurety/internal/platform/middleware"
)

// JWTServiceAdapter exposes the service through the middleware validator
// interface.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*middleware.JWTClaims, error) {
	addr, err := a.service.ExtractAddress(tokenString)
	if err != nil {
		return nil, err
	}
	return &middleware.JWTClaims{Address: addr}, nil
}
