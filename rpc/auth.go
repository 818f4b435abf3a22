package rpc

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// requireAuth validates the bearer credential on a mutating request. A static
// token is compared in constant time; otherwise the credential is treated as a
// signed HS256 JWT when a secret is configured.
func (s *Server) requireAuth(r *http.Request) *RPCError {
	if s.authToken == "" && len(s.jwtSecret) == 0 {
		return &RPCError{Code: codeUnauthorized, Message: "RPC authentication not configured"}
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing Authorization header"}
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return &RPCError{Code: codeUnauthorized, Message: "Authorization header must use Bearer scheme"}
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing bearer token"}
	}
	if s.authToken != "" && subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) == 1 {
		return nil
	}
	if len(s.jwtSecret) > 0 && s.validJWT(token) {
		return nil
	}
	return &RPCError{Code: codeUnauthorized, Message: "invalid RPC credentials"}
}

func (s *Server) validJWT(raw string) bool {
	parsed, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
	return err == nil && parsed.Valid
}
