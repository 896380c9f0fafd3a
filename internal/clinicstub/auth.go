package clinicstub

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const patientClaimsKey contextKey = "patientClaims"

type patientClaims struct {
	jwt.RegisteredClaims
	UID         int    `json:"uid"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	Gender      string `json:"gender"`
	DateOfBirth string `json:"date_of_birth"`
}

func (s *Server) issueToken(p patient) (string, error) {
	now := time.Now()
	claims := patientClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(p.UID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
		UID:         p.UID,
		Email:       p.Email,
		Name:        p.Name,
		Phone:       p.Phone,
		Gender:      p.Gender,
		DateOfBirth: p.DateOfBirth,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// patientJWT enforces a bearer token on patient endpoints; the decoded
// claims end up in the request context.
func (s *Server) patientJWT(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Not authenticated"})
			return
		}
		tokenString := strings.TrimPrefix(auth, "Bearer ")
		claims := &patientClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return s.secret, nil
		})
		if err != nil || !token.Valid {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Could not validate credentials"})
			return
		}
		ctx := context.WithValue(r.Context(), patientClaimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func claimsFromContext(ctx context.Context) (*patientClaims, bool) {
	claims, ok := ctx.Value(patientClaimsKey).(*patientClaims)
	return claims, ok
}
