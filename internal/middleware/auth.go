package middleware

import (
	"context"
	"net/http"
	"strings"

	"studentpay-backend/internal/auth"
	"studentpay-backend/internal/models"
	"studentpay-backend/pkg/apperror"
	"studentpay-backend/pkg/utils"
)

type contextKey string

const DepartmentIDKey contextKey = "department_id"
const EmailKey contextKey = "email"
const RoleKey contextKey = "role"

// TokenValidator parses bearer tokens. *auth.JWTManager satisfies it.
type TokenValidator interface {
	ValidateToken(tokenString string) (*auth.Claims, error)
}

type DepartmentLookup interface {
	Get(ctx context.Context, id int) (*models.Department, error)
}

type AuthMiddleware struct {
	tokens      TokenValidator
	departments DepartmentLookup
}

func NewAuthMiddleware(tokens TokenValidator, departments DepartmentLookup) *AuthMiddleware {
	return &AuthMiddleware{
		tokens:      tokens,
		departments: departments,
	}
}

// authenticate resolves the bearer token to the current department record
func (m *AuthMiddleware) authenticate(r *http.Request) (*models.Department, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, apperror.New(http.StatusUnauthorized, apperror.CodeUnauthorized, "Authorization header required")
	}

	// Extract token from "Bearer <token>"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, apperror.New(http.StatusUnauthorized, apperror.CodeUnauthorized, "Invalid authorization format")
	}

	claims, err := m.tokens.ValidateToken(parts[1])
	if err != nil {
		return nil, apperror.New(http.StatusUnauthorized, apperror.CodeUnauthorized, "Invalid or expired token")
	}

	// Check database for current department status (for immediate permission updates)
	dept, err := m.departments.Get(r.Context(), claims.DepartmentID)
	if err != nil {
		return nil, apperror.New(http.StatusUnauthorized, apperror.CodeUnauthorized, "Department not found")
	}
	return dept, nil
}

func withDepartment(ctx context.Context, dept *models.Department) context.Context {
	ctx = context.WithValue(ctx, DepartmentIDKey, dept.ID)
	ctx = context.WithValue(ctx, EmailKey, dept.Email)
	return context.WithValue(ctx, RoleKey, dept.Role())
}

// Authenticate is a middleware that validates JWT tokens
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dept, err := m.authenticate(r)
		if err != nil {
			utils.Error(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(withDepartment(r.Context(), dept)))
	})
}

// RequireStaff only lets staff accounts through (department verification)
func (m *AuthMiddleware) RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dept, err := m.authenticate(r)
		if err != nil {
			utils.Error(w, err)
			return
		}
		if !dept.IsStaff {
			utils.Error(w, apperror.New(http.StatusForbidden, apperror.CodeForbidden, "Forbidden: staff access required"))
			return
		}
		next.ServeHTTP(w, r.WithContext(withDepartment(r.Context(), dept)))
	})
}

// GetDepartmentIDFromContext extracts the authenticated department ID from request context
func GetDepartmentIDFromContext(ctx context.Context) (int, bool) {
	id, ok := ctx.Value(DepartmentIDKey).(int)
	return id, ok
}

// GetEmailFromContext extracts email from request context
func GetEmailFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(EmailKey).(string)
	return email, ok
}

// GetRoleFromContext extracts role from request context
func GetRoleFromContext(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(RoleKey).(string)
	return role, ok
}
