package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nurpe/haulops/internal/model"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

type Claims struct {
	jwt.RegisteredClaims
	UserID      string `json:"user_id"`
	Role        string `json:"role"`
	CompanyID   string `json:"company_id,omitempty"`
	CompanyType string `json:"company_type,omitempty"`
}

// Parser verifies access tokens and turns them into principals.
type Parser struct {
	secret []byte
	issuer string
}

func NewParser(secret, issuer string) *Parser {
	return &Parser{secret: []byte(secret), issuer: issuer}
}

func (p *Parser) Parse(tokenString string) (model.Principal, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if p.issuer != "" {
		opts = append(opts, jwt.WithIssuer(p.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return p.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return model.Principal{}, ErrExpiredToken
		}
		return model.Principal{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return model.Principal{}, ErrInvalidToken
	}
	return claims.principal()
}

func (c *Claims) principal() (model.Principal, error) {
	userID, err := uuid.Parse(c.UserID)
	if err != nil {
		return model.Principal{}, ErrInvalidToken
	}
	role := model.Role(c.Role)
	if !role.Valid() {
		return model.Principal{}, ErrInvalidToken
	}

	principal := model.Principal{
		UserID:      userID,
		Role:        role,
		CompanyType: model.CompanyType(c.CompanyType),
	}
	if c.CompanyID != "" {
		companyID, err := uuid.Parse(c.CompanyID)
		if err != nil {
			return model.Principal{}, ErrInvalidToken
		}
		principal.CompanyID = &companyID
	}
	if role != model.RoleAdmin && !principal.HasCompany() {
		return model.Principal{}, ErrInvalidToken
	}
	return principal, nil
}

// Issuer signs access tokens for authenticated users.
type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret, issuer string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
}

func (i *Issuer) Issue(user model.User, company *model.Company) (string, time.Time, error) {
	now := i.now()
	expiresAt := now.Add(i.ttl)

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    i.issuer,
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID: user.ID.String(),
		Role:   string(user.Role),
	}
	if company != nil {
		claims.CompanyID = company.ID.String()
		claims.CompanyType = string(company.Type)
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}
