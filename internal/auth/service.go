package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"lisanchat/internal/cache"
	"lisanchat/internal/models"
)

var (
	ErrMissingCredentials = errors.New("email and password are required")
	ErrInvalidLanguage    = errors.New("invalid language")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
)

const languageCacheTTL = 10 * time.Minute

// Service owns the users table: registration, credential checks, JWT
// issuance, and language preference reads/writes. The redis cache is
// optional; language lookups fall through to the database on a miss.
type Service struct {
	db       *sql.DB
	cache    *cache.Client
	secret   []byte
	tokenTTL time.Duration
}

// Claims is the JWT payload carried by bearer tokens.
type Claims struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// NewService constructs an auth service with the supplied signing secret and
// token lifetime.
func NewService(db *sql.DB, cacheClient *cache.Client, secret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Service{
		db:       db,
		cache:    cacheClient,
		secret:   []byte(secret),
		tokenTTL: ttl,
	}
}

// SignUp validates input, rejects duplicate emails, and creates the account
// with a bcrypt-hashed password. Returns the new user and a signed token.
func (s *Service) SignUp(ctx context.Context, email, password, language string) (*models.User, string, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" || language == "" {
		return nil, "", ErrMissingCredentials
	}
	if !models.ValidLanguage(language) {
		return nil, "", ErrInvalidLanguage
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)`, email,
	).Scan(&exists); err != nil {
		return nil, "", fmt.Errorf("check user: %w", err)
	}
	if exists {
		return nil, "", ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, language, created_at) VALUES (?, ?, ?, ?)`,
		email, string(hash), language, now,
	)
	if err != nil {
		return nil, "", fmt.Errorf("create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, "", fmt.Errorf("user id: %w", err)
	}

	user := &models.User{ID: id, Email: email, Language: language, CreatedAt: now}
	token, err := s.issueToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// SignIn verifies credentials and returns the user, a signed token, and the
// best-known language for localizing errors: the account's stored language
// once the account is identified, English before that.
func (s *Service) SignIn(ctx context.Context, email, password string) (*models.User, string, string, error) {
	lang := models.LanguageEnglish
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, "", lang, ErrMissingCredentials
	}

	var user models.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, language, created_at FROM users WHERE email = ?`, email,
	).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Language, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", lang, ErrInvalidCredentials
		}
		return nil, "", lang, fmt.Errorf("query user: %w", err)
	}
	if user.Language != "" {
		lang = user.Language
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", lang, ErrInvalidCredentials
	}

	token, err := s.issueToken(&user)
	if err != nil {
		return nil, "", lang, err
	}
	return &user, token, lang, nil
}

// VerifyToken parses and validates a bearer token, returning its claims.
func (s *Service) VerifyToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// Language returns the user's preferred language, consulting the cache
// first. Accounts without a row resolve to English rather than an error.
func (s *Service) Language(ctx context.Context, userID int64) (string, error) {
	key := languageCacheKey(userID)
	if lang, err := s.cache.Get(ctx, key); err == nil && models.ValidLanguage(lang) {
		return lang, nil
	}

	var lang string
	err := s.db.QueryRowContext(ctx, `SELECT language FROM users WHERE id = ?`, userID).Scan(&lang)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.LanguageEnglish, nil
		}
		return "", fmt.Errorf("lookup language: %w", err)
	}
	if !models.ValidLanguage(lang) {
		lang = models.LanguageEnglish
	}
	_ = s.cache.Set(ctx, key, lang, languageCacheTTL)
	return lang, nil
}

// UpdateLanguage sets the user's preferred language and invalidates the
// cached value.
func (s *Service) UpdateLanguage(ctx context.Context, userID int64, language string) error {
	if !models.ValidLanguage(language) {
		return ErrInvalidLanguage
	}
	res, err := s.db.ExecContext(ctx, `UPDATE users SET language = ? WHERE id = ?`, language, userID)
	if err != nil {
		return fmt.Errorf("update language: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	_ = s.cache.Del(ctx, languageCacheKey(userID))
	return nil
}

// UserExists reports whether the account id is present.
func (s *Service) UserExists(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)`, userID,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("check user: %w", err)
	}
	return exists, nil
}

func (s *Service) issueToken(user *models.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func languageCacheKey(userID int64) string {
	return fmt.Sprintf("user:lang:%d", userID)
}
