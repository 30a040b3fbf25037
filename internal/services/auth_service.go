package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prudhvinik1/kaucjaflow/internal/metrics"
	"github.com/prudhvinik1/kaucjaflow/internal/models"
	"github.com/prudhvinik1/kaucjaflow/internal/repositories"
	"github.com/prudhvinik1/kaucjaflow/internal/utils"
)

// DefaultShopName is used when a login request does not name a shop.
const DefaultShopName = "Shop 1"

var (
	ErrInvalidEmail     = errors.New("invalid email")
	ErrRateLimited      = errors.New("login link requested too recently")
	ErrInvalidToken     = errors.New("invalid token")
	ErrUserNotFound     = errors.New("user not found")
	ErrDevLoginDisabled = errors.New("dev login disabled")
)

// AuthConfig holds the knobs of the passwordless login flow.
type AuthConfig struct {
	JWTSecret    string
	JWTExpiry    time.Duration
	LinkTTL      time.Duration
	LinkCooldown time.Duration
	BaseURL      string
	DevLogin     bool
}

type AuthService struct {
	shopRepo    repositories.ShopRepository
	userRepo    repositories.UserRepository
	sessionRepo repositories.SessionRepository
	tokenRepo   repositories.MagicTokenRepository
	mailer      Mailer
	cfg         AuthConfig
	logger      *slog.Logger
	now         func() time.Time
}

type MagicLinkRequest struct {
	Email    string
	ShopName string
	Role     string
}

type LoginResponse struct {
	Token     string
	ExpiresAt time.Time
	User      *models.User
	SessionID string
}

type TokenClaims struct {
	UserID    uuid.UUID
	ShopID    uuid.UUID
	Role      models.Role
	Email     string
	SessionID string
}

func NewAuthService(
	shopRepo repositories.ShopRepository,
	userRepo repositories.UserRepository,
	sessionRepo repositories.SessionRepository,
	tokenRepo repositories.MagicTokenRepository,
	mailer Mailer,
	cfg AuthConfig,
	logger *slog.Logger,
) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		shopRepo:    shopRepo,
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		tokenRepo:   tokenRepo,
		mailer:      mailer,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
	}
}

// RequestLink provisions the shop and user named in req and mails a one-time
// login link. It reports whether the mailer actually delivered the link.
func (s *AuthService) RequestLink(ctx context.Context, req MagicLinkRequest) (bool, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return false, err
	}

	ok, err := s.tokenRepo.AcquireCooldown(ctx, email, s.cfg.LinkCooldown)
	if err != nil {
		return false, fmt.Errorf("failed to check cooldown: %w", err)
	}
	if !ok {
		metrics.MagicLinksTotal.WithLabelValues("rate_limited").Inc()
		return false, ErrRateLimited
	}

	user, err := s.ensureUser(ctx, email, req.ShopName, models.ParseRole(req.Role))
	if err != nil {
		return false, err
	}

	token, err := utils.RandomToken(utils.MagicTokenBytes)
	if err != nil {
		return false, err
	}
	now := s.now()
	mt := &models.MagicToken{
		Email:     user.Email,
		UserID:    user.ID,
		ShopID:    user.ShopID,
		Role:      user.Role,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.LinkTTL),
	}
	if err := s.tokenRepo.Create(ctx, token, mt); err != nil {
		return false, fmt.Errorf("failed to store login link: %w", err)
	}

	link := strings.TrimRight(s.cfg.BaseURL, "/") + "/api/auth/magic/verify?token=" + url.QueryEscape(token)
	delivered, err := s.mailer.SendLoginLink(ctx, user.Email, link)
	if err != nil {
		metrics.MagicLinksTotal.WithLabelValues("failed").Inc()
		return false, fmt.Errorf("failed to send login link: %w", err)
	}

	metrics.MagicLinksTotal.WithLabelValues("sent").Inc()
	return delivered, nil
}

// Verify consumes a login link token and opens a session for its user.
func (s *AuthService) Verify(ctx context.Context, token string) (*LoginResponse, error) {
	mt, err := s.tokenRepo.Consume(ctx, token)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to consume login link: %w", err)
	}
	if s.now().After(mt.ExpiresAt) {
		return nil, ErrInvalidToken
	}

	user, err := s.userRepo.GetByID(ctx, mt.UserID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user.Email != mt.Email || !user.Active {
		return nil, ErrUserNotFound
	}

	return s.login(ctx, user)
}

// DevLogin skips the email round trip. It only works when enabled in config.
func (s *AuthService) DevLogin(ctx context.Context, req MagicLinkRequest) (*LoginResponse, error) {
	if !s.cfg.DevLogin {
		return nil, ErrDevLoginDisabled
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	user, err := s.ensureUser(ctx, email, req.ShopName, models.ParseRole(req.Role))
	if err != nil {
		return nil, err
	}
	return s.login(ctx, user)
}

func (s *AuthService) login(ctx context.Context, user *models.User) (*LoginResponse, error) {
	now := s.now()
	session := &models.Session{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		ShopID:    user.ShopID,
		Role:      user.Role,
		Email:     user.Email,
		ExpiresAt: now.Add(s.cfg.JWTExpiry),
		CreatedAt: now,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	token, err := s.generateToken(session)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	s.logger.InfoContext(ctx, "session opened", "user_id", user.ID, "shop_id", user.ShopID)
	return &LoginResponse{
		Token:     token,
		ExpiresAt: session.ExpiresAt,
		User:      user,
		SessionID: session.ID,
	}, nil
}

// ensureUser finds or creates the shop and the user, moving an existing user
// to the requested shop and role.
func (s *AuthService) ensureUser(ctx context.Context, email, shopName string, role models.Role) (*models.User, error) {
	shopName = strings.TrimSpace(shopName)
	if shopName == "" {
		shopName = DefaultShopName
	}
	shop, err := s.shopRepo.GetOrCreateByName(ctx, shopName)
	if err != nil {
		return nil, fmt.Errorf("failed to get shop: %w", err)
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if errors.Is(err, repositories.ErrNotFound) {
		user = &models.User{Email: email, ShopID: shop.ID, Role: role}
		if err := s.userRepo.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		return user, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if user.ShopID != shop.ID || user.Role != role {
		user.ShopID = shop.ID
		user.Role = role
		if err := s.userRepo.Update(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to update user: %w", err)
		}
	}
	return user, nil
}

func (s *AuthService) generateToken(session *models.Session) (string, error) {
	claims := jwt.MapClaims{
		"sub":     session.UserID.String(),
		"shop_id": session.ShopID.String(),
		"role":    string(session.Role),
		"email":   session.Email,
		"jti":     session.ID,
		"exp":     session.ExpiresAt.Unix(),
		"iat":     session.CreatedAt.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

// VerifyToken checks the signature and expiry of a JWT and extracts its
// claims. It does not consult the session store; see Authenticate.
func (s *AuthService) VerifyToken(tokenString string) (*TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	userID, err := uuidClaim(claims, "sub")
	if err != nil {
		return nil, err
	}
	shopID, err := uuidClaim(claims, "shop_id")
	if err != nil {
		return nil, err
	}
	sessionID, ok := claims["jti"].(string)
	if !ok || sessionID == "" {
		return nil, ErrInvalidToken
	}
	role, _ := claims["role"].(string)
	email, _ := claims["email"].(string)

	return &TokenClaims{
		UserID:    userID,
		ShopID:    shopID,
		Role:      models.ParseRole(role),
		Email:     email,
		SessionID: sessionID,
	}, nil
}

// Authenticate verifies the token and requires its session to still exist,
// so logging out revokes the token before it expires.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*TokenClaims, error) {
	claims, err := s.VerifyToken(tokenString)
	if err != nil {
		return nil, err
	}
	session, err := s.sessionRepo.GetByID(ctx, claims.SessionID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session.UserID != claims.UserID {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *AuthService) Logout(ctx context.Context, tokenString string) error {
	claims, err := s.VerifyToken(tokenString)
	if err != nil {
		return err
	}

	err = s.sessionRepo.Delete(ctx, claims.SessionID)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *AuthService) LogoutAll(ctx context.Context, tokenString string) error {
	claims, err := s.Authenticate(ctx, tokenString)
	if err != nil {
		return err
	}

	if err := s.sessionRepo.DeleteAllForUser(ctx, claims.UserID); err != nil {
		return fmt.Errorf("failed to logout all sessions: %w", err)
	}
	return nil
}

func uuidClaim(claims jwt.MapClaims, key string) (uuid.UUID, error) {
	s, ok := claims[key].(string)
	if !ok {
		return uuid.Nil, ErrInvalidToken
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return id, nil
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil || addr.Address != strings.TrimSpace(raw) {
		return "", ErrInvalidEmail
	}
	return strings.ToLower(addr.Address), nil
}
