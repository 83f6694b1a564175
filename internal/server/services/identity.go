package services

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/dkorolev/slateboard/internal/common"
	"github.com/dkorolev/slateboard/internal/server/auth"
	"github.com/dkorolev/slateboard/internal/server/config"
	"github.com/dkorolev/slateboard/internal/server/models"
	"github.com/dkorolev/slateboard/internal/server/repositories/repomanager"
)

const publicKeyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Registration is what a successful identity registration hands back. The
// private key is shown to the user exactly this once; only its hash is kept.
type Registration struct {
	Moniker    string
	PublicKey  string
	PrivateKey string
}

// IdentityService owns key generation, registration and authentication.
type IdentityService struct {
	db              *sql.DB
	repomanager     repomanager.RepositoryManager
	jwtSecret       []byte
	sessionValidity time.Duration
	hashCost        int
}

func NewIdentityService(db *sql.DB, rm repomanager.RepositoryManager, cfg *config.Config) *IdentityService {
	return &IdentityService{
		db:              db,
		repomanager:     rm,
		jwtSecret:       []byte(cfg.SecretKey),
		sessionValidity: cfg.SessionValidityDuration,
		hashCost:        cfg.KeyHashCost,
	}
}

// GeneratePublicKey produces a displayable handle of 9 uppercase/digit
// characters grouped as XXX-XXX-XXX. Uniqueness is the users table's job;
// on a collision the caller regenerates and retries.
func GeneratePublicKey() string {
	raw := make([]byte, 9)
	if _, err := rand.Read(raw); err != nil {
		panic(err)
	}

	var b strings.Builder
	for i, r := range raw {
		b.WriteByte(publicKeyAlphabet[int(r)%len(publicKeyAlphabet)])
		if i == 2 || i == 5 {
			b.WriteByte('-')
		}
	}
	return b.String()
}

// GeneratePrivateKey produces the bearer secret: 32 bytes of cryptographic
// randomness, URL-safe base64 without padding.
func GeneratePrivateKey() string {
	return base64.RawURLEncoding.EncodeToString(common.GenerateRandByteArray(32))
}

// Register creates a new identity for moniker and returns the one-time
// plaintext private key together with the public handle. A public-key
// collision surfaces as common.ErrConflict; the client re-submits.
func (s *IdentityService) Register(ctx context.Context, moniker string) (*Registration, error) {
	moniker = strings.TrimSpace(moniker)
	if moniker == "" {
		return nil, fmt.Errorf("moniker is required: %w", common.ErrValidation)
	}

	publicKey := GeneratePublicKey()
	privateKey := GeneratePrivateKey()

	hash, err := bcrypt.GenerateFromPassword([]byte(privateKey), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hashing private key: %w", err)
	}

	user := &models.User{
		Moniker:        moniker,
		PublicKey:      publicKey,
		PrivateKeyHash: string(hash),
	}

	if _, err := s.repomanager.Users(s.db).Create(ctx, user); err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, fmt.Errorf("public key conflict (try again): %w", common.ErrConflict)
		}
		return nil, fmt.Errorf("creating user: %w", common.ErrStorage)
	}

	return &Registration{
		Moniker:    moniker,
		PublicKey:  publicKey,
		PrivateKey: privateKey,
	}, nil
}

// Authenticate verifies a private key candidate against every stored hash.
// The hash is non-invertible so there is nothing to index on; this is a
// deliberate linear scan, bearable while the user population stays small.
// Comparisons run concurrently and the first match wins.
func (s *IdentityService) Authenticate(ctx context.Context, candidate string) (*models.User, error) {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return nil, fmt.Errorf("private key is required: %w", common.ErrValidation)
	}

	records, err := s.repomanager.Users(s.db).ListCredentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading credentials: %w", common.ErrStorage)
	}

	matches := make(chan *models.User, len(records))
	var wg sync.WaitGroup
	for _, rec := range records {
		wg.Add(1)
		go func(u *models.User) {
			defer wg.Done()
			if bcrypt.CompareHashAndPassword([]byte(u.PrivateKeyHash), []byte(candidate)) == nil {
				matches <- u
			}
		}(rec)
	}
	wg.Wait()
	close(matches)

	if user, ok := <-matches; ok {
		return user, nil
	}
	return nil, fmt.Errorf("invalid private key: %w", common.ErrUnauthorized)
}

// SessionToken issues the signed session token carried by the cookie.
func (s *IdentityService) SessionToken(userID int64) (string, error) {
	return auth.GenerateToken(userID, s.jwtSecret, s.sessionValidity)
}

// SessionValidity reports the configured session lifetime (cookie max age).
func (s *IdentityService) SessionValidity() time.Duration {
	return s.sessionValidity
}

// UserIDFromToken validates a session token and returns the user id inside.
func (s *IdentityService) UserIDFromToken(token string) (int64, error) {
	id, err := auth.GetUserIDFromToken(token, s.jwtSecret)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", common.ErrInvalidToken, err)
	}
	return id, nil
}

// GetUser returns the display identity (moniker + public key) for id.
func (s *IdentityService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return s.repomanager.Users(s.db).GetByID(ctx, id)
}
