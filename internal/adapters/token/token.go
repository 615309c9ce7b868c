// Package token issues LiveKit-compatible room access tokens.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/VoiceBridge/internal/config"
	"github.com/dkeye/VoiceBridge/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

var ErrNotConfigured = errors.New("livekit credentials are not configured")

// VideoGrant mirrors the LiveKit "video" claim.
type VideoGrant struct {
	RoomJoin     bool   `json:"roomJoin,omitempty"`
	Room         string `json:"room,omitempty"`
	CanPublish   *bool  `json:"canPublish,omitempty"`
	CanSubscribe *bool  `json:"canSubscribe,omitempty"`
}

type Claims struct {
	jwt.RegisteredClaims
	Name  string      `json:"name,omitempty"`
	Video *VideoGrant `json:"video,omitempty"`
}

type Issuer struct {
	apiKey    string
	apiSecret []byte
	ttl       time.Duration
	now       func() time.Time
}

func NewIssuer(cfg config.LiveKitConfig) *Issuer {
	return &Issuer{
		apiKey:    cfg.APIKey,
		apiSecret: []byte(cfg.APISecret),
		ttl:       cfg.TokenTTL,
		now:       time.Now,
	}
}

func (i *Issuer) Configured() bool {
	return i != nil && i.apiKey != "" && len(i.apiSecret) > 0
}

// Issue signs a token that lets identity join room with publish and
// subscribe rights.
func (i *Issuer) Issue(identity domain.Identity, room string) (string, error) {
	if !i.Configured() {
		return "", ErrNotConfigured
	}
	if room == "" {
		return "", errors.New("room is required")
	}
	now := i.now()
	yes := true
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.apiKey,
			Subject:   string(identity),
			ID:        string(identity),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		Name: string(identity),
		Video: &VideoGrant{
			RoomJoin:     true,
			Room:         room,
			CanPublish:   &yes,
			CanSubscribe: &yes,
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.apiSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses a token issued by i. Used by tests and diagnostics.
func (i *Issuer) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return i.apiSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.apiKey),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}
