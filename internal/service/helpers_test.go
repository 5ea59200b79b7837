package service

import (
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pribylovaa/snapfood/internal/config"
	"github.com/pribylovaa/snapfood/mocks"
)

var fixedNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func testCfg() config.AuthConfig {
	return config.AuthConfig{
		AccessSecret:    "unit-access-secret",
		RefreshSecret:   "unit-refresh-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
		Issuer:          "snapfood",
		BcryptCost:      bcrypt.MinCost,
		HashTimeout:     5 * time.Second,
	}
}

func newSvc(t *testing.T, opts ...Option) (*Service, *mocks.MockStorage) {
	t.Helper()
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStorage(ctrl)

	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return New(st, testCfg(), opts...), st
}

func mustHashPW(t *testing.T, svc *Service, pw string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(pw), svc.hasher.cost)
	require.NoError(t, err)
	return string(h)
}
