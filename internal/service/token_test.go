package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/snapfood/internal/models"
)

func TestAccessToken_RoundTrip(t *testing.T) {
	t.Parallel()

	svc, _ := newSvc(t)
	uid := uuid.New()

	tok, exp, err := svc.issueAccessToken(uid, models.RoleUser, fixedNow)
	require.NoError(t, err)
	require.Equal(t, fixedNow.Add(15*time.Minute), exp)

	p, err := svc.ParseAccessToken(tok)
	require.NoError(t, err)
	require.Equal(t, uid, p.UserID)
	require.Equal(t, models.RoleUser, p.Role)
}

func TestAccessToken_Expired(t *testing.T) {
	t.Parallel()

	svc, _ := newSvc(t)
	tok, _, err := svc.issueAccessToken(uuid.New(), models.RoleUser, fixedNow.Add(-time.Hour))
	require.NoError(t, err)

	_, err = svc.ParseAccessToken(tok)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestAccessToken_WithinLeeway(t *testing.T) {
	t.Parallel()

	svc, _ := newSvc(t)
	// Истёк 3 секунды назад — в пределах допуска 5 секунд.
	tok, _, err := svc.issueAccessToken(uuid.New(), models.RoleUser, fixedNow.Add(-15*time.Minute-3*time.Second))
	require.NoError(t, err)

	_, err = svc.ParseAccessToken(tok)
	require.NoError(t, err)
}

func TestAccessToken_RefreshTokenRejected(t *testing.T) {
	t.Parallel()

	svc, _ := newSvc(t)
	tok, _, err := svc.issueRefreshToken(uuid.New(), models.RoleUser, uuid.New(), fixedNow)
	require.NoError(t, err)

	_, err = svc.ParseAccessToken(tok)
	require.ErrorIs(t, err, ErrInvalidToken)

	// И наоборот: access-токен не проходит как refresh.
	access, _, err := svc.issueAccessToken(uuid.New(), models.RoleUser, fixedNow)
	require.NoError(t, err)
	_, err = svc.parseRefreshToken(access)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestAccessToken_WrongAlgorithmsRejected(t *testing.T) {
	t.Parallel()

	svc, _ := newSvc(t)
	uid := uuid.New()
	claims := sessionClaims{
		UserID: uid.String(),
		Role:   models.RoleUser,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid.String(),
			Issuer:    "snapfood",
			IssuedAt:  jwt.NewNumericDate(fixedNow),
			ExpiresAt: jwt.NewNumericDate(fixedNow.Add(time.Minute)),
		},
	}

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.ParseAccessToken(none)
	require.ErrorIs(t, err, ErrInvalidToken)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testCfg().AccessSecret))
	require.NoError(t, err)
	_, err = svc.ParseAccessToken(hs512)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestAccessToken_WrongIssuerOrGarbage(t *testing.T) {
	t.Parallel()

	svc, _ := newSvc(t)

	otherCfg := testCfg()
	otherCfg.Issuer = "someone-else"
	other := New(nil, otherCfg)
	tok, _, err := other.issueAccessToken(uuid.New(), models.RoleUser, fixedNow)
	require.NoError(t, err)

	_, err = svc.ParseAccessToken(tok)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.ParseAccessToken("not.a.jwt")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokens_SigningKeyMissing(t *testing.T) {
	t.Parallel()

	cfg := testCfg()
	cfg.AccessSecret = ""
	cfg.RefreshSecret = ""
	svc := New(nil, cfg)

	_, _, err := svc.issueAccessToken(uuid.New(), models.RoleUser, fixedNow)
	require.ErrorIs(t, err, ErrSigningKeyMissing)

	_, _, err = svc.issueRefreshToken(uuid.New(), models.RoleUser, uuid.New(), fixedNow)
	require.ErrorIs(t, err, ErrSigningKeyMissing)
}

func TestRefreshTokens_UniquePerIssue(t *testing.T) {
	t.Parallel()

	svc, _ := newSvc(t)
	uid := uuid.New()

	a, _, err := svc.issueRefreshToken(uid, models.RoleUser, uuid.New(), fixedNow)
	require.NoError(t, err)
	b, _, err := svc.issueRefreshToken(uid, models.RoleUser, uuid.New(), fixedNow)
	require.NoError(t, err)

	require.NotEqual(t, a, b)
	require.NotEqual(t, hashToken(a), hashToken(b))
}

func TestAccessToken_UniqueWithinSameSecond(t *testing.T) {
	svc, _ := newSvc(t)
	uid := uuid.New()

	a1, _, err := svc.issueAccessToken(uid, models.RoleUser, fixedNow)
	require.NoError(t, err)
	a2, _, err := svc.issueAccessToken(uid, models.RoleUser, fixedNow)
	require.NoError(t, err)

	require.NotEqual(t, a1, a2)
}
