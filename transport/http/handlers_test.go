package http

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/walletgate/adapters/store"
	"github.com/layer-3/walletgate/adapters/tokenizer"
	"github.com/layer-3/walletgate/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T, limits RateLimits) *gin.Engine {
	t.Helper()

	signKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	mem := store.NewMemoryStore()
	svc := service.NewAuthService(mem, mem, tokenizer.NewJWTTokenizer(signKey, time.Hour), nil, nil, service.Config{})
	return SetupRouter(svc, nil, limits)
}

func newTestWallet(t *testing.T) (address string, sign func(msg string) string) {
	t.Helper()

	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)

	address = ethcrypto.PubkeyToAddress(key.PublicKey).Hex()
	sign = func(msg string) string {
		sig, err := ethcrypto.Sign(accounts.TextHash([]byte(msg)), key)
		require.NoError(t, err)
		sig[64] += 27
		return hexutil.Encode(sig)
	}
	return address, sign
}

func postJSON(router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestChallengeEndpoint(t *testing.T) {
	router := newTestRouter(t, RateLimits{})
	address, _ := newTestWallet(t)

	w := postJSON(router, "/auth/challenge", gin.H{"walletAddress": address})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Challenge string    `json:"challenge"`
		ExpiresAt time.Time `json:"expiresAt"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Challenge)
	require.True(t, resp.ExpiresAt.After(time.Now()))
}

func TestChallengeEndpointInvalidAddress(t *testing.T) {
	router := newTestRouter(t, RateLimits{})

	w := postJSON(router, "/auth/challenge", gin.H{"walletAddress": "not-an-address"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "invalid_input", resp.Error)

	w = postJSON(router, "/auth/challenge", gin.H{})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginFlow(t *testing.T) {
	router := newTestRouter(t, RateLimits{})
	address, sign := newTestWallet(t)

	w := postJSON(router, "/auth/challenge", gin.H{"walletAddress": address})
	require.Equal(t, http.StatusOK, w.Code)

	var challengeResp struct {
		Challenge string `json:"challenge"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &challengeResp))

	login := gin.H{
		"walletAddress": address,
		"challenge":     challengeResp.Challenge,
		"signature":     sign(challengeResp.Challenge),
	}

	w = postJSON(router, "/auth/login", login)
	require.Equal(t, http.StatusOK, w.Code)

	var loginResp struct {
		Token string `json:"token"`
		User  struct {
			ID            string    `json:"id"`
			WalletAddress string    `json:"walletAddress"`
			CreatedAt     time.Time `json:"createdAt"`
			LastLoginAt   time.Time `json:"lastLoginAt"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &loginResp))
	require.NotEmpty(t, loginResp.Token)
	require.Equal(t, address, loginResp.User.WalletAddress)
	require.NotEmpty(t, loginResp.User.ID)

	// The issued token authenticates protected routes.
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+loginResp.Token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var meResp struct {
		UserID        string `json:"userId"`
		WalletAddress string `json:"walletAddress"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &meResp))
	require.Equal(t, loginResp.User.ID, meResp.UserID)
	require.Equal(t, address, meResp.WalletAddress)

	// Replaying the identical login is rejected.
	w = postJSON(router, "/auth/login", login)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginGenericRejection(t *testing.T) {
	router := newTestRouter(t, RateLimits{})
	address, sign := newTestWallet(t)

	w := postJSON(router, "/auth/login", gin.H{
		"walletAddress": address,
		"challenge":     "wgc_never_issued",
		"signature":     sign("wgc_never_issued"),
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	var resp struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "auth_error", resp.Error)
	require.Equal(t, genericAuthMessage, resp.Message)
}

func TestLoginMissingFields(t *testing.T) {
	router := newTestRouter(t, RateLimits{})
	address, _ := newTestWallet(t)

	w := postJSON(router, "/auth/login", gin.H{"walletAddress": address})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router := newTestRouter(t, RateLimits{})

	for _, header := range []string{"", "Token abc", "Bearer garbage"} {
		req := httptest.NewRequest(http.MethodGet, "/api/authorize", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code, "header %q", header)
	}
}

func TestChallengeRateLimit(t *testing.T) {
	router := newTestRouter(t, RateLimits{ChallengePerMinute: 2})
	address, _ := newTestWallet(t)

	for i := 0; i < 2; i++ {
		w := postJSON(router, "/auth/challenge", gin.H{"walletAddress": address})
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := postJSON(router, "/auth/challenge", gin.H{"walletAddress": address})
	require.Equal(t, http.StatusTooManyRequests, w.Code)

	var resp struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "rate_limited", resp.Error)
}
