package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/suite"

	appauth "github.com/aadyantmaity/minecollab/internal/application/auth"
	"github.com/aadyantmaity/minecollab/internal/application/identity"
	"github.com/aadyantmaity/minecollab/internal/application/reconcile"
	"github.com/aadyantmaity/minecollab/internal/domain"
	infraauth "github.com/aadyantmaity/minecollab/internal/infrastructure/auth"
	apphttp "github.com/aadyantmaity/minecollab/internal/infrastructure/http"
	"github.com/aadyantmaity/minecollab/internal/infrastructure/http/handlers"
	"github.com/aadyantmaity/minecollab/internal/infrastructure/http/middleware"
	"github.com/aadyantmaity/minecollab/internal/infrastructure/identity/local"
	"github.com/aadyantmaity/minecollab/internal/infrastructure/lockout"
	"github.com/aadyantmaity/minecollab/internal/infrastructure/persistence/documents"
	"github.com/aadyantmaity/minecollab/internal/infrastructure/persistence/memory"
	"github.com/aadyantmaity/minecollab/internal/infrastructure/security"
)

const adminSecret = "operator-secret"

type captureEnqueuer struct {
	verifyURLs []string
	webhooks   []string
}

func (c *captureEnqueuer) EnqueueSendEmailVerification(_ context.Context, _, _, verifyURL string) error {
	c.verifyURLs = append(c.verifyURLs, verifyURL)
	return nil
}

func (c *captureEnqueuer) EnqueueWebhook(_ context.Context, event string, _ interface{}) error {
	c.webhooks = append(c.webhooks, event)
	return nil
}

type RouterSuite struct {
	suite.Suite
	ctx          context.Context
	enqueuer     *captureEnqueuer
	reservations *documents.ReservationRepository
	server       *httptest.Server
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	s.ctx = context.Background()
	log := zerolog.Nop()
	s.enqueuer = &captureEnqueuer{}

	store := memory.NewAtomicStore()
	s.reservations = documents.NewReservationRepository(store)
	profiles := documents.NewProfileRepository(store)
	journal := documents.NewJournalRepository(store)

	hasher := security.NewArgon2Hasher(security.Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	provider, err := local.NewProvider(memory.NewAccountRepository(), memory.NewEmailVerificationStore(), hasher, s.enqueuer,
		local.Config{BaseURL: "https://play.example.com"}, log)
	s.Require().NoError(err)

	key, _, err := infraauth.LoadSigningKey("")
	s.Require().NoError(err)
	issuer := infraauth.NewTokenIssuer(key, "minecollab", "minecollab")

	opts := identity.DefaultSagaOptions()
	accounts := handlers.NewAccountsHandler(
		identity.NewProvisioner(provider, s.reservations, profiles, journal, opts, log),
		identity.NewRenameCoordinator(provider, s.reservations, profiles, opts, log),
		provider, profiles, s.enqueuer, log)
	authHandler := handlers.NewAuthHandler(
		appauth.NewLogin(provider, issuer, lockout.NewMemoryStore(3, time.Minute), 0),
		appauth.NewVerifyEmail(provider),
		appauth.NewResendVerification(provider, provider),
		s.enqueuer, log)
	admin := handlers.NewAdminHandler(reconcile.NewReconciler(s.reservations, profiles, time.Minute, log), journal, s.enqueuer, log)

	s.server = httptest.NewServer(apphttp.NewRouter(apphttp.RouterConfig{
		AccountsHandler: accounts,
		AuthHandler:     authHandler,
		HealthHandler:   handlers.NewHealthHandler(nil),
		AdminHandler:    admin,
		RequireJWT:      middleware.NewAuthValidator(issuer).Handler,
		RequireAdmin:    middleware.RequireAdminSecret(adminSecret),
		Log:             log,
		Secure:          middleware.NewSecure(middleware.SecureOptions(true)),
	}))
	s.T().Cleanup(s.server.Close)
}

// do sends a JSON request and decodes the JSON response into a map.
func (s *RouterSuite) do(method, path, token string, body interface{}, headers ...string) (int, map[string]interface{}) {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequestWithContext(s.ctx, method, s.server.URL+path, &buf)
	s.Require().NoError(err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := s.server.Client().Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	out := map[string]interface{}{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func (s *RouterSuite) signup(email, password, username string) (int, map[string]interface{}) {
	return s.do(http.MethodPost, "/accounts", "", map[string]string{
		"email": email, "password": password, "username": username,
	})
}

func (s *RouterSuite) login(email, password string) string {
	code, body := s.do(http.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": password})
	s.Require().Equal(http.StatusOK, code, body)
	token, _ := body["access_token"].(string)
	s.Require().NotEmpty(token)
	return token
}

func (s *RouterSuite) TestHealth() {
	code, body := s.do(http.MethodGet, "/health", "", nil)
	s.Equal(http.StatusOK, code)
	s.Equal("ok", body["status"])
}

func (s *RouterSuite) TestSignupErrors() {
	code, body := s.signup("bob@example.com", "correct horse", "Bob")
	s.Require().Equal(http.StatusCreated, code, body)
	s.Equal("Bob", body["username"])
	s.Equal(false, body["email_verified"])

	cases := []struct {
		name                      string
		email, password, username string
		status                    int
		code                      string
	}{
		{"taken in other casing", "carol@example.com", "correct horse", "bob", http.StatusConflict, handlers.ErrCodeUsernameTaken},
		{"email in use", "bob@example.com", "correct horse", "Robert", http.StatusConflict, handlers.ErrCodeEmailInUse},
		{"weak password", "dave@example.com", "short", "Dave", http.StatusBadRequest, handlers.ErrCodeWeakPassword},
		{"bad username", "erin@example.com", "correct horse", "no spaces allowed", http.StatusBadRequest, handlers.ErrCodeInvalidRequest},
		{"bad email", "not-an-email", "correct horse", "Frank", http.StatusBadRequest, handlers.ErrCodeInvalidRequest},
	}
	for _, tc := range cases {
		code, body := s.signup(tc.email, tc.password, tc.username)
		s.Equal(tc.status, code, tc.name)
		s.Equal(tc.code, body["code"], tc.name)
	}

	// Only Bob's reservation exists; failed signups left nothing behind.
	all, err := s.reservations.List(s.ctx)
	s.Require().NoError(err)
	s.Len(all, 1)
}

func (s *RouterSuite) TestLoginRenameAndVerify() {
	code, created := s.signup("bob@example.com", "correct horse", "Bob")
	s.Require().Equal(http.StatusCreated, code, created)

	code, body := s.do(http.MethodPost, "/auth/login", "", map[string]string{"email": "bob@example.com", "password": "wrong horse"})
	s.Equal(http.StatusUnauthorized, code)
	s.Equal(handlers.ErrCodeInvalidCredentials, body["code"])

	token := s.login("bob@example.com", "correct horse")

	code, _ = s.do(http.MethodGet, "/accounts/me", "", nil)
	s.Equal(http.StatusUnauthorized, code)
	code, me := s.do(http.MethodGet, "/accounts/me", token, nil)
	s.Require().Equal(http.StatusOK, code)
	s.Equal(created["id"], me["id"])
	s.Equal("Bob", me["username"])

	code, body = s.do(http.MethodPut, "/accounts/me/username", token, map[string]string{"username": "BOB"})
	s.Equal(http.StatusUnprocessableEntity, code)
	s.Equal(handlers.ErrCodeNoOpRename, body["code"])

	code, body = s.do(http.MethodPut, "/accounts/me/username", token, map[string]string{"username": "Alice"})
	s.Require().Equal(http.StatusOK, code, body)
	s.Equal("Alice", body["username"])
	s.Equal("Bob", body["previous_username"])
	s.Equal(true, body["released"])
	s.NotContains(body, "warning")
	s.Contains(s.enqueuer.webhooks, handlers.EventAccountRenamed)

	// Bob is free again.
	code, _ = s.signup("carol@example.com", "correct horse", "bob")
	s.Equal(http.StatusCreated, code)

	s.Require().Len(s.enqueuer.verifyURLs, 2)
	u, err := url.Parse(s.enqueuer.verifyURLs[0])
	s.Require().NoError(err)
	s.Equal("/auth/verify-email", u.Path)

	code, _ = s.do(http.MethodPost, "/auth/verify-email", "", map[string]string{"token": "bogus"})
	s.Equal(http.StatusBadRequest, code)
	code, body = s.do(http.MethodPost, "/auth/verify-email", "", map[string]string{"token": u.Query().Get("token")})
	s.Require().Equal(http.StatusOK, code, body)

	code, me = s.do(http.MethodGet, "/accounts/me", token, nil)
	s.Require().Equal(http.StatusOK, code)
	s.Equal(true, me["email_verified"])
	s.Equal("Alice", me["username"])

	code, body = s.do(http.MethodPost, "/auth/resend-verification", token, nil)
	s.Equal(http.StatusOK, code)
	s.Equal("email already verified", body["message"])
}

func (s *RouterSuite) TestLoginLockout() {
	code, _ := s.signup("bob@example.com", "correct horse", "Bob")
	s.Require().Equal(http.StatusCreated, code)
	for i := 0; i < 3; i++ {
		code, _ = s.do(http.MethodPost, "/auth/login", "", map[string]string{"email": "bob@example.com", "password": "wrong horse"})
		s.Equal(http.StatusUnauthorized, code)
	}
	code, body := s.do(http.MethodPost, "/auth/login", "", map[string]string{"email": "bob@example.com", "password": "correct horse"})
	s.Equal(http.StatusTooManyRequests, code)
	s.Equal(handlers.ErrCodeAccountLocked, body["code"])
}

func (s *RouterSuite) TestAdminReservations() {
	code, created := s.signup("bob@example.com", "correct horse", "Bob")
	s.Require().Equal(http.StatusCreated, code)
	s.Require().NoError(s.reservations.Reserve(s.ctx, &domain.Reservation{
		UsernameLower: "ghost", Owner: "missing-account", ReservedAt: time.Now().Add(-time.Hour),
	}))

	code, _ = s.do(http.MethodGet, "/admin/reservations", "", nil)
	s.Equal(http.StatusUnauthorized, code)
	code, _ = s.do(http.MethodGet, "/admin/reservations", "", nil, middleware.AdminSecretHeader, "guess")
	s.Equal(http.StatusUnauthorized, code)

	code, body := s.do(http.MethodGet, "/admin/reservations", "", nil, middleware.AdminSecretHeader, adminSecret)
	s.Require().Equal(http.StatusOK, code)
	findings, _ := body["findings"].([]interface{})
	s.Require().Len(findings, 1)
	s.Equal("ghost", findings[0].(map[string]interface{})["username"])

	code, body = s.do(http.MethodGet, "/admin/reservations/BOB", "", nil, middleware.AdminSecretHeader, adminSecret)
	s.Equal(http.StatusOK, code)
	s.Equal("ok", body["status"])

	code, _ = s.do(http.MethodDelete, "/admin/reservations/bob", "", nil, middleware.AdminSecretHeader, adminSecret)
	s.Equal(http.StatusConflict, code)
	code, body = s.do(http.MethodDelete, "/admin/reservations/ghost", "", nil, middleware.AdminSecretHeader, adminSecret)
	s.Equal(http.StatusOK, code)
	s.Equal("orphaned", body["status"])
	code, _ = s.do(http.MethodGet, "/admin/reservations/ghost", "", nil, middleware.AdminSecretHeader, adminSecret)
	s.Equal(http.StatusNotFound, code)

	id, _ := created["id"].(string)
	code, body = s.do(http.MethodGet, "/admin/provisioning/"+id, "", nil, middleware.AdminSecretHeader, adminSecret)
	s.Equal(http.StatusOK, code)
	s.Equal(string(domain.ProvisioningVerified), body["state"])
}
