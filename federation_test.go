package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	xoauth2 "golang.org/x/oauth2"

	"github.com/projecthuman/auth/oauth2"
)

// fakeProvider stands in for Google's token and userinfo endpoints.
func fakeProvider(t *testing.T, profile *oauth2.Profile) (*httptest.Server, *oauth2.Google) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"fake-access-token","token_type":"bearer","expires_in":3600}`)
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(profile)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	google := &oauth2.Google{
		ClientID:     "test-client-id",
		ClientSecret: "test-client-secret",
		CallbackURL:  "http://localhost/api/auth/google/callback",
		Endpoint: xoauth2.Endpoint{
			AuthURL:  srv.URL + "/auth",
			TokenURL: srv.URL + "/token",
		},
		UserInfoURL: srv.URL + "/userinfo",
	}
	return srv, google
}

func newTestOAuth(t *testing.T, profile *oauth2.Profile) (*OAuthLogin, *memAccountStore) {
	t.Helper()
	_, google := fakeProvider(t, profile)
	accounts := newMemAccountStore()
	return &OAuthLogin{
		Accounts:    accounts,
		Codec:       &TokenCodec{AppSecret: "test-secret-key"},
		Google:      google,
		FrontendURL: "http://localhost:3000/auth/callback",
	}, accounts
}

// runAuthorize performs the authorize step and returns the state plus the
// cookies bound to it.
func runAuthorize(t *testing.T, o *OAuthLogin) (string, []*http.Cookie) {
	t.Helper()
	w := httptest.NewRecorder()
	o.HandleAuthorize(w, httptest.NewRequest("GET", "/api/auth/google/authorize", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("authorize returned %d: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	state, _ := body["state"].(string)
	if state == "" {
		t.Fatal("authorize returned no state")
	}
	authURL, _ := body["authorization_url"].(string)
	if !strings.Contains(authURL, "state="+url.QueryEscape(state)) {
		t.Errorf("authorization url does not carry the state: %s", authURL)
	}
	return state, w.Result().Cookies()
}

func runCallback(t *testing.T, o *OAuthLogin, state, code string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	target := fmt.Sprintf("/api/auth/google/callback?state=%s&code=%s", url.QueryEscape(state), url.QueryEscape(code))
	req := httptest.NewRequest("GET", target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	o.HandleCallback(w, req)
	return w
}

func googleProfile() *oauth2.Profile {
	return &oauth2.Profile{
		Subject:       "google-subject-1",
		Email:         "alice@example.com",
		Name:          "Alice Wonder",
		Picture:       "https://example.com/alice.png",
		EmailVerified: true,
	}
}

func TestCallbackCreatesAccount(t *testing.T) {
	o, accounts := newTestOAuth(t, googleProfile())

	state, cookies := runAuthorize(t, o)
	w := runCallback(t, o, state, "fake-code", cookies)

	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d: %s", w.Code, w.Body.String())
	}
	location, err := url.Parse(w.Header().Get("Location"))
	if err != nil {
		t.Fatal(err)
	}
	token := location.Query().Get("token")
	if token == "" {
		t.Fatalf("redirect carries no token: %s", location)
	}

	claims, err := o.Codec.Verify(token)
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}

	account, err := accounts.GetAccountByID(claims.AccountID)
	if err != nil {
		t.Fatal(err)
	}
	if account.Email != "alice@example.com" {
		t.Errorf("unexpected email %q", account.Email)
	}
	if account.Username != "alice_wonder" {
		t.Errorf("expected derived username alice_wonder, got %q", account.Username)
	}
	if !account.IsVerified {
		t.Error("federated accounts are created verified")
	}
	if account.Provider != "google" || account.ProviderID != "google-subject-1" {
		t.Errorf("federated identity not recorded: %q %q", account.Provider, account.ProviderID)
	}
	if account.CheckPassword("") || account.PasswordHash != "" {
		t.Error("federated accounts must have no password credential")
	}
}

func TestCallbackRejectsBadState(t *testing.T) {
	o, accounts := newTestOAuth(t, googleProfile())

	_, cookies := runAuthorize(t, o)
	w := runCallback(t, o, "forged-state", "fake-code", cookies)

	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", w.Code)
	}
	location, _ := url.Parse(w.Header().Get("Location"))
	if location.Query().Get("error") != "invalid_state" {
		t.Errorf("expected invalid_state error, got %s", location)
	}
	if accounts.count() != 0 {
		t.Error("no account may be created on a state mismatch")
	}
}

func TestCallbackRejectsMissingStateCookie(t *testing.T) {
	o, accounts := newTestOAuth(t, googleProfile())

	state, _ := runAuthorize(t, o)
	w := runCallback(t, o, state, "fake-code", nil)

	location, _ := url.Parse(w.Header().Get("Location"))
	if location.Query().Get("error") != "invalid_state" {
		t.Errorf("expected invalid_state error, got %s", location)
	}
	if accounts.count() != 0 {
		t.Error("no account may be created without the state cookie")
	}
}

func TestCallbackProviderError(t *testing.T) {
	o, _ := newTestOAuth(t, googleProfile())

	req := httptest.NewRequest("GET", "/api/auth/google/callback?error=access_denied", nil)
	w := httptest.NewRecorder()
	o.HandleCallback(w, req)

	location, _ := url.Parse(w.Header().Get("Location"))
	if location.Query().Get("error") != "oauth_denied" {
		t.Errorf("expected oauth_denied error, got %s", location)
	}
}

func TestCallbackLinksExistingAccountByEmail(t *testing.T) {
	o, accounts := newTestOAuth(t, googleProfile())

	local := &LocalAuth{Accounts: accounts, Codec: o.Codec}
	existing := registerAccount(t, local, "alice", "alice@example.com", "secret123")

	state, cookies := runAuthorize(t, o)
	w := runCallback(t, o, state, "fake-code", cookies)
	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", w.Code)
	}

	if accounts.count() != 1 {
		t.Fatalf("linking must not create a second account, have %d", accounts.count())
	}
	linked, err := accounts.GetAccountByID(existing.ID)
	if err != nil {
		t.Fatal(err)
	}
	if linked.Provider != "google" || linked.ProviderID != "google-subject-1" {
		t.Error("provider identity not linked to the existing account")
	}
	if !linked.IsVerified {
		t.Error("linking a provider-vouched email marks the account verified")
	}
	if linked.Username != "alice" {
		t.Errorf("linking must keep the local username, got %q", linked.Username)
	}
	if !linked.CheckPassword("secret123") {
		t.Error("linking must keep the local password credential")
	}
	if linked.Picture != "https://example.com/alice.png" {
		t.Errorf("empty picture should adopt the provider's, got %q", linked.Picture)
	}
}

func TestCallbackRepeatLoginFindsSameAccount(t *testing.T) {
	o, accounts := newTestOAuth(t, googleProfile())

	state, cookies := runAuthorize(t, o)
	runCallback(t, o, state, "fake-code", cookies)

	state, cookies = runAuthorize(t, o)
	w := runCallback(t, o, state, "fake-code", cookies)
	if w.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", w.Code)
	}
	if accounts.count() != 1 {
		t.Errorf("repeat login must reuse the account, have %d", accounts.count())
	}
}

func TestCallbackDisabledAccount(t *testing.T) {
	o, accounts := newTestOAuth(t, googleProfile())

	state, cookies := runAuthorize(t, o)
	runCallback(t, o, state, "fake-code", cookies)

	account, err := accounts.GetAccountByProvider("google", "google-subject-1")
	if err != nil {
		t.Fatal(err)
	}
	account.IsActive = false
	if err := accounts.SaveAccount(account); err != nil {
		t.Fatal(err)
	}

	state, cookies = runAuthorize(t, o)
	w := runCallback(t, o, state, "fake-code", cookies)
	location, _ := url.Parse(w.Header().Get("Location"))
	if location.Query().Get("token") != "" {
		t.Error("disabled account must not receive a token")
	}
}

func TestAuthorizeUnconfigured(t *testing.T) {
	o := &OAuthLogin{
		Accounts: newMemAccountStore(),
		Codec:    &TokenCodec{AppSecret: "test-secret-key"},
		Google:   &oauth2.Google{},
	}
	w := httptest.NewRecorder()
	o.HandleAuthorize(w, httptest.NewRequest("GET", "/", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 when unconfigured, got %d", w.Code)
	}
}

func TestVerifyTokenRequiresToken(t *testing.T) {
	o, _ := newTestOAuth(t, googleProfile())

	w := postJSON(o.HandleVerifyToken, map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing token, got %d", w.Code)
	}
}

func TestDeriveUsername(t *testing.T) {
	o, accounts := newTestOAuth(t, googleProfile())

	tests := []struct {
		name    string
		profile oauth2.Profile
		want    string
	}{
		{"display name", oauth2.Profile{Name: "Alice Wonder", Email: "x@example.com"}, "alice_wonder"},
		{"strips punctuation", oauth2.Profile{Name: "Dr. Alice (Wonder)", Email: "x@example.com"}, "dr_alice_wonder"},
		{"email local part fallback", oauth2.Profile{Email: "bob.builder@example.com"}, "bobbuilder"},
		{"too short gets padded", oauth2.Profile{Name: "Al", Email: "x@example.com"}, "al_"},
		{"empty everything", oauth2.Profile{Email: "@example.com"}, "user"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := o.deriveUsername(&tt.profile)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("deriveUsername = %q, want %q", got, tt.want)
			}
		})
	}

	t.Run("collision gets a numeric suffix", func(t *testing.T) {
		if err := accounts.CreateAccount(&Account{Username: "alice_wonder", Email: "taken@example.com", IsActive: true}); err != nil {
			t.Fatal(err)
		}
		got, err := o.deriveUsername(&oauth2.Profile{Name: "Alice Wonder", Email: "x@example.com"})
		if err != nil {
			t.Fatal(err)
		}
		if got != "alice_wonder1" {
			t.Errorf("deriveUsername = %q, want alice_wonder1", got)
		}
	})
}
