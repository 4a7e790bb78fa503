package auth

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/MarkoPoloResearchLab/hyperx/pkg/authapi"
	"github.com/MarkoPoloResearchLab/hyperx/pkg/gateway"
	"github.com/MarkoPoloResearchLab/hyperx/pkg/notify"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	mutex sync.Mutex
	calls []string

	register      func(email string, password string) error
	login         func(email string, password string) (gateway.TokenPair, error)
	verifyOTP     func(email string, code string) (gateway.TokenPair, error)
	resendOTP     func(email string) error
	currentUser   func() (authapi.User, error)
	pinStatus     func(userID string) (bool, error)
	createPin     func(userID string, pin string) error
	verifyPin     func(userID string, pin string) error
	pinLogin      func(userID string, pin string) (gateway.TokenPair, error)
	requestReset  func(email string) error
	resetPassword func(token string, newPassword string) error
	logout        func() error
}

func (api *fakeAPI) record(call string) {
	api.mutex.Lock()
	api.calls = append(api.calls, call)
	api.mutex.Unlock()
}

func (api *fakeAPI) recorded() []string {
	api.mutex.Lock()
	defer api.mutex.Unlock()
	return append([]string(nil), api.calls...)
}

func (api *fakeAPI) Register(_ context.Context, email string, password string) error {
	api.record("register")
	if api.register == nil {
		return nil
	}
	return api.register(email, password)
}

func (api *fakeAPI) Login(_ context.Context, email string, password string) (gateway.TokenPair, error) {
	api.record("login")
	if api.login == nil {
		return gateway.TokenPair{}, errors.New("login not stubbed")
	}
	return api.login(email, password)
}

func (api *fakeAPI) VerifyOTP(_ context.Context, email string, code string) (gateway.TokenPair, error) {
	api.record("verify_otp")
	if api.verifyOTP == nil {
		return gateway.TokenPair{}, nil
	}
	return api.verifyOTP(email, code)
}

func (api *fakeAPI) ResendOTP(_ context.Context, email string) error {
	api.record("resend_otp")
	if api.resendOTP == nil {
		return nil
	}
	return api.resendOTP(email)
}

func (api *fakeAPI) CurrentUser(context.Context) (authapi.User, error) {
	api.record("current_user")
	if api.currentUser == nil {
		return authapi.User{}, errors.New("current user not stubbed")
	}
	return api.currentUser()
}

func (api *fakeAPI) PinStatus(_ context.Context, userID string) (bool, error) {
	api.record("pin_status")
	if api.pinStatus == nil {
		return false, nil
	}
	return api.pinStatus(userID)
}

func (api *fakeAPI) CreatePin(_ context.Context, userID string, pin string) error {
	api.record("pin_create")
	if api.createPin == nil {
		return nil
	}
	return api.createPin(userID, pin)
}

func (api *fakeAPI) VerifyPin(_ context.Context, userID string, pin string) error {
	api.record("pin_verify")
	if api.verifyPin == nil {
		return nil
	}
	return api.verifyPin(userID, pin)
}

func (api *fakeAPI) PinLogin(_ context.Context, userID string, pin string) (gateway.TokenPair, error) {
	api.record("pin_login")
	if api.pinLogin == nil {
		return gateway.TokenPair{}, errors.New("pin login not stubbed")
	}
	return api.pinLogin(userID, pin)
}

func (api *fakeAPI) RequestPasswordReset(_ context.Context, email string) error {
	api.record("request_password_reset")
	if api.requestReset == nil {
		return nil
	}
	return api.requestReset(email)
}

func (api *fakeAPI) ResetPassword(_ context.Context, token string, newPassword string) error {
	api.record("reset_password")
	if api.resetPassword == nil {
		return nil
	}
	return api.resetPassword(token, newPassword)
}

func (api *fakeAPI) Logout(context.Context) error {
	api.record("logout")
	if api.logout == nil {
		return nil
	}
	return api.logout()
}

type stubTokenStore struct {
	mutex sync.Mutex
	pair  gateway.TokenPair
}

func (store *stubTokenStore) Load(context.Context) (gateway.TokenPair, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	return store.pair, nil
}

func (store *stubTokenStore) Save(_ context.Context, pair gateway.TokenPair) error {
	store.mutex.Lock()
	store.pair = pair
	store.mutex.Unlock()
	return nil
}

func (store *stubTokenStore) Clear(context.Context) error {
	store.mutex.Lock()
	store.pair = gateway.TokenPair{}
	store.mutex.Unlock()
	return nil
}

type recordingProfiles struct {
	saved []Profile
	err   error
}

func (profiles *recordingProfiles) SaveProfile(_ context.Context, profile Profile) error {
	if profiles.err != nil {
		return profiles.err
	}
	profiles.saved = append(profiles.saved, profile)
	return nil
}

type orchestratorFixture struct {
	orchestrator *Orchestrator
	api          *fakeAPI
	tokens       *stubTokenStore
	recorder     *notify.Recorder
	profiles     *recordingProfiles
}

func newFixture(t *testing.T) *orchestratorFixture {
	t.Helper()
	fixture := &orchestratorFixture{
		api:      &fakeAPI{},
		tokens:   &stubTokenStore{},
		recorder: &notify.Recorder{},
		profiles: &recordingProfiles{},
	}
	orchestrator, err := New(fixture.api, fixture.tokens, fixture.recorder, WithProfileStore(fixture.profiles))
	require.NoError(t, err)
	fixture.orchestrator = orchestrator
	return fixture
}

func (fixture *orchestratorFixture) lastNotification(t *testing.T) notify.Notification {
	t.Helper()
	notification, ok := fixture.recorder.Last()
	require.True(t, ok, "expected a notification")
	return notification
}

func mustToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-signing-key"))
	require.NoError(t, err)
	return token
}

func statusError(statusCode int, body string) error {
	return &gateway.StatusError{StatusCode: statusCode, Message: "rejected", Body: []byte(body)}
}
