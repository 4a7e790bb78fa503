package auth

import (
	"context"
	"testing"

	"github.com/MarkoPoloResearchLab/hyperx/pkg/gateway"
	"github.com/MarkoPoloResearchLab/hyperx/pkg/notify"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func signedInFixture(t *testing.T) *orchestratorFixture {
	t.Helper()
	fixture := newFixture(t)
	token := mustToken(t, jwt.MapClaims{"sub": "u1", "email": "a@b.com"})
	fixture.api.login = func(string, string) (gateway.TokenPair, error) {
		return gateway.TokenPair{AccessToken: token}, nil
	}
	outcome := fixture.orchestrator.Login(context.Background(), "a@b.com", "pw")
	require.Equal(t, RoutePinSetup, outcome.Route)
	return fixture
}

func TestCreatePin(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name                 string
		pin                  string
		confirm              string
		expected             bool
		expectedNotification notify.Notification
	}{
		{
			name:                 "created",
			pin:                  "1234",
			confirm:              "1234",
			expected:             true,
			expectedNotification: notify.Info(titlePinCreated, descriptionPinCreated),
		},
		{
			name:                 "mismatch",
			pin:                  "1234",
			confirm:              "4321",
			expectedNotification: notify.Failure(titlePinMismatch, descriptionPinMismatch),
		},
		{
			name:                 "too short",
			pin:                  "123",
			confirm:              "123",
			expectedNotification: notify.Failure(titleInvalidPin, descriptionPinDigits),
		},
		{
			name:                 "letters",
			pin:                  "12a4",
			confirm:              "12a4",
			expectedNotification: notify.Failure(titleInvalidPin, descriptionPinDigits),
		},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			fixture := signedInFixture(t)
			require.Equal(t, testCase.expected, fixture.orchestrator.CreatePin(context.Background(), testCase.pin, testCase.confirm))
			require.Equal(t, testCase.expectedNotification, fixture.lastNotification(t))
			if testCase.expected {
				require.Equal(t, StageDashboard, fixture.orchestrator.Stage())
				require.Contains(t, fixture.api.recorded(), "pin_create")
			} else {
				require.NotContains(t, fixture.api.recorded(), "pin_create")
			}
		})
	}
}

func TestCreatePinRequiresSession(t *testing.T) {
	t.Parallel()
	fixture := newFixture(t)
	require.False(t, fixture.orchestrator.CreatePin(context.Background(), "1234", "1234"))
	require.Equal(t, notify.Failure(titleUserError, descriptionNoUser), fixture.lastNotification(t))
}

func TestCreatePinRejectedByService(t *testing.T) {
	t.Parallel()
	fixture := signedInFixture(t)
	fixture.api.createPin = func(string, string) error {
		return &gateway.RejectedError{Endpoint: "pin.create", Message: "PIN already exists"}
	}
	require.False(t, fixture.orchestrator.CreatePin(context.Background(), "1234", "1234"))
	require.Equal(t, notify.Failure(titlePinCreateFailed, "PIN already exists"), fixture.lastNotification(t))
}

func TestVerifyPin(t *testing.T) {
	t.Parallel()
	fixture := signedInFixture(t)
	fixture.api.verifyPin = func(userID string, pin string) error {
		if pin != "1234" {
			return &gateway.RejectedError{Endpoint: "pin.verify"}
		}
		return nil
	}
	require.True(t, fixture.orchestrator.VerifyPin(context.Background(), "1234"))
	require.False(t, fixture.orchestrator.VerifyPin(context.Background(), "9999"))
	require.Equal(t, notify.Failure(titlePinVerifyFailed, descriptionWrongPin), fixture.lastNotification(t))
}
