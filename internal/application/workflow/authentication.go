package workflow

import (
	"context"
	"fmt"

	"github.com/geominder/core/internal/domain/entities"
	"github.com/geominder/core/internal/infrastructure/logger"
	"github.com/geominder/core/internal/ports"
)

// AuthenticationWorkflow signs the user in and out and routes unauthenticated
// callers to the sign-in screen.
type AuthenticationWorkflow struct {
	auth   ports.Authenticator
	events emitter
}

// NewAuthenticationWorkflow creates an authentication workflow
func NewAuthenticationWorkflow(auth ports.Authenticator, sink Sink, log *logger.Logger) *AuthenticationWorkflow {
	return &AuthenticationWorkflow{
		auth:   auth,
		events: emitter{workflow: "authentication", sink: sink, logger: log},
	}
}

// CheckState returns the caller's state and redirects to sign-in when
// unauthenticated.
func (w *AuthenticationWorkflow) CheckState(ctx context.Context) entities.AuthState {
	state := w.auth.AuthState(ctx)
	if state == entities.AuthStateUnauthenticated {
		w.events.emit(Navigate{Command: ToID(DestinationAuthentication)})
	}
	return state
}

// Login signs in. An empty password is treated as a cancelled sign-in.
func (w *AuthenticationWorkflow) Login(ctx context.Context, password string) (*ports.AuthResponse, error) {
	if password == "" {
		w.events.emit(ShowSnackbar{Message: entities.MsgSignInCancelled})
		return nil, fmt.Errorf("sign in cancelled: %w", entities.ErrUnauthorized)
	}

	resp, err := w.auth.Login(ctx, password)
	if err != nil {
		w.events.emit(ShowSnackbar{Message: entities.MsgSignInUnsuccessful})
		return nil, err
	}

	w.events.emit(ShowToast{Message: entities.MsgSignInSuccessful})
	w.events.emit(Navigate{Command: Back()})
	return resp, nil
}

// Logout signs out and returns to the sign-in screen.
func (w *AuthenticationWorkflow) Logout(ctx context.Context) error {
	if err := w.auth.Logout(ctx); err != nil {
		return err
	}

	w.events.emit(ShowSnackbar{Message: entities.MsgSignedOut})
	w.events.emit(Navigate{Command: ToID(DestinationAuthentication)})
	return nil
}
