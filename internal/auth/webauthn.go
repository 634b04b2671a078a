// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Riddlegate Contributors

package auth

import (
	"encoding/json"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/samber/oops"
)

// HardwareKeyConfig identifies the relying party for hardware-key
// ceremonies.
type HardwareKeyConfig struct {
	RPDisplayName string
	RPID          string
	RPOrigins     []string
}

// HardwareKeys wraps the WebAuthn protocol engine for the two
// challenge/response ceremonies (enrollment and login). Ceremony state is
// returned as an opaque blob for the challenge ledger; this type holds no
// state of its own.
type HardwareKeys struct {
	wan *webauthn.WebAuthn
}

// NewHardwareKeys creates the ceremony engine.
func NewHardwareKeys(cfg HardwareKeyConfig) (*HardwareKeys, error) {
	wan, err := webauthn.New(&webauthn.Config{
		RPDisplayName: cfg.RPDisplayName,
		RPID:          cfg.RPID,
		RPOrigins:     cfg.RPOrigins,
	})
	if err != nil {
		return nil, oops.Code("AUTH_HWK_CONFIG_INVALID").Wrap(err)
	}
	return &HardwareKeys{wan: wan}, nil
}

// BeginRegistration issues an enrollment challenge. Credentials already
// registered for the user are excluded so an authenticator cannot be
// enrolled twice.
func (h *HardwareKeys) BeginRegistration(user *User) (*protocol.CredentialCreation, []byte, error) {
	wu := &webauthnUser{user: user}

	var opts []webauthn.RegistrationOption
	if exclusions := wu.credentialDescriptors(); len(exclusions) > 0 {
		opts = append(opts, webauthn.WithExclusions(exclusions))
	}

	creation, session, err := h.wan.BeginRegistration(wu, opts...)
	if err != nil {
		return nil, nil, oops.Code("AUTH_HWK_CHALLENGE_FAILED").Wrap(err)
	}
	state, err := marshalCeremonyState(session)
	if err != nil {
		return nil, nil, err
	}
	return creation, state, nil
}

// FinishRegistration verifies the attestation response against the
// ceremony state and returns the credential to append.
func (h *HardwareKeys) FinishRegistration(user *User, state []byte, response *protocol.ParsedCredentialCreationData) (*webauthn.Credential, error) {
	session, err := unmarshalCeremonyState(state)
	if err != nil {
		return nil, err
	}
	cred, err := h.wan.CreateCredential(&webauthnUser{user: user}, *session, response)
	if err != nil {
		return nil, oops.Code("AUTH_HWK_ATTESTATION_FAILED").Wrap(ErrAuthenticationFailure)
	}
	return cred, nil
}

// BeginLogin issues an authentication challenge against the user's
// registered credentials.
func (h *HardwareKeys) BeginLogin(user *User) (*protocol.CredentialAssertion, []byte, error) {
	if len(user.HardwareCredentials) == 0 {
		return nil, nil, oops.Code("AUTH_HWK_NO_CREDENTIALS").Wrap(ErrSecondFactorMissing)
	}

	assertion, session, err := h.wan.BeginLogin(&webauthnUser{user: user})
	if err != nil {
		return nil, nil, oops.Code("AUTH_HWK_CHALLENGE_FAILED").Wrap(err)
	}
	state, err := marshalCeremonyState(session)
	if err != nil {
		return nil, nil, err
	}
	return assertion, state, nil
}

// FinishLogin verifies the assertion response. The returned credential
// carries the updated signature counter; a counter that did not advance
// marks a cloned authenticator and fails the login.
func (h *HardwareKeys) FinishLogin(user *User, state []byte, response *protocol.ParsedCredentialAssertionData) (*webauthn.Credential, error) {
	session, err := unmarshalCeremonyState(state)
	if err != nil {
		return nil, err
	}
	cred, err := h.wan.ValidateLogin(&webauthnUser{user: user}, *session, response)
	if err != nil {
		return nil, oops.Code("AUTH_HWK_ASSERTION_FAILED").Wrap(ErrAuthenticationFailure)
	}
	if cred.Authenticator.CloneWarning {
		return nil, oops.Code("AUTH_HWK_CLONE_DETECTED").Wrap(ErrAuthenticationFailure)
	}
	return cred, nil
}

func marshalCeremonyState(session *webauthn.SessionData) ([]byte, error) {
	state, err := json.Marshal(session)
	if err != nil {
		return nil, oops.Code("AUTH_HWK_STATE_ENCODE_FAILED").Wrap(err)
	}
	return state, nil
}

func unmarshalCeremonyState(state []byte) (*webauthn.SessionData, error) {
	var session webauthn.SessionData
	if err := json.Unmarshal(state, &session); err != nil {
		return nil, oops.Code("AUTH_HWK_STATE_DECODE_FAILED").Wrap(err)
	}
	return &session, nil
}

// webauthnUser adapts User to the webauthn.User interface.
type webauthnUser struct {
	user *User
}

func (w *webauthnUser) WebAuthnID() []byte {
	id := w.user.ID
	return id[:]
}

func (w *webauthnUser) WebAuthnName() string        { return w.user.Username }
func (w *webauthnUser) WebAuthnDisplayName() string { return w.user.Username }

func (w *webauthnUser) WebAuthnCredentials() []webauthn.Credential {
	return w.user.HardwareCredentials
}

func (w *webauthnUser) credentialDescriptors() []protocol.CredentialDescriptor {
	descriptors := make([]protocol.CredentialDescriptor, 0, len(w.user.HardwareCredentials))
	for _, cred := range w.user.HardwareCredentials {
		descriptors = append(descriptors, protocol.CredentialDescriptor{
			Type:         protocol.PublicKeyCredentialType,
			CredentialID: cred.ID,
		})
	}
	return descriptors
}
