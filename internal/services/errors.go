// Package services defines the business logic for the catalog, the import
// pipeline, the generation ledger, authentication, and spreadsheet transfer.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler layer.
package services

import "errors"

// Catalog and import errors.
var (
	// ErrItemNotFound indicates the requested catalog item does not exist.
	ErrItemNotFound = errors.New("catalog item not found")

	// ErrInvalidCount is returned when an import request asks for a
	// non-positive item count.
	ErrInvalidCount = errors.New("count must be a positive integer")

	// ErrCountTooLarge is returned when an import request exceeds the hard
	// ceiling on items per run.
	ErrCountTooLarge = errors.New("count exceeds the import ceiling")
)

// Generation ledger errors.
var (
	// ErrGenerationNotFound indicates the requested ledger row does not
	// exist or does not belong to the caller. The two conditions are
	// deliberately indistinguishable.
	ErrGenerationNotFound = errors.New("generation not found")

	// ErrEmptyPatch is returned when an update request contains no editable
	// fields after filtering to the allow-list.
	ErrEmptyPatch = errors.New("no editable fields in request")

	// ErrVariantExists is returned when renaming a generation would collide
	// with an existing (user, item, variant) key.
	ErrVariantExists = errors.New("variant name already in use for this item")

	// ErrNothingToExport is returned when an export is requested but the
	// caller has no ledger rows.
	ErrNothingToExport = errors.New("no generations to export")
)

// Authentication errors.
var (
	// ErrEmailTaken is returned when registering an email that already has
	// an account.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials is returned on login when the email is unknown
	// or the password does not match. The two conditions are deliberately
	// indistinguishable.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrUserInactive is returned when a disabled account attempts to log in.
	ErrUserInactive = errors.New("account is disabled")

	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")
)
