package resale

import coreerrors "fanmarket/core/errors"

var (
	errNilState          = coreerrors.Statef("resale engine: state not configured")
	errNilTracker        = coreerrors.Statef("resale engine: loyalty tracker not configured")
	errProductNotFound   = coreerrors.Statef("product does not exist")
	errNotHolder         = coreerrors.Statef("seller does not hold product")
	errAlreadyListed     = coreerrors.Statef("already listed")
	errListingNotFound   = coreerrors.Statef("listing not found or already executed")
	errInvalidPrice      = coreerrors.Validationf("resale engine: price must be positive")
	errNotLister         = coreerrors.Authorizationf("resale engine: caller did not create listing")
	errInsufficientFunds = coreerrors.Paymentf("resale engine: insufficient balance")
)
