package market

import coreerrors "fanmarket/core/errors"

var (
	errNilState          = coreerrors.Statef("market engine: state not configured")
	errNilTracker        = coreerrors.Statef("market engine: loyalty tracker not configured")
	errProductNotFound   = coreerrors.Statef("product does not exist")
	errProductInactive   = coreerrors.Statef("product is not active")
	errInsufficientFunds = coreerrors.Paymentf("market engine: insufficient balance")
)
